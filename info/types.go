package info

import "github.com/banky/hyperliquid-exchange/types"

// ===== Market Data Types =====

// L2Level represents a single level in the order book
type L2Level struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

// L2BookSnapshot contains level 2 order book data
type L2BookSnapshot struct {
	Coin   string       `json:"coin"`
	Levels [2][]L2Level `json:"levels"`
	Time   int64        `json:"time"`
}

// AssetInfo is one perp in the universe. Its asset id is its index.
type AssetInfo struct {
	Name         string `json:"name"`
	SzDecimals   int    `json:"szDecimals"`
	MaxLeverage  int    `json:"maxLeverage"`
	OnlyIsolated bool   `json:"onlyIsolated,omitempty"`
	IsDelisted   bool   `json:"isDelisted,omitempty"`
}

// Meta contains exchange metadata for perpetuals
type Meta struct {
	Universe []AssetInfo `json:"universe"`
}

// SpotAssetInfo contains spot asset metadata
type SpotAssetInfo struct {
	Name        string `json:"name"`
	Tokens      [2]int `json:"tokens"`
	Index       int    `json:"index"`
	IsCanonical bool   `json:"isCanonical"`
}

// SpotTokenInfo contains spot token metadata
type SpotTokenInfo struct {
	Name        string  `json:"name"`
	SzDecimals  int     `json:"szDecimals"`
	WeiDecimals int     `json:"weiDecimals"`
	Index       int     `json:"index"`
	TokenId     string  `json:"tokenId"`
	IsCanonical bool    `json:"isCanonical"`
	EvmContract *string `json:"evmContract"`
	FullName    *string `json:"fullName"`
}

// SpotMeta contains exchange metadata for spot trading
type SpotMeta struct {
	Universe []SpotAssetInfo `json:"universe"`
	Tokens   []SpotTokenInfo `json:"tokens"`
}

// ===== User Account Types =====

// Position is one open perp position. Szi is signed: negative for shorts.
type Position struct {
	Coin           string   `json:"coin"`
	Szi            string   `json:"szi"`
	EntryPx        *string  `json:"entryPx"`
	LiquidationPx  *string  `json:"liquidationPx"`
	Leverage       Leverage `json:"leverage"`
	MarginUsed     string   `json:"marginUsed"`
	PositionValue  string   `json:"positionValue"`
	ReturnOnEquity string   `json:"returnOnEquity"`
	UnrealizedPnl  string   `json:"unrealizedPnl"`
}

type AssetPosition struct {
	Type     string   `json:"type"`
	Position Position `json:"position"`
}

type Leverage struct {
	Type  string `json:"type"` // cross | isolated
	Value int    `json:"value"`
	// RawUsd is only set for isolated margin.
	RawUsd *string `json:"rawUsd,omitempty"`
}

type MarginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalMarginUsed string `json:"totalMarginUsed"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalRawUsd     string `json:"totalRawUsd"`
}

// UserState is the clearinghouse state MarketClose reads positions from.
type UserState struct {
	AssetPositions     []AssetPosition `json:"assetPositions"`
	MarginSummary      MarginSummary   `json:"marginSummary"`
	CrossMarginSummary MarginSummary   `json:"crossMarginSummary"`
	Withdrawable       string          `json:"withdrawable"`
	Time               int64           `json:"time"`
}

// OpenOrder is a resting order. Cloid is set when the order was placed
// with one.
type OpenOrder struct {
	Coin      string       `json:"coin"`
	Side      string       `json:"side"`
	LimitPx   string       `json:"limitPx"`
	Sz        string       `json:"sz"`
	Oid       int64        `json:"oid"`
	Timestamp int64        `json:"timestamp"`
	Cloid     *types.Cloid `json:"cloid,omitempty"`
}

type Fill struct {
	Coin          string       `json:"coin"`
	Px            string       `json:"px"`
	Sz            string       `json:"sz"`
	Side          string       `json:"side"`
	Time          int64        `json:"time"`
	StartPosition string       `json:"startPosition"`
	Dir           string       `json:"dir"`
	ClosedPnl     string       `json:"closedPnl"`
	Hash          string       `json:"hash"`
	Oid           int64        `json:"oid"`
	Crossed       bool         `json:"crossed"`
	Fee           string       `json:"fee"`
	FeeToken      string       `json:"feeToken"`
	Tid           int64        `json:"tid"`
	Cloid         *types.Cloid `json:"cloid,omitempty"`
}
