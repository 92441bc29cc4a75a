package ws

import (
	"encoding/json"

	"github.com/banky/hyperliquid-exchange/types"
)

// Message is one server frame routed to a listener. Data is left raw; use
// Decode with the payload type of the subscribed channel.
type Message struct {
	Channel    string
	Identifier string
	Data       json.RawMessage
}

// Decode unmarshals the frame payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Data, v)
}

// ===== Payload Types =====

type L2Level struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

// AllMidsMessage contains all mid-prices
type AllMidsMessage struct {
	Mids map[string]string `json:"mids"`
}

type L2BookMessage struct {
	Coin   string       `json:"coin"`
	Levels [2][]L2Level `json:"levels"`
	Time   int64        `json:"time"`
}

type Trade struct {
	Coin string `json:"coin"`
	Side string `json:"side"` // "A" or "B"
	Px   string `json:"px"`
	Sz   string `json:"sz"`
	Hash string `json:"hash"`
	Time int64  `json:"time"`
	Tid  int64  `json:"tid"`
}

// Fill represents a user fill/trade execution
type Fill struct {
	Coin          string `json:"coin"`
	Px            string `json:"px"`
	Sz            string `json:"sz"`
	Side          string `json:"side"`
	Time          int64  `json:"time"`
	StartPosition string `json:"startPosition"`
	Dir           string `json:"dir"`
	ClosedPnl     string `json:"closedPnl"`
	Hash          string `json:"hash"`
	Oid           int64  `json:"oid"`
	Crossed       bool   `json:"crossed"`
	Fee           string `json:"fee"`
	Tid           int64  `json:"tid"`
	FeeToken      string `json:"feeToken"`
}

type UserEventsMessage struct {
	Fills []Fill `json:"fills"`
}

type UserFillsMessage struct {
	User       string `json:"user"`
	IsSnapshot bool   `json:"isSnapshot"`
	Fills      []Fill `json:"fills"`
}

type BboData struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

// BboMessage contains best bid/offer data
type BboMessage struct {
	Coin string      `json:"coin"`
	Time int64       `json:"time"`
	Bbo  [2]*BboData `json:"bbo"` // [bid, ask]
}

type CandleMessage struct {
	S string `json:"s"` // Symbol (coin)
	I string `json:"i"` // Interval
	O string `json:"o"`
	C string `json:"c"`
	H string `json:"h"`
	L string `json:"l"`
	V string `json:"v"`
	T int64  `json:"t"` // Open time
}

type BasicOrder struct {
	Coin      string       `json:"coin"`
	Side      string       `json:"side"`
	LimitPx   string       `json:"limitPx"`
	Sz        string       `json:"sz"`
	Oid       int64        `json:"oid"`
	Timestamp int64        `json:"timestamp"`
	OrigSz    string       `json:"origSz"`
	Cloid     *types.Cloid `json:"cloid,omitempty"`
}

// OrderUpdate is one element of an orderUpdates frame. Status is one of
// open, filled, canceled, triggered, rejected, marginCanceled.
type OrderUpdate struct {
	Order           BasicOrder `json:"order"`
	Status          string     `json:"status"`
	StatusTimestamp int64      `json:"statusTimestamp"`
}

type UserFunding struct {
	Time        int64  `json:"time"`
	Coin        string `json:"coin"`
	Usdc        string `json:"usdc"`
	Szi         string `json:"szi"`
	FundingRate string `json:"fundingRate"`
}

type UserFundingsMessage struct {
	User       string        `json:"user"`
	IsSnapshot bool          `json:"isSnapshot"`
	Fundings   []UserFunding `json:"fundings"`
}

type PerpAssetCtx struct {
	Funding      string     `json:"funding"`
	OpenInterest string     `json:"openInterest"`
	PrevDayPx    string     `json:"prevDayPx"`
	DayNtlVlm    string     `json:"dayNtlVlm"`
	Premium      string     `json:"premium"`
	OraclePx     string     `json:"oraclePx"`
	MarkPx       string     `json:"markPx"`
	MidPx        *string    `json:"midPx"`
	ImpactPxs    *[2]string `json:"impactPxs"`
	DayBaseVlm   string     `json:"dayBaseVlm"`
}

// ActiveAssetCtxMessage contains active asset context for perpetuals
type ActiveAssetCtxMessage struct {
	Coin string       `json:"coin"`
	Ctx  PerpAssetCtx `json:"ctx"`
}
