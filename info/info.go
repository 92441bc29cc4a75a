// Package info queries the /info endpoint for the market metadata, prices
// and account state the exchange client needs, and keeps the name to asset
// table used to address orders.
package info

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/banky/hyperliquid-exchange/rest"
	"golang.org/x/sync/errgroup"
)

const infoPath = "/info"

// Info provides market data and user account queries over REST
type Info struct {
	rest rest.ClientInterface

	mu                sync.RWMutex
	coinToAsset       map[string]int
	nameToCoin        map[string]string
	assetToSzDecimals map[int]int
}

// Config for initializing the Info client
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Rest replaces the HTTP client built from BaseURL and Timeout.
	Rest rest.ClientInterface
}

// New creates a new Info client. The asset table is empty until LoadAssets
// or SetAssets is called.
func New(cfg Config) *Info {
	client := cfg.Rest
	if client == nil {
		client = rest.New(rest.Config{
			BaseUrl: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
	}

	return &Info{
		rest:              client,
		coinToAsset:       make(map[string]int),
		nameToCoin:        make(map[string]string),
		assetToSzDecimals: make(map[int]int),
	}
}

// ===== Market Data Queries =====

// AllMids retrieves mid-prices for all coins, with fallback to last trade price if book is empty.
func (i *Info) AllMids(ctx context.Context, dex string) (map[string]string, error) {
	var result map[string]string
	err := i.rest.Post(
		ctx,
		infoPath,
		map[string]any{
			"type": "allMids",
			"dex":  dex,
		},
		&result,
	)

	return result, err
}

// L2Snapshot retrieves up to 20 levels of the order book for a coin.
func (i *Info) L2Snapshot(ctx context.Context, name string) (*L2BookSnapshot, error) {
	coin := i.NameToCoin(name)
	if coin == "" {
		return nil, fmt.Errorf("unknown coin name: %s", name)
	}

	var result L2BookSnapshot
	err := i.rest.Post(
		ctx,
		infoPath,
		map[string]any{
			"type": "l2Book",
			"coin": coin,
		},
		&result,
	)

	return &result, err
}

// Meta retrieves exchange metadata for perpetuals.
func (i *Info) Meta(ctx context.Context, dex string) (*Meta, error) {
	var result Meta
	err := i.rest.Post(
		ctx,
		infoPath,
		map[string]any{
			"type": "meta",
			"dex":  dex,
		},
		&result,
	)

	return &result, err
}

// SpotMeta retrieves exchange metadata for spot trading.
func (i *Info) SpotMeta(ctx context.Context) (*SpotMeta, error) {
	var result SpotMeta
	err := i.rest.Post(
		ctx,
		infoPath,
		map[string]any{
			"type": "spotMeta",
		},
		&result,
	)

	return &result, err
}

// ===== User Account Queries =====

// UserState retrieves account portfolio and position data.
func (i *Info) UserState(ctx context.Context, address string, dex string) (*UserState, error) {
	var result UserState
	err := i.rest.Post(
		ctx,
		infoPath,
		map[string]any{
			"type": "clearinghouseState",
			"user": address,
			"dex":  dex,
		},
		&result,
	)

	return &result, err
}

// OpenOrders retrieves a user's active orders.
func (i *Info) OpenOrders(ctx context.Context, address string, dex string) ([]OpenOrder, error) {
	var result []OpenOrder
	err := i.rest.Post(
		ctx,
		infoPath,
		map[string]any{
			"type": "openOrders",
			"user": address,
			"dex":  dex,
		},
		&result,
	)

	return result, err
}

// UserFills retrieves a user's fills/executed trades.
func (i *Info) UserFills(ctx context.Context, address string) ([]Fill, error) {
	var result []Fill
	err := i.rest.Post(
		ctx,
		infoPath,
		map[string]any{
			"type": "userFills",
			"user": address,
		},
		&result,
	)

	return result, err
}

// ===== Coin/Asset Management =====

// LoadAssets fetches perp and spot metadata and rebuilds the asset table.
func (i *Info) LoadAssets(ctx context.Context) error {
	var (
		meta     *Meta
		spotMeta *SpotMeta
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meta, err = i.Meta(gctx, "")
		if err != nil {
			return fmt.Errorf("fetch meta: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		spotMeta, err = i.SpotMeta(gctx)
		if err != nil {
			return fmt.Errorf("fetch spot meta: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return i.SetAssets(meta, spotMeta)
}

// SetAssets rebuilds the asset table. Perp assets are numbered by their
// position in the universe; spot assets by their index offset by
// constants.SPOT_ASSET_OFFSET, and are also reachable as "BASE/QUOTE".
func (i *Info) SetAssets(meta *Meta, spotMeta *SpotMeta) error {
	coinToAsset := make(map[string]int)
	nameToCoin := make(map[string]string)
	assetToSzDecimals := make(map[int]int)

	if meta != nil {
		for asset, assetInfo := range meta.Universe {
			coinToAsset[assetInfo.Name] = asset
			nameToCoin[assetInfo.Name] = assetInfo.Name
			assetToSzDecimals[asset] = assetInfo.SzDecimals
		}
	}

	if spotMeta != nil {
		for _, spotInfo := range spotMeta.Universe {
			asset := spotInfo.Index + constants.SPOT_ASSET_OFFSET
			coinToAsset[spotInfo.Name] = asset
			nameToCoin[spotInfo.Name] = spotInfo.Name

			base, quote := spotInfo.Tokens[0], spotInfo.Tokens[1]
			if base >= len(spotMeta.Tokens) || quote >= len(spotMeta.Tokens) {
				return fmt.Errorf("spot pair %s references unknown token", spotInfo.Name)
			}
			baseInfo, quoteInfo := spotMeta.Tokens[base], spotMeta.Tokens[quote]
			assetToSzDecimals[asset] = baseInfo.SzDecimals

			pair := baseInfo.Name + "/" + quoteInfo.Name
			if _, ok := nameToCoin[pair]; !ok {
				nameToCoin[pair] = spotInfo.Name
			}
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.coinToAsset = coinToAsset
	i.nameToCoin = nameToCoin
	i.assetToSzDecimals = assetToSzDecimals
	return nil
}

// NameToCoin resolves a user facing name to the coin the exchange uses.
// Unknown names are returned as-is.
func (i *Info) NameToCoin(name string) string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if coin, ok := i.nameToCoin[name]; ok {
		return coin
	}
	return name
}

// Asset retrieves the asset ID for a given coin/name
func (i *Info) Asset(name string) (int, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	coin, ok := i.nameToCoin[name]
	if !ok {
		coin = name
	}
	asset, ok := i.coinToAsset[coin]
	return asset, ok
}

// SzDecimals is the number of size decimals of asset.
func (i *Info) SzDecimals(asset int) (int, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	d, ok := i.assetToSzDecimals[asset]
	return d, ok
}
