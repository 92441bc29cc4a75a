package exchange

import (
	"time"

	"github.com/banky/hyperliquid-exchange/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/mo"
)

/*//////////////////////////////////////////////////////////////
                            DISPATCH
//////////////////////////////////////////////////////////////*/

// DispatchOptions override the Exchange defaults for one action. Unset
// fields fall back to the values from Config.
type DispatchOptions struct {
	// Agent posts the action wrapped on behalf of an approved agent.
	Agent mo.Option[common.Address]
	// Vault trades for a vault or sub-account. Ignored by user-signed actions.
	Vault mo.Option[common.Address]
	// Builder attaches a builder fee to order actions that carry none.
	Builder mo.Option[BuilderInfo]
}

func (o DispatchOptions) merge(defaults DispatchOptions) DispatchOptions {
	if o.Agent.IsAbsent() {
		o.Agent = defaults.Agent
	}
	if o.Vault.IsAbsent() {
		o.Vault = defaults.Vault
	}
	if o.Builder.IsAbsent() {
		o.Builder = defaults.Builder
	}
	return o
}

/*//////////////////////////////////////////////////////////////
                             ORDER
//////////////////////////////////////////////////////////////*/

// CreateOrderOption is a functional option for Order operations
type CreateOrderOption func(*createOrderConfig)

type createOrderConfig struct {
	builder  mo.Option[BuilderInfo]
	grouping mo.Option[OrderGrouping]
}

func (c createOrderConfig) getGrouping() OrderGrouping {
	return c.grouping.OrElse(GroupingNa)
}

// WithOrderBuilderInfo sets the builder info for the order
func WithOrderBuilderInfo(builder BuilderInfo) CreateOrderOption {
	return func(cfg *createOrderConfig) {
		cfg.builder = mo.Some(builder)
	}
}

func WithOrderGrouping(grouping OrderGrouping) CreateOrderOption {
	return func(cfg *createOrderConfig) {
		cfg.grouping = mo.Some(grouping)
	}
}

/*//////////////////////////////////////////////////////////////
                          MARKET ORDER
//////////////////////////////////////////////////////////////*/

// DEFAULT_SLIPPAGE is the default max slippage for market orders (5%)
const DEFAULT_SLIPPAGE = 0.05

// MarketOrderOption is a functional option for market orders
type MarketOrderOption func(*marketOrderConfig)

type marketOrderConfig struct {
	px       mo.Option[float64]
	cloid    mo.Option[types.Cloid]
	slippage float64
}

func defaultMarketOrderConfig() marketOrderConfig {
	return marketOrderConfig{slippage: DEFAULT_SLIPPAGE}
}

// WithMarketOrderPrice sets the reference price slippage is applied to,
// instead of the mid price.
func WithMarketOrderPrice(px float64) MarketOrderOption {
	return func(cfg *marketOrderConfig) {
		cfg.px = mo.Some(px)
	}
}

// WithMarketOrderSlippage sets the slippage fraction, e.g. 0.01 for 1%.
func WithMarketOrderSlippage(slippage float64) MarketOrderOption {
	return func(cfg *marketOrderConfig) {
		cfg.slippage = slippage
	}
}

func WithMarketOrderCloid(cloid types.Cloid) MarketOrderOption {
	return func(cfg *marketOrderConfig) {
		cfg.cloid = mo.Some(cloid)
	}
}

/*//////////////////////////////////////////////////////////////
                          MARKET CLOSE
//////////////////////////////////////////////////////////////*/

// MarketCloseOption is a functional option for market close operations
type MarketCloseOption func(*marketCloseConfig)

type marketCloseConfig struct {
	sz       mo.Option[float64]
	px       mo.Option[float64]
	slippage float64
	cloid    mo.Option[types.Cloid]
}

func defaultMarketCloseConfig() marketCloseConfig {
	return marketCloseConfig{slippage: DEFAULT_SLIPPAGE}
}

// WithMarketCloseSize closes only sz of the position.
func WithMarketCloseSize(sz float64) MarketCloseOption {
	return func(cfg *marketCloseConfig) {
		cfg.sz = mo.Some(sz)
	}
}

func WithMarketClosePrice(px float64) MarketCloseOption {
	return func(cfg *marketCloseConfig) {
		cfg.px = mo.Some(px)
	}
}

func WithMarketCloseSlippage(slippage float64) MarketCloseOption {
	return func(cfg *marketCloseConfig) {
		cfg.slippage = slippage
	}
}

func WithMarketCloseCloid(cloid types.Cloid) MarketCloseOption {
	return func(cfg *marketCloseConfig) {
		cfg.cloid = mo.Some(cloid)
	}
}

/*//////////////////////////////////////////////////////////////
                        SCHEDULE CANCEL
//////////////////////////////////////////////////////////////*/

// ScheduleCancelOption is a functional option for modifying scheduled cancel
type ScheduleCancelOption func(*scheduleCancelConfig)

type scheduleCancelConfig struct {
	time mo.Option[time.Time]
}

// WithScheduleCancelTime cancels all open orders at t. Without it the
// scheduled cancel is cleared.
func WithScheduleCancelTime(t time.Time) ScheduleCancelOption {
	return func(cfg *scheduleCancelConfig) {
		cfg.time = mo.Some(t)
	}
}
