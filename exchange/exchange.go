// Package exchange builds, signs and posts actions to the /exchange
// endpoint.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/banky/hyperliquid-exchange/admission"
	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/banky/hyperliquid-exchange/info"
	"github.com/banky/hyperliquid-exchange/internal/utils"
	"github.com/banky/hyperliquid-exchange/rest"
	"github.com/banky/hyperliquid-exchange/signer"
	"github.com/banky/hyperliquid-exchange/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/mo"
	"go.uber.org/zap"
)

// AssetInfo resolves coin names and supplies the market data used to price
// market orders. *info.Info implements it.
type AssetInfo interface {
	Asset(name string) (int, bool)
	SzDecimals(asset int) (int, bool)
	AllMids(ctx context.Context, dex string) (map[string]string, error)
	UserState(ctx context.Context, address string, dex string) (*info.UserState, error)
}

var _ AssetInfo = (*info.Info)(nil)

// Config for initializing the Exchange client
type Config struct {
	Network constants.Network
	// BaseURL overrides the network's API url.
	BaseURL string
	Timeout time.Duration
	Signer  signer.Signer

	// AccountAddress is the account whose positions MarketClose reads, when
	// it differs from the signer (e.g. when signing as an agent).
	AccountAddress mo.Option[common.Address]
	VaultAddress   mo.Option[common.Address]
	AgentAddress   mo.Option[common.Address]
	Builder        mo.Option[BuilderInfo]

	RateLimitCapacity int
	RateLimitRefill   float64

	// Info resolves coin names. When nil, an info client is created and its
	// asset table loaded, unless SkipInfo is set.
	Info     AssetInfo
	SkipInfo bool

	// Rest replaces the HTTP client built from the network and Timeout.
	Rest rest.ClientInterface

	Logger     *zap.Logger
	Registerer prometheus.Registerer
}

// Exchange signs and submits actions for one signing identity. It is safe
// for concurrent use.
type Exchange struct {
	network        constants.Network
	rest           rest.ClientInterface
	info           AssetInfo
	signer         signer.Signer
	admission      *admission.Controller
	defaults       DispatchOptions
	accountAddress mo.Option[common.Address]
	logger         *zap.Logger
	metrics        *metrics

	mu           sync.RWMutex
	expiresAfter mo.Option[uint64]
}

// New creates a new Exchange client
func New(ctx context.Context, cfg Config) (*Exchange, error) {
	if cfg.Signer == nil {
		return nil, errors.New("signer is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cfg.Network.APIURL()
	}

	restClient := cfg.Rest
	if restClient == nil {
		restClient = rest.New(rest.Config{
			BaseUrl: baseURL,
			Timeout: cfg.Timeout,
		})
	}

	assets := cfg.Info
	if assets == nil && !cfg.SkipInfo {
		infoClient := info.New(info.Config{Rest: restClient})
		if err := infoClient.LoadAssets(ctx); err != nil {
			return nil, fmt.Errorf("failed to load assets: %w", err)
		}
		assets = infoClient
	}

	// Instances on one registry are told apart by signer; a second instance
	// for the same signer shares its series.
	reg := cfg.Registerer
	if reg != nil {
		reg = prometheus.WrapRegistererWith(prometheus.Labels{
			"signer": addressToWire(cfg.Signer.Address()),
		}, reg)
	}

	e := &Exchange{
		network: cfg.Network,
		rest:    restClient,
		info:    assets,
		signer:  cfg.Signer,
		admission: admission.New(admission.Config{
			Capacity:   cfg.RateLimitCapacity,
			RefillRate: cfg.RateLimitRefill,
			Registerer: reg,
		}),
		defaults: DispatchOptions{
			Agent:   cfg.AgentAddress,
			Vault:   cfg.VaultAddress,
			Builder: cfg.Builder,
		},
		accountAddress: cfg.AccountAddress,
		logger:         logger.Named("exchange"),
		metrics:        newMetrics(reg),
	}

	e.logger.Info("exchange client ready",
		zap.Stringer("network", cfg.Network),
		zap.String("base_url", baseURL),
		zap.Stringer("signer", cfg.Signer.Address()),
	)
	return e, nil
}

// Mainnet creates a client for mainnet with default settings.
func Mainnet(ctx context.Context, s signer.Signer) (*Exchange, error) {
	return New(ctx, Config{Network: constants.Mainnet, Signer: s})
}

// Testnet creates a client for testnet with default settings.
func Testnet(ctx context.Context, s signer.Signer) (*Exchange, error) {
	return New(ctx, Config{Network: constants.Testnet, Signer: s})
}

func (e *Exchange) Network() constants.Network {
	return e.network
}

// Admission exposes the nonce manager and rate limiter of this identity.
func (e *Exchange) Admission() *admission.Controller {
	return e.admission
}

// Address is the account the client trades for: the vault if one is set,
// then the configured account, then the signer.
func (e *Exchange) Address() common.Address {
	if v, ok := e.defaults.Vault.Get(); ok {
		return v
	}
	if a, ok := e.accountAddress.Get(); ok {
		return a
	}
	return e.signer.Address()
}

// SetExpiresAfter makes L1 actions invalid after t. User-signed actions
// never carry an expiry.
func (e *Exchange) SetExpiresAfter(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expiresAfter = mo.Some(uint64(t.UnixMilli()))
}

// ClearExpiresAfter clears the expiration time
func (e *Exchange) ClearExpiresAfter() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expiresAfter = mo.None[uint64]()
}

func (e *Exchange) currentExpiry() mo.Option[uint64] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.expiresAfter
}

func (e *Exchange) resolveAsset(coin string) (int, error) {
	if e.info == nil {
		return 0, invalidRequest("cannot resolve %s: no asset table", coin)
	}
	asset, ok := e.info.Asset(coin)
	if !ok {
		return 0, invalidRequest("unknown coin: %s", coin)
	}
	return asset, nil
}

// submit dispatches action with the instance defaults and turns an "err"
// envelope into a *RejectedError.
func (e *Exchange) submit(ctx context.Context, action Action) (*Response, error) {
	resp, err := e.Dispatch(ctx, action, DispatchOptions{})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return resp, err
	}
	return resp, nil
}

/*//////////////////////////////////////////////////////////////
                             ORDERS
//////////////////////////////////////////////////////////////*/

// Order places a single order
func (e *Exchange) Order(
	ctx context.Context,
	order OrderRequest,
	opts ...CreateOrderOption,
) (OrderStatus, error) {
	statuses, err := e.BulkOrders(ctx, []OrderRequest{order}, opts...)
	if err != nil {
		return OrderStatus{}, err
	}
	return single(statuses)
}

// BulkOrders places multiple orders in a single action. Statuses are in
// the order of orders; a rejected order shows up in its status, not as an
// error.
func (e *Exchange) BulkOrders(
	ctx context.Context,
	orders []OrderRequest,
	opts ...CreateOrderOption,
) ([]OrderStatus, error) {
	var cfg createOrderConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(orders) == 0 {
		return nil, invalidRequest("at least one order is required")
	}

	wires := make([]OrderWire, len(orders))
	for i, order := range orders {
		wire, err := e.orderWire(order)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		wires[i] = wire
	}

	action := OrderAction{
		Orders:   wires,
		Grouping: cfg.getGrouping(),
	}
	if b, ok := cfg.builder.Get(); ok {
		action.Builder = &b
	}

	resp, err := e.Dispatch(ctx, action, DispatchOptions{})
	if err != nil {
		return nil, err
	}
	return resp.OrderStatuses()
}

// CheckOrder runs every local check BulkOrders would: coin resolution, wire
// precision and order type. It returns the *InvalidRequestError BulkOrders
// would fail with, without signing or sending anything.
func (e *Exchange) CheckOrder(order OrderRequest) error {
	_, err := e.orderWire(order)
	return err
}

func (e *Exchange) orderWire(order OrderRequest) (OrderWire, error) {
	if err := order.validate(); err != nil {
		return OrderWire{}, err
	}
	asset, err := e.resolveAsset(order.Coin)
	if err != nil {
		return OrderWire{}, err
	}
	return order.toOrderWire(asset)
}

// PlaceOrders is BulkOrders with default options.
func (e *Exchange) PlaceOrders(ctx context.Context, orders []OrderRequest) ([]OrderStatus, error) {
	return e.BulkOrders(ctx, orders)
}

// Cancel cancels a single order by order ID
func (e *Exchange) Cancel(ctx context.Context, coin string, oid int64) (CancelStatus, error) {
	statuses, err := e.BulkCancel(ctx, []CancelRequest{{Coin: coin, Oid: oid}})
	if err != nil {
		return CancelStatus{}, err
	}
	return single(statuses)
}

// BulkCancel cancels multiple orders in a single transaction
func (e *Exchange) BulkCancel(ctx context.Context, cancels []CancelRequest) ([]CancelStatus, error) {
	wires := make([]CancelWire, len(cancels))
	for i, cancel := range cancels {
		asset, err := e.resolveAsset(cancel.Coin)
		if err != nil {
			return nil, err
		}
		wires[i] = CancelWire{Asset: asset, Oid: cancel.Oid}
	}

	resp, err := e.Dispatch(ctx, CancelAction{Cancels: wires}, DispatchOptions{})
	if err != nil {
		return nil, err
	}
	return resp.CancelStatuses()
}

// CancelByCloid cancels a single order by client order id.
func (e *Exchange) CancelByCloid(ctx context.Context, coin string, cloid types.Cloid) (CancelStatus, error) {
	statuses, err := e.BulkCancelByCloid(ctx, []CancelByCloidRequest{{Coin: coin, Cloid: cloid}})
	if err != nil {
		return CancelStatus{}, err
	}
	return single(statuses)
}

func (e *Exchange) BulkCancelByCloid(ctx context.Context, cancels []CancelByCloidRequest) ([]CancelStatus, error) {
	wires := make([]CancelByCloidWire, len(cancels))
	for i, cancel := range cancels {
		asset, err := e.resolveAsset(cancel.Coin)
		if err != nil {
			return nil, err
		}
		wires[i] = CancelByCloidWire{Asset: asset, Cloid: cancel.Cloid}
	}

	resp, err := e.Dispatch(ctx, CancelByCloidAction{Cancels: wires}, DispatchOptions{})
	if err != nil {
		return nil, err
	}
	return resp.CancelStatuses()
}

// Modify replaces a resting order.
func (e *Exchange) Modify(ctx context.Context, modify ModifyRequest) (OrderStatus, error) {
	statuses, err := e.BulkModify(ctx, []ModifyRequest{modify})
	if err != nil {
		return OrderStatus{}, err
	}
	return single(statuses)
}

func (e *Exchange) BulkModify(ctx context.Context, modifies []ModifyRequest) ([]OrderStatus, error) {
	wires := make([]ModifyWire, len(modifies))
	for i, modify := range modifies {
		ref, err := modify.ref()
		if err != nil {
			return nil, err
		}
		asset, err := e.resolveAsset(modify.Order.Coin)
		if err != nil {
			return nil, err
		}
		order, err := modify.Order.toOrderWire(asset)
		if err != nil {
			return nil, fmt.Errorf("modify %d: %w", i, err)
		}
		wires[i] = ModifyWire{Oid: ref, Order: order}
	}

	resp, err := e.Dispatch(ctx, BatchModifyAction{Modifies: wires}, DispatchOptions{})
	if err != nil {
		return nil, err
	}
	return resp.OrderStatuses()
}

// MarketOpen opens a position with an aggressive immediate-or-cancel limit
// order priced slippage away from the mid.
func (e *Exchange) MarketOpen(
	ctx context.Context,
	coin string,
	isBuy bool,
	sz float64,
	opts ...MarketOrderOption,
) (OrderStatus, error) {
	cfg := defaultMarketOrderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	px, err := e.slippagePrice(ctx, coin, isBuy, cfg.slippage, cfg.px)
	if err != nil {
		return OrderStatus{}, err
	}

	return e.Order(ctx, OrderRequest{
		Coin:      coin,
		IsBuy:     isBuy,
		Sz:        sz,
		LimitPx:   px,
		OrderType: OrderType{Limit: &LimitOrder{Tif: TifIoc}},
		Cloid:     cfg.cloid,
	})
}

// MarketClose closes the position in coin, or sz of it, with a reduce only
// immediate-or-cancel order.
func (e *Exchange) MarketClose(
	ctx context.Context,
	coin string,
	opts ...MarketCloseOption,
) (OrderStatus, error) {
	cfg := defaultMarketCloseConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if e.info == nil {
		return OrderStatus{}, invalidRequest("market close needs an info client")
	}

	address := e.Address()
	state, err := e.info.UserState(ctx, addressToWire(address), utils.GetDex(coin))
	if err != nil {
		return OrderStatus{}, fmt.Errorf("failed to get user state: %w", err)
	}

	var (
		found        bool
		positionSize float64
	)
	for _, assetPos := range state.AssetPositions {
		if assetPos.Position.Coin != coin {
			continue
		}
		positionSize, err = utils.StringToFloat(assetPos.Position.Szi)
		if err != nil {
			return OrderStatus{}, fmt.Errorf("invalid position size: %w", err)
		}
		found = true
		break
	}
	if !found || positionSize == 0 {
		return OrderStatus{}, invalidRequest("no position found for coin: %s", coin)
	}

	closeSz := cfg.sz.OrElse(math.Abs(positionSize))
	isBuy := positionSize < 0

	px, err := e.slippagePrice(ctx, coin, isBuy, cfg.slippage, cfg.px)
	if err != nil {
		return OrderStatus{}, err
	}

	return e.Order(ctx, OrderRequest{
		Coin:       coin,
		IsBuy:      isBuy,
		Sz:         closeSz,
		LimitPx:    px,
		OrderType:  OrderType{Limit: &LimitOrder{Tif: TifIoc}},
		ReduceOnly: true,
		Cloid:      cfg.cloid,
	})
}

// slippagePrice applies slippage to the reference price (the mid unless
// overridden), rounds to 5 significant figures and then to the decimals the
// asset allows: 6 for perps and 8 for spot, less its size decimals.
func (e *Exchange) slippagePrice(
	ctx context.Context,
	coin string,
	isBuy bool,
	slippage float64,
	pxOverride mo.Option[float64],
) (float64, error) {
	asset, err := e.resolveAsset(coin)
	if err != nil {
		return 0, err
	}

	px, ok := pxOverride.Get()
	if !ok {
		mids, err := e.info.AllMids(ctx, utils.GetDex(coin))
		if err != nil {
			return 0, fmt.Errorf("failed to fetch mid prices: %w", err)
		}
		mid, ok := mids[coin]
		if !ok {
			return 0, invalidRequest("mid price not found for coin: %s", coin)
		}
		px, err = utils.StringToFloat(mid)
		if err != nil {
			return 0, fmt.Errorf("invalid mid price for coin %s: %w", coin, err)
		}
	}

	if isBuy {
		px *= 1 + slippage
	} else {
		px *= 1 - slippage
	}
	px = utils.RoundToSigfig(px, 5)

	baseDecimals := 6
	if asset >= constants.SPOT_ASSET_OFFSET {
		baseDecimals = 8
	}
	szDecimals, ok := e.info.SzDecimals(asset)
	if !ok {
		return 0, invalidRequest("sz decimals not found for asset: %d", asset)
	}

	return utils.RoundToDecimals(px, int64(baseDecimals-szDecimals)), nil
}

// single unwraps the only status of a one-element request.
func single[T any](statuses []T) (T, error) {
	var zero T
	if len(statuses) != 1 {
		return zero, &InvalidResponseError{
			Err: fmt.Errorf("expected 1 status, got %d", len(statuses)),
		}
	}
	return statuses[0], nil
}
