package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/banky/hyperliquid-exchange/admission"
	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/banky/hyperliquid-exchange/info"
	"github.com/banky/hyperliquid-exchange/signer"
	"github.com/banky/hyperliquid-exchange/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/maxatome/go-testdeep/td"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/mo"
	"go.uber.org/zap/zaptest"
)

type fakeAssets struct {
	assets   map[string]int
	decimals map[int]int
	mids     map[string]string
	state    *info.UserState
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{
		assets:   map[string]int{"BTC": 0, "ETH": 1, "PURR/USDC": 10000},
		decimals: map[int]int{0: 5, 1: 4, 10000: 0},
		mids:     map[string]string{"BTC": "60000", "ETH": "2000", "PURR/USDC": "0.2"},
		state:    &info.UserState{},
	}
}

func (f *fakeAssets) Asset(name string) (int, bool) {
	a, ok := f.assets[name]
	return a, ok
}

func (f *fakeAssets) SzDecimals(asset int) (int, bool) {
	d, ok := f.decimals[asset]
	return d, ok
}

func (f *fakeAssets) AllMids(context.Context, string) (map[string]string, error) {
	return f.mids, nil
}

func (f *fakeAssets) UserState(context.Context, string, string) (*info.UserState, error) {
	return f.state, nil
}

// recorder is an /exchange endpoint that keeps every body it receives.
type recorder struct {
	mu       sync.Mutex
	bodies   [][]byte
	status   int
	response string
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	r.bodies = append(r.bodies, body)
	status, response := r.status, r.response
	r.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, response)
}

func (r *recorder) requests() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodies
}

func (r *recorder) last(t testing.TB) map[string]any {
	t.Helper()
	bodies := r.requests()
	if len(bodies) == 0 {
		t.Fatal("no request received")
	}
	var out map[string]any
	if err := json.Unmarshal(bodies[len(bodies)-1], &out); err != nil {
		t.Fatalf("invalid request body %s: %v", bodies[len(bodies)-1], err)
	}
	return out
}

const restingResponse = `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":42}}]}}}`

func newTestExchange(t *testing.T, rec *recorder, mods ...func(*Config)) *Exchange {
	t.Helper()
	server := httptest.NewServer(rec)
	t.Cleanup(server.Close)

	cfg := Config{
		Network: constants.Mainnet,
		BaseURL: server.URL,
		Signer:  testSigner(t),
		Info:    newFakeAssets(),
		Logger:  zaptest.NewLogger(t),
	}
	for _, mod := range mods {
		mod(&cfg)
	}

	e, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestDispatchPayload(t *testing.T) {
	rec := &recorder{response: restingResponse}
	e := newTestExchange(t, rec)

	status, err := e.Order(context.Background(), LimitBuy("ETH", 1, 2000))
	td.Require(t).CmpNoError(err)
	oid, ok := status.Oid()
	td.Cmp(t, ok, true)
	td.Cmp(t, oid, int64(42))

	body := rec.last(t)
	td.Cmp(t, body, td.JSON(`{
		"action": {
			"type": "order",
			"orders": [{"a":1,"b":true,"p":"2000","s":"1","r":false,"t":{"limit":{"tif":"Gtc"}}}],
			"grouping": "na"
		},
		"signature": Re("^[0-9a-f]{130}$"),
		"nonce": NotZero(),
		"vaultAddress": null
	}`))

	// The type tag is the first key on the wire.
	raw := rec.requests()[0]
	td.Cmp(t, string(raw), td.Contains(`"action":{"type":"order",`))

	// The posted signature recovers to the signer over the posted nonce.
	sig, err := signer.FromHex(body["signature"].(string))
	td.Require(t).CmpNoError(err)
	nonce := uint64(body["nonce"].(float64))
	td.Cmp(t, nonce, e.Admission().Nonces().Last())

	order, err := LimitBuy("ETH", 1, 2000).toOrderWire(1)
	td.Require(t).CmpNoError(err)
	digest, err := signingDigest(
		OrderAction{Orders: []OrderWire{order}, Grouping: GroupingNa},
		constants.Mainnet, nonce, noVault(), noExpiry(),
	)
	td.Require(t).CmpNoError(err)
	addr, err := sig.Recover(digest)
	td.CmpNoError(t, err)
	td.Cmp(t, addr, testSigner(t).Address())
}

func TestDispatchVaultAndExpiry(t *testing.T) {
	vault := common.HexToAddress("0x1719884EB866CB12B2287399B15F7DB5E7D775EA")
	rec := &recorder{response: `{"status":"ok","response":{"type":"default"}}`}
	e := newTestExchange(t, rec, func(cfg *Config) {
		cfg.VaultAddress = mo.Some(vault)
	})

	expiry := time.UnixMilli(1_900_000_000_000)
	e.SetExpiresAfter(expiry)

	_, err := e.UpdateLeverage(context.Background(), 5, "BTC", true)
	td.Require(t).CmpNoError(err)

	body := rec.last(t)
	td.Cmp(t, body, td.SuperMapOf(map[string]any{
		"vaultAddress": "0x1719884eb866cb12b2287399b15f7db5e7d775ea",
		"expiresAfter": float64(1_900_000_000_000),
		"action": map[string]any{
			"type":     "updateLeverage",
			"asset":    float64(0),
			"isCross":  true,
			"leverage": float64(5),
		},
	}, nil))

	// Both are part of the signed connection id.
	sig, err := signer.FromHex(body["signature"].(string))
	td.Require(t).CmpNoError(err)
	digest, err := signingDigest(
		UpdateLeverageAction{Asset: 0, IsCross: true, Leverage: 5},
		constants.Mainnet,
		uint64(body["nonce"].(float64)),
		mo.Some(vault),
		mo.Some(uint64(expiry.UnixMilli())),
	)
	td.Require(t).CmpNoError(err)
	addr, err := sig.Recover(digest)
	td.CmpNoError(t, err)
	td.Cmp(t, addr, e.signer.Address())

	// User-signed actions drop both.
	_, err = e.UsdSend(context.Background(), common.HexToAddress("0x5e9ee1089755c3435139848e47e6635505d5a13a"), 1)
	td.Require(t).CmpNoError(err)

	body = rec.last(t)
	td.Cmp(t, body["vaultAddress"], nil)
	td.Cmp(t, body, td.Not(td.ContainsKey("expiresAfter")))
	td.Cmp(t, body["action"], td.SuperMapOf(map[string]any{
		"type":             "usdSend",
		"hyperliquidChain": "Mainnet",
		"signatureChainId": "0xa4b1",
		"destination":      "0x5e9ee1089755c3435139848e47e6635505d5a13a",
		"amount":           "1",
		"time":             body["nonce"],
	}, nil))

	e.ClearExpiresAfter()
	_, err = e.UpdateLeverage(context.Background(), 5, "BTC", true)
	td.Require(t).CmpNoError(err)
	td.Cmp(t, rec.last(t), td.Not(td.ContainsKey("expiresAfter")))
}

func TestDispatchAgentWrap(t *testing.T) {
	agent := common.HexToAddress("0x00000000000000000000000000000000000000Aa")
	rec := &recorder{response: `{"status":"ok","response":{"type":"cancel","data":{"statuses":["success"]}}}`}
	e := newTestExchange(t, rec, func(cfg *Config) {
		cfg.Network = constants.Testnet
		cfg.AgentAddress = mo.Some(agent)
	})

	status, err := e.Cancel(context.Background(), "ETH", 7)
	td.Require(t).CmpNoError(err)
	td.CmpNoError(t, status.Err())

	body := rec.last(t)
	td.Cmp(t, body["action"], td.JSON(`{
		"type": "agent",
		"agentAddress": "0x00000000000000000000000000000000000000aa",
		"agentAction": {"type": "cancel", "cancels": [{"a": 1, "o": 7}]},
		"source": "b"
	}`))

	// The signature covers the inner cancel, not the wrapper.
	sig, err := signer.FromHex(body["signature"].(string))
	td.Require(t).CmpNoError(err)
	digest, err := signingDigest(
		CancelAction{Cancels: []CancelWire{{Asset: 1, Oid: 7}}},
		constants.Testnet, uint64(body["nonce"].(float64)), noVault(), noExpiry(),
	)
	td.Require(t).CmpNoError(err)
	addr, err := sig.Recover(digest)
	td.CmpNoError(t, err)
	td.Cmp(t, addr, e.signer.Address())
}

func TestDispatchBuilder(t *testing.T) {
	rec := &recorder{response: restingResponse}
	builder := NewBuilderInfo(common.HexToAddress("0x00000000000000000000000000000000000000Bb"), 10)
	e := newTestExchange(t, rec, func(cfg *Config) {
		cfg.Builder = mo.Some(builder)
	})

	_, err := e.Order(context.Background(), LimitSell("BTC", 0.1, 70000))
	td.Require(t).CmpNoError(err)
	td.Cmp(t, rec.last(t)["action"], td.SuperMapOf(map[string]any{
		"builder": map[string]any{"b": "0x00000000000000000000000000000000000000bb", "f": float64(10)},
	}, nil))

	// A per-order builder wins over the default.
	own := NewBuilderInfo(common.HexToAddress("0x00000000000000000000000000000000000000Cc"), 1)
	_, err = e.Order(context.Background(), LimitSell("BTC", 0.1, 70000), WithOrderBuilderInfo(own))
	td.Require(t).CmpNoError(err)
	td.Cmp(t, rec.last(t)["action"], td.SuperMapOf(map[string]any{
		"builder": map[string]any{"b": "0x00000000000000000000000000000000000000cc", "f": float64(1)},
	}, nil))

	// Non-order actions never carry one.
	_, err = e.CreateSubAccount(context.Background(), "sub")
	td.Require(t).CmpNoError(err)
	td.Cmp(t, rec.last(t)["action"], td.Not(td.ContainsKey("builder")))
}

func TestDispatchErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid request sends nothing", func(t *testing.T) {
		rec := &recorder{response: restingResponse}
		e := newTestExchange(t, rec)

		_, err := e.Order(ctx, LimitBuy("DOGE", 1, 1))
		var invalid *InvalidRequestError
		td.Cmp(t, errors.As(err, &invalid), true, "unknown coin")

		_, err = e.Order(ctx, OrderRequest{Coin: "ETH", IsBuy: true, Sz: 0, LimitPx: 1, OrderType: OrderType{Limit: &LimitOrder{Tif: TifGtc}}})
		td.Cmp(t, errors.As(err, &invalid), true, "zero size")

		_, err = e.Modify(ctx, ModifyRequest{Order: LimitBuy("ETH", 1, 1)})
		td.Cmp(t, errors.As(err, &invalid), true, "modify without a reference")

		td.Cmp(t, rec.requests(), td.Len(0))
		td.Cmp(t, e.Admission().Nonces().Last(), uint64(0), "no nonce consumed")
	})

	t.Run("rate limited sends nothing", func(t *testing.T) {
		rec := &recorder{response: restingResponse}
		e := newTestExchange(t, rec, func(cfg *Config) {
			cfg.RateLimitCapacity = 1
			cfg.RateLimitRefill = 1
		})

		_, err := e.UsdSend(ctx, common.Address{}, 1)
		var limited *admission.RateLimitedError
		td.Require(t).Cmp(errors.As(err, &limited), true)
		td.Cmp(t, limited.Requested, constants.WEIGHT_TRANSFER)
		td.Cmp(t, rec.requests(), td.Len(0))
	})

	t.Run("http error keeps the body", func(t *testing.T) {
		rec := &recorder{status: http.StatusUnprocessableEntity, response: `Failed to deserialize the JSON body`}
		e := newTestExchange(t, rec)

		_, err := e.Order(ctx, LimitBuy("ETH", 1, 2000))
		var httpErr *HTTPError
		td.Require(t).Cmp(errors.As(err, &httpErr), true)
		td.Cmp(t, httpErr.StatusCode, http.StatusUnprocessableEntity)
		td.Cmp(t, string(httpErr.Body), "Failed to deserialize the JSON body")
	})

	t.Run("invalid response", func(t *testing.T) {
		rec := &recorder{response: `{"status":"pending"}`}
		e := newTestExchange(t, rec)

		_, err := e.Order(ctx, LimitBuy("ETH", 1, 2000))
		var invalid *InvalidResponseError
		td.Cmp(t, errors.As(err, &invalid), true)
	})

	t.Run("transport", func(t *testing.T) {
		rec := &recorder{}
		server := httptest.NewServer(rec)
		server.Close()

		e := newTestExchange(t, rec, func(cfg *Config) {
			cfg.BaseURL = server.URL
		})
		_, err := e.Order(ctx, LimitBuy("ETH", 1, 2000))
		var transport *TransportError
		td.Cmp(t, errors.As(err, &transport), true)
	})

	t.Run("rejected envelope", func(t *testing.T) {
		rec := &recorder{response: `{"status":"err","response":"Insufficient margin to place order."}`}
		e := newTestExchange(t, rec)

		resp, err := e.Dispatch(ctx, ScheduleCancelAction{}, DispatchOptions{})
		td.Require(t).CmpNoError(err, "Dispatch returns the envelope unchanged")
		td.Cmp(t, resp.Status, "err")

		_, err = e.ScheduleCancel(ctx)
		var rejected *RejectedError
		td.Require(t).Cmp(errors.As(err, &rejected), true)
		td.Cmp(t, rejected.Message, "Insufficient margin to place order.")
	})

	t.Run("signing failure", func(t *testing.T) {
		rec := &recorder{response: restingResponse}
		failing := signer.NewRemoteSigner(common.Address{}, func(context.Context, common.Hash) ([]byte, error) {
			return nil, signer.ErrUnavailable
		})
		e := newTestExchange(t, rec, func(cfg *Config) {
			cfg.Signer = failing
		})

		_, err := e.Order(ctx, LimitBuy("ETH", 1, 2000))
		var signing *SigningError
		td.Require(t).Cmp(errors.As(err, &signing), true)
		td.Cmp(t, errors.Is(err, signer.ErrUnavailable), true)
		td.Cmp(t, rec.requests(), td.Len(0))
	})
}

func TestDispatchMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := &recorder{response: restingResponse}
	e := newTestExchange(t, rec, func(cfg *Config) {
		cfg.Registerer = reg
	})

	_, err := e.Order(context.Background(), LimitBuy("ETH", 1, 2000))
	td.CmpNoError(t, err)
	_, err = e.Order(context.Background(), LimitBuy("DOGE", 1, 2000))
	td.CmpError(t, err)
	_, err = e.Dispatch(context.Background(), OrderAction{Grouping: GroupingNa}, DispatchOptions{})
	td.CmpError(t, err)

	td.Cmp(t, testutil.ToFloat64(e.metrics.actions.WithLabelValues("order", "ok")), 1.0)
	td.Cmp(t, testutil.ToFloat64(e.metrics.actions.WithLabelValues("order", "invalid")), 1.0)
	td.Cmp(t, testutil.CollectAndCount(reg, "exchange_dispatch_seconds"), 1)
}

func TestExchangesShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := &recorder{response: restingResponse}
	useReg := func(cfg *Config) { cfg.Registerer = reg }

	first := newTestExchange(t, rec, useReg)
	other, err := signer.NewPrivateKeySignerFromHex("1111111111111111111111111111111111111111111111111111111111111111")
	td.Require(t).CmpNoError(err)
	second := newTestExchange(t, rec, useReg, func(cfg *Config) { cfg.Signer = other })
	// Same signer again: no panic, same series as first.
	third := newTestExchange(t, rec, useReg)

	for _, e := range []*Exchange{first, second, third} {
		_, err := e.Order(context.Background(), LimitBuy("ETH", 1, 2000))
		td.CmpNoError(t, err)
	}

	td.Cmp(t, testutil.ToFloat64(first.metrics.actions.WithLabelValues("order", "ok")), 2.0)
	td.Cmp(t, testutil.ToFloat64(second.metrics.actions.WithLabelValues("order", "ok")), 1.0)
	td.Cmp(t, testutil.CollectAndCount(reg, "exchange_actions_total"), 2)
	td.Cmp(t, testutil.CollectAndCount(reg, "admission_weight_total"), 2)
}

func TestCheckOrder(t *testing.T) {
	rec := &recorder{response: restingResponse}
	e := newTestExchange(t, rec)

	td.CmpNoError(t, e.CheckOrder(LimitBuy("BTC", 0.01, 60000)))

	for name, order := range map[string]OrderRequest{
		"unknown coin":   LimitBuy("NOPE", 1, 1),
		"size precision": LimitBuy("ETH", 0.000000001, 2000),
		"no order type":  {Coin: "ETH", IsBuy: true, Sz: 1, LimitPx: 2000},
	} {
		td.Cmp(t, e.CheckOrder(order), td.Isa(&InvalidRequestError{}), name)
	}
	td.Cmp(t, rec.requests(), td.Len(0), "checking never posts")
}

func TestConcurrentDispatchUsesDistinctNonces(t *testing.T) {
	const workers = 8
	rec := &recorder{response: restingResponse}
	e := newTestExchange(t, rec)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Order(context.Background(), LimitBuy("ETH", 1, 2000)); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	seen := map[float64]bool{}
	for _, raw := range rec.requests() {
		var body struct {
			Nonce float64 `json:"nonce"`
		}
		td.Require(t).CmpNoError(json.Unmarshal(raw, &body))
		td.Cmp(t, seen[body.Nonce], false, "nonce %v reused", body.Nonce)
		seen[body.Nonce] = true
	}
	td.Cmp(t, seen, td.Len(workers))
}

func TestMarketOpenPricing(t *testing.T) {
	rec := &recorder{response: restingResponse}
	e := newTestExchange(t, rec)

	_, err := e.MarketOpen(context.Background(), "ETH", true, 0.5)
	td.Require(t).CmpNoError(err)

	// 2000 * 1.05 at 5 significant figures and 2 decimals.
	td.Cmp(t, rec.last(t)["action"], td.SuperMapOf(map[string]any{
		"orders": []any{map[string]any{
			"a": float64(1),
			"b": true,
			"p": "2100",
			"s": "0.5",
			"r": false,
			"t": map[string]any{"limit": map[string]any{"tif": "Ioc"}},
		}},
	}, nil))

	_, err = e.MarketOpen(context.Background(), "PURR/USDC", false, 100, WithMarketOrderSlippage(0.01))
	td.Require(t).CmpNoError(err)
	order := rec.last(t)["action"].(map[string]any)["orders"].([]any)[0].(map[string]any)
	td.Cmp(t, order["a"], float64(10000))
	td.Cmp(t, order["p"], "0.198")
}

func TestMarketClose(t *testing.T) {
	rec := &recorder{response: restingResponse}
	assets := newFakeAssets()
	assets.state = &info.UserState{AssetPositions: []info.AssetPosition{
		{Position: info.Position{Coin: "BTC", Szi: "-0.25"}},
	}}
	cloid := types.HexToCloid("0x000000000000000000000000000000ff")

	e := newTestExchange(t, rec, func(cfg *Config) {
		cfg.Info = assets
	})

	_, err := e.MarketClose(context.Background(), "BTC", WithMarketCloseCloid(cloid))
	td.Require(t).CmpNoError(err)

	order := rec.last(t)["action"].(map[string]any)["orders"].([]any)[0].(map[string]any)
	td.Cmp(t, order, td.SuperMapOf(map[string]any{
		"b": true,
		"s": "0.25",
		"r": true,
		"p": "63000",
		"c": "0x000000000000000000000000000000ff",
	}, nil))

	_, err = e.MarketClose(context.Background(), "ETH")
	var invalid *InvalidRequestError
	td.Cmp(t, errors.As(err, &invalid), true, "no ETH position")
}
