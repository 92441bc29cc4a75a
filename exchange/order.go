package exchange

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/banky/hyperliquid-exchange/internal/utils"
	"github.com/banky/hyperliquid-exchange/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/mo"
	"github.com/vmihailenco/msgpack/v5"
)

type Tif string

const (
	TifAlo Tif = "Alo"
	TifIoc Tif = "Ioc"
	TifGtc Tif = "Gtc"
)

type Tpsl string

const (
	TpslTp Tpsl = "tp"
	TpslSl Tpsl = "sl"
)

type OrderGrouping string

const (
	GroupingNa           OrderGrouping = "na"
	GroupingNormalTpsl   OrderGrouping = "normalTpsl"
	GroupingPositionTpsl OrderGrouping = "positionTpsl"
)

// OrderRequest is an order as the caller describes it, by coin name and
// with float prices. It becomes an OrderWire once the asset is resolved.
type OrderRequest struct {
	Coin       string
	IsBuy      bool
	Sz         float64
	LimitPx    float64
	OrderType  OrderType
	ReduceOnly bool
	Cloid      mo.Option[types.Cloid]
}

// OrderType holds exactly one of Limit or Trigger.
type OrderType struct {
	Limit   *LimitOrder
	Trigger *TriggerOrder
}

type LimitOrder struct {
	Tif Tif `json:"tif" msgpack:"tif"`
}

type TriggerOrder struct {
	IsMarket  bool
	TriggerPx float64
	Tpsl      Tpsl
}

type OrderWire struct {
	Asset      int           `json:"a" msgpack:"a"`
	IsBuy      bool          `json:"b" msgpack:"b"`
	LimitPx    string        `json:"p" msgpack:"p"`
	Sz         string        `json:"s" msgpack:"s"`
	ReduceOnly bool          `json:"r" msgpack:"r"`
	OrderType  OrderTypeWire `json:"t" msgpack:"t"`
	Cloid      *types.Cloid  `json:"c,omitempty" msgpack:"c,omitempty"`
}

type OrderTypeWire struct {
	Limit   *LimitOrder       `json:"limit,omitempty" msgpack:"limit,omitempty"`
	Trigger *TriggerOrderWire `json:"trigger,omitempty" msgpack:"trigger,omitempty"`
}

type TriggerOrderWire struct {
	IsMarket  bool   `json:"isMarket" msgpack:"isMarket"`
	TriggerPx string `json:"triggerPx" msgpack:"triggerPx"`
	Tpsl      Tpsl   `json:"tpsl" msgpack:"tpsl"`
}

type BuilderInfo struct {
	// Public address of the builder, lower case.
	B string `json:"b" msgpack:"b"`
	// Amount of the fee in tenths of basis points.
	// eg. 10 means 1 basis point
	F int `json:"f" msgpack:"f"`
}

// NewBuilderInfo returns the builder fee attached to orders routed through
// builder.
func NewBuilderInfo(builder common.Address, fee int) BuilderInfo {
	return BuilderInfo{B: addressToWire(builder), F: fee}
}

// Validate checks the order without resolving its coin.
func (o OrderRequest) Validate() error {
	return o.validate()
}

func (o OrderRequest) validate() error {
	if strings.TrimSpace(o.Coin) == "" {
		return invalidRequest("order: coin is required")
	}
	if o.Sz <= 0 {
		return invalidRequest("order %s: size must be positive, got %v", o.Coin, o.Sz)
	}
	if o.LimitPx <= 0 {
		return invalidRequest("order %s: limit price must be positive, got %v", o.Coin, o.LimitPx)
	}
	return o.OrderType.validate()
}

func (t OrderType) validate() error {
	switch {
	case t.Limit != nil && t.Trigger != nil:
		return invalidRequest("order type must be either limit or trigger, not both")
	case t.Limit != nil:
		switch t.Limit.Tif {
		case TifAlo, TifIoc, TifGtc:
			return nil
		}
		return invalidRequest("unknown time in force %q", t.Limit.Tif)
	case t.Trigger != nil:
		if t.Trigger.TriggerPx <= 0 {
			return invalidRequest("trigger price must be positive, got %v", t.Trigger.TriggerPx)
		}
		if t.Trigger.Tpsl != TpslTp && t.Trigger.Tpsl != TpslSl {
			return invalidRequest("unknown tpsl %q", t.Trigger.Tpsl)
		}
		return nil
	}
	return invalidRequest("order type is required")
}

// toOrderWire converts OrderRequest to OrderWire
func (o OrderRequest) toOrderWire(asset int) (OrderWire, error) {
	if err := o.validate(); err != nil {
		return OrderWire{}, err
	}

	sz, err := utils.FloatToWire(o.Sz)
	if err != nil {
		return OrderWire{}, invalidRequest("order %s: size: %v", o.Coin, err)
	}

	px, err := utils.FloatToWire(o.LimitPx)
	if err != nil {
		return OrderWire{}, invalidRequest("order %s: limit price: %v", o.Coin, err)
	}

	orderType, err := o.OrderType.toOrderTypeWire()
	if err != nil {
		return OrderWire{}, err
	}

	wire := OrderWire{
		Asset:      asset,
		IsBuy:      o.IsBuy,
		LimitPx:    px,
		Sz:         sz,
		ReduceOnly: o.ReduceOnly,
		OrderType:  orderType,
	}
	if c, ok := o.Cloid.Get(); ok {
		wire.Cloid = &c
	}
	return wire, nil
}

func (t OrderType) toOrderTypeWire() (OrderTypeWire, error) {
	if t.Limit != nil {
		return OrderTypeWire{Limit: &LimitOrder{Tif: t.Limit.Tif}}, nil
	}

	px, err := utils.FloatToWire(t.Trigger.TriggerPx)
	if err != nil {
		return OrderTypeWire{}, invalidRequest("trigger price: %v", err)
	}
	return OrderTypeWire{
		Trigger: &TriggerOrderWire{
			IsMarket:  t.Trigger.IsMarket,
			TriggerPx: px,
			Tpsl:      t.Trigger.Tpsl,
		},
	}, nil
}

/*//////////////////////////////////////////////////////////////
                          ORDER BUILDER
//////////////////////////////////////////////////////////////*/

// OrderBuilder assembles an OrderRequest step by step. Build fails unless
// side, size and price were all given.
type OrderBuilder struct {
	req  OrderRequest
	side mo.Option[bool]
	sz   mo.Option[float64]
	px   mo.Option[float64]
}

func NewOrder(coin string) *OrderBuilder {
	return &OrderBuilder{
		req: OrderRequest{
			Coin:      coin,
			OrderType: OrderType{Limit: &LimitOrder{Tif: TifGtc}},
		},
	}
}

func (b *OrderBuilder) Buy() *OrderBuilder {
	b.side = mo.Some(true)
	return b
}

func (b *OrderBuilder) Sell() *OrderBuilder {
	b.side = mo.Some(false)
	return b
}

func (b *OrderBuilder) Size(sz float64) *OrderBuilder {
	b.sz = mo.Some(sz)
	return b
}

func (b *OrderBuilder) LimitPx(px float64) *OrderBuilder {
	b.px = mo.Some(px)
	return b
}

func (b *OrderBuilder) Tif(tif Tif) *OrderBuilder {
	b.req.OrderType = OrderType{Limit: &LimitOrder{Tif: tif}}
	return b
}

// Trigger turns the order into a take profit or stop loss that fires at
// triggerPx.
func (b *OrderBuilder) Trigger(triggerPx float64, isMarket bool, tpsl Tpsl) *OrderBuilder {
	b.req.OrderType = OrderType{Trigger: &TriggerOrder{
		IsMarket:  isMarket,
		TriggerPx: triggerPx,
		Tpsl:      tpsl,
	}}
	return b
}

func (b *OrderBuilder) ReduceOnly() *OrderBuilder {
	b.req.ReduceOnly = true
	return b
}

func (b *OrderBuilder) Cloid(c types.Cloid) *OrderBuilder {
	b.req.Cloid = mo.Some(c)
	return b
}

func (b *OrderBuilder) Build() (OrderRequest, error) {
	side, ok := b.side.Get()
	if !ok {
		return OrderRequest{}, invalidRequest("order %s: side is required", b.req.Coin)
	}
	sz, ok := b.sz.Get()
	if !ok {
		return OrderRequest{}, invalidRequest("order %s: size is required", b.req.Coin)
	}
	px, ok := b.px.Get()
	if !ok {
		return OrderRequest{}, invalidRequest("order %s: limit price is required", b.req.Coin)
	}

	req := b.req
	req.IsBuy = side
	req.Sz = sz
	req.LimitPx = px
	if err := req.validate(); err != nil {
		return OrderRequest{}, err
	}
	return req, nil
}

// LimitBuy is a good-til-cancel buy.
func LimitBuy(coin string, sz, px float64) OrderRequest {
	return OrderRequest{
		Coin:      coin,
		IsBuy:     true,
		Sz:        sz,
		LimitPx:   px,
		OrderType: OrderType{Limit: &LimitOrder{Tif: TifGtc}},
	}
}

// LimitSell is a good-til-cancel sell.
func LimitSell(coin string, sz, px float64) OrderRequest {
	o := LimitBuy(coin, sz, px)
	o.IsBuy = false
	return o
}

// TriggerBuy is a reduce only market buy that fires at triggerPx, e.g. the
// stop loss of a short.
func TriggerBuy(coin string, sz, triggerPx, limitPx float64, tpsl Tpsl) OrderRequest {
	return OrderRequest{
		Coin:       coin,
		IsBuy:      true,
		Sz:         sz,
		LimitPx:    limitPx,
		ReduceOnly: true,
		OrderType: OrderType{Trigger: &TriggerOrder{
			IsMarket:  true,
			TriggerPx: triggerPx,
			Tpsl:      tpsl,
		}},
	}
}

func TriggerSell(coin string, sz, triggerPx, limitPx float64, tpsl Tpsl) OrderRequest {
	o := TriggerBuy(coin, sz, triggerPx, limitPx, tpsl)
	o.IsBuy = false
	return o
}

/*//////////////////////////////////////////////////////////////
                         CANCEL / MODIFY
//////////////////////////////////////////////////////////////*/

type CancelRequest struct {
	Coin string
	Oid  int64
}

type CancelWire struct {
	Asset int   `json:"a" msgpack:"a"`
	Oid   int64 `json:"o" msgpack:"o"`
}

type CancelByCloidRequest struct {
	Coin  string
	Cloid types.Cloid
}

type CancelByCloidWire struct {
	Asset int         `json:"asset" msgpack:"asset"`
	Cloid types.Cloid `json:"cloid" msgpack:"cloid"`
}

// ModifyRequest replaces a resting order, addressed by exchange oid or by
// client order id. Exactly one of Oid and Cloid must be set.
type ModifyRequest struct {
	Oid   mo.Option[int64]
	Cloid mo.Option[types.Cloid]
	Order OrderRequest
}

type ModifyWire struct {
	Oid   OrderRef  `json:"oid" msgpack:"oid"`
	Order OrderWire `json:"order" msgpack:"order"`
}

// OrderRef is an exchange order id or a client order id. It encodes as
// a number or as a hex string respectively.
type OrderRef struct {
	Oid   int64
	Cloid *types.Cloid
}

func (r OrderRef) MarshalJSON() ([]byte, error) {
	if r.Cloid != nil {
		return json.Marshal(r.Cloid.String())
	}
	return json.Marshal(r.Oid)
}

var _ msgpack.CustomEncoder = OrderRef{}

func (r OrderRef) EncodeMsgpack(enc *msgpack.Encoder) error {
	if r.Cloid != nil {
		return enc.EncodeString(r.Cloid.String())
	}
	return enc.EncodeInt(r.Oid)
}

func (m ModifyRequest) ref() (OrderRef, error) {
	oid, hasOid := m.Oid.Get()
	cloid, hasCloid := m.Cloid.Get()
	switch {
	case hasOid && hasCloid:
		return OrderRef{}, invalidRequest("modify: set either oid or cloid, not both")
	case hasOid:
		return OrderRef{Oid: oid}, nil
	case hasCloid:
		return OrderRef{Cloid: &cloid}, nil
	}
	return OrderRef{}, invalidRequest("modify: oid or cloid is required")
}

func (c CancelRequest) String() string {
	return fmt.Sprintf("%s#%d", c.Coin, c.Oid)
}

func (o OrderRequest) String() string {
	side := "sell"
	if o.IsBuy {
		side = "buy"
	}
	s := fmt.Sprintf("%s %s %g@%g", side, o.Coin, o.Sz, o.LimitPx)
	if o.ReduceOnly {
		s += " reduce-only"
	}
	if c, ok := o.Cloid.Get(); ok {
		s += " " + c.String()
	}
	return s
}
