package ws

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Subscription is a server-side feed. Listeners of subscriptions sharing an
// identifier share one server subscription.
type Subscription interface {
	channelName() string
	identifier() string
	subscriptionPayload() any
}

func userHex(a common.Address) string {
	return strings.ToLower(a.Hex())
}

type AllMidsSubscription struct{}

func (s AllMidsSubscription) channelName() string { return "allMids" }
func (s AllMidsSubscription) identifier() string  { return "allMids" }
func (s AllMidsSubscription) subscriptionPayload() any {
	return map[string]any{"type": "allMids"}
}

// L2BookSubscription subscribes to level 2 order book for a coin
type L2BookSubscription struct {
	Coin string
}

func (s L2BookSubscription) channelName() string { return "l2Book" }
func (s L2BookSubscription) identifier() string {
	return fmt.Sprintf("l2Book:%s", strings.ToLower(s.Coin))
}
func (s L2BookSubscription) subscriptionPayload() any {
	return map[string]any{"type": "l2Book", "coin": s.Coin}
}

type TradesSubscription struct {
	Coin string
}

func (s TradesSubscription) channelName() string { return "trades" }
func (s TradesSubscription) identifier() string {
	return fmt.Sprintf("trades:%s", strings.ToLower(s.Coin))
}
func (s TradesSubscription) subscriptionPayload() any {
	return map[string]any{"type": "trades", "coin": s.Coin}
}

// UserEventsSubscription can only be held once per connection; the server
// does not tag its frames with the user.
type UserEventsSubscription struct {
	User common.Address
}

func (s UserEventsSubscription) channelName() string { return "user" }
func (s UserEventsSubscription) identifier() string  { return "userEvents" }
func (s UserEventsSubscription) subscriptionPayload() any {
	return map[string]any{"type": "userEvents", "user": userHex(s.User)}
}

type UserFillsSubscription struct {
	User common.Address
}

func (s UserFillsSubscription) channelName() string { return "userFills" }
func (s UserFillsSubscription) identifier() string {
	return fmt.Sprintf("userFills:%s", userHex(s.User))
}
func (s UserFillsSubscription) subscriptionPayload() any {
	return map[string]any{"type": "userFills", "user": userHex(s.User)}
}

type CandleSubscription struct {
	Coin     string
	Interval string
}

func (s CandleSubscription) channelName() string { return "candle" }
func (s CandleSubscription) identifier() string {
	return fmt.Sprintf("candle:%s,%s", strings.ToLower(s.Coin), s.Interval)
}
func (s CandleSubscription) subscriptionPayload() any {
	return map[string]any{"type": "candle", "coin": s.Coin, "interval": s.Interval}
}

// OrderUpdatesSubscription streams status changes of the user's orders,
// including the cloid each order was placed with. Like userEvents it can
// only be held once per connection.
type OrderUpdatesSubscription struct {
	User common.Address
}

func (s OrderUpdatesSubscription) channelName() string { return "orderUpdates" }
func (s OrderUpdatesSubscription) identifier() string  { return "orderUpdates" }
func (s OrderUpdatesSubscription) subscriptionPayload() any {
	return map[string]any{"type": "orderUpdates", "user": userHex(s.User)}
}

type UserFundingsSubscription struct {
	User common.Address
}

func (s UserFundingsSubscription) channelName() string { return "userFundings" }
func (s UserFundingsSubscription) identifier() string {
	return fmt.Sprintf("userFundings:%s", userHex(s.User))
}
func (s UserFundingsSubscription) subscriptionPayload() any {
	return map[string]any{"type": "userFundings", "user": userHex(s.User)}
}

// BboSubscription subscribes to best bid/offer for a coin
type BboSubscription struct {
	Coin string
}

func (s BboSubscription) channelName() string { return "bbo" }
func (s BboSubscription) identifier() string  { return fmt.Sprintf("bbo:%s", strings.ToLower(s.Coin)) }
func (s BboSubscription) subscriptionPayload() any {
	return map[string]any{"type": "bbo", "coin": s.Coin}
}

// ActiveAssetCtxSubscription covers both perp and spot contexts; the server
// answers on activeAssetCtx or activeSpotAssetCtx.
type ActiveAssetCtxSubscription struct {
	Coin string
}

func (s ActiveAssetCtxSubscription) channelName() string { return "activeAssetCtx" }
func (s ActiveAssetCtxSubscription) identifier() string {
	return fmt.Sprintf("activeAssetCtx:%s", strings.ToLower(s.Coin))
}
func (s ActiveAssetCtxSubscription) subscriptionPayload() any {
	return map[string]any{"type": "activeAssetCtx", "coin": s.Coin}
}

// exclusive reports whether only one listener may hold identifier.
func exclusive(identifier string) bool {
	return identifier == "userEvents" || identifier == "orderUpdates"
}
