package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

var errNoRoute = errors.New("ws: frame carries no routable identifier")

// identifierOf recovers the subscription identifier a data frame belongs
// to, matching what Subscription.identifier returns for the same feed.
func identifierOf(channel string, data json.RawMessage) (string, error) {
	switch channel {
	case "allMids":
		return "allMids", nil
	case "user":
		return "userEvents", nil
	case "orderUpdates":
		return "orderUpdates", nil

	case "l2Book", "bbo", "activeAssetCtx", "activeSpotAssetCtx":
		var v struct {
			Coin string `json:"coin"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return "", fmt.Errorf("decode %s frame: %w", channel, err)
		}
		if v.Coin == "" {
			return "", fmt.Errorf("%w: %s without coin", errNoRoute, channel)
		}
		if channel == "activeSpotAssetCtx" {
			channel = "activeAssetCtx"
		}
		return fmt.Sprintf("%s:%s", channel, strings.ToLower(v.Coin)), nil

	case "trades":
		var trades []Trade
		if err := json.Unmarshal(data, &trades); err != nil {
			return "", fmt.Errorf("decode trades frame: %w", err)
		}
		if len(trades) == 0 {
			return "", fmt.Errorf("%w: empty trades", errNoRoute)
		}
		return fmt.Sprintf("trades:%s", strings.ToLower(trades[0].Coin)), nil

	case "userFills", "userFundings":
		var v struct {
			User string `json:"user"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return "", fmt.Errorf("decode %s frame: %w", channel, err)
		}
		return fmt.Sprintf("%s:%s", channel, strings.ToLower(v.User)), nil

	case "candle":
		var c CandleMessage
		if err := json.Unmarshal(data, &c); err != nil {
			return "", fmt.Errorf("decode candle frame: %w", err)
		}
		return fmt.Sprintf("candle:%s,%s", strings.ToLower(c.S), c.I), nil
	}

	return "", fmt.Errorf("%w: unknown channel %q", errNoRoute, channel)
}
