// Package rest provides the JSON POST transport used for the /info and
// /exchange endpoints.
package rest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/go-resty/resty/v2"
)

type Client struct {
	baseUrl string
	http    *resty.Client
}

// ClientInterface defines the contract for REST API calls
type ClientInterface interface {
	Post(ctx context.Context, path string, body any, result any) error
}

type Config struct {
	// BaseUrl is the base URL for the API.
	// If none is provided, the mainnet url will be used
	BaseUrl string
	// Timeout bounds each request. Zero leaves it to the caller's context.
	Timeout time.Duration
}

// New creates a new client instance with the
// provided configuration.
func New(c Config) *Client {
	baseUrl := c.BaseUrl
	if baseUrl == "" {
		baseUrl = constants.MAINNET_API_URL
	}

	client := resty.
		New().
		SetBaseURL(baseUrl).
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	if c.Timeout > 0 {
		client.SetTimeout(c.Timeout)
	}

	return &Client{
		baseUrl: baseUrl,
		http:    client,
	}
}

func (c *Client) BaseURL() string {
	return c.baseUrl
}

// Post sends body as JSON to path and decodes the response into result.
// It makes exactly one attempt.
//
// Errors are typed: *TransportError when no response was received,
// *HTTPError for a non-2xx status, *DecodeError when the body does not decode.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body any,
	result any,
) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return &TransportError{Err: err}
	}

	if err := handleException(resp); err != nil {
		return err
	}

	if result == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return &DecodeError{Body: resp.Body(), Err: err}
	}

	return nil
}
