package exchange

import (
	"encoding/json"
	"fmt"

	"github.com/banky/hyperliquid-exchange/types"
)

// Response is the /exchange envelope, returned as received. An "err"
// status is still a Response; Err converts it.
type Response struct {
	Status string
	// Type and Data are present when Status == "ok".
	Type string
	Data json.RawMessage
	// ErrorMessage is present when Status == "err".
	ErrorMessage string
}

// wire-level shape:
//
//	{
//	  "status": "ok" | "err",
//	  "response": {"type": ..., "data": ...} | <string>
//	}
type rawResponse struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type rawOkBody struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal raw response: %w", err)
	}

	*r = Response{Status: raw.Status}

	switch raw.Status {
	case "ok":
		if len(raw.Response) == 0 || string(raw.Response) == "null" {
			return nil
		}
		var body rawOkBody
		if err := json.Unmarshal(raw.Response, &body); err != nil {
			return fmt.Errorf("unmarshal ok response body: %w", err)
		}
		r.Type = body.Type
		r.Data = body.Data

	case "err":
		var msg string
		if err := json.Unmarshal(raw.Response, &msg); err != nil {
			// Keep the raw payload rather than losing the reason.
			msg = string(raw.Response)
		}
		r.ErrorMessage = msg

	default:
		return fmt.Errorf("unknown response status %q", raw.Status)
	}

	return nil
}

func (r *Response) IsOK() bool {
	return r.Status == "ok"
}

// Err returns a *RejectedError for an "err" envelope and nil otherwise.
func (r *Response) Err() error {
	if r.Status == "err" {
		return &RejectedError{Message: r.ErrorMessage}
	}
	return nil
}

// OrderStatuses decodes the per-order statuses of an order or batchModify
// response, in submission order.
func (r *Response) OrderStatuses() ([]OrderStatus, error) {
	return extractStatuses[OrderStatus](r)
}

// CancelStatuses decodes the per-cancel statuses of a cancel response.
func (r *Response) CancelStatuses() ([]CancelStatus, error) {
	return extractStatuses[CancelStatus](r)
}

// extractStatuses is a generic helper that extracts the statuses slice from
// the data of an ok response.
func extractStatuses[T any](r *Response) ([]T, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	if len(r.Data) == 0 {
		return nil, &InvalidResponseError{Err: fmt.Errorf("%s response has no data", r.Type)}
	}

	var data ResponseData[T]
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return nil, &InvalidResponseError{Body: r.Data, Err: err}
	}
	return data.Statuses, nil
}

type ResponseData[T any] struct {
	Statuses []T `json:"statuses"`
}

/*//////////////////////////////////////////////////////////////
                             ORDER
//////////////////////////////////////////////////////////////*/

// OrderStatus is the outcome of one order: resting, filled, or an error.
type OrderStatus struct {
	Resting *OrderStatusResting `json:"resting,omitempty"`
	Filled  *OrderStatusFilled  `json:"filled,omitempty"`
	Error   *string             `json:"error,omitempty"`
}

type OrderStatusResting struct {
	Oid   int64        `json:"oid"`
	Cloid *types.Cloid `json:"cloid,omitempty"`
}

type OrderStatusFilled struct {
	TotalSz types.FloatString `json:"totalSz"`
	AvgPx   types.FloatString `json:"avgPx"`
	Oid     int64             `json:"oid"`
	Cloid   *types.Cloid      `json:"cloid,omitempty"`
}

// Oid is the exchange order id of a resting or filled order.
func (s OrderStatus) Oid() (int64, bool) {
	switch {
	case s.Resting != nil:
		return s.Resting.Oid, true
	case s.Filled != nil:
		return s.Filled.Oid, true
	}
	return 0, false
}

// Cloid is the client order id echoed by the exchange, if any.
func (s OrderStatus) Cloid() (types.Cloid, bool) {
	switch {
	case s.Resting != nil && s.Resting.Cloid != nil:
		return *s.Resting.Cloid, true
	case s.Filled != nil && s.Filled.Cloid != nil:
		return *s.Filled.Cloid, true
	}
	return types.Cloid{}, false
}

// Err returns the per-order rejection as a *RejectedError.
func (s OrderStatus) Err() error {
	if s.Error != nil {
		return &RejectedError{Message: *s.Error}
	}
	if s.Resting == nil && s.Filled == nil {
		return &RejectedError{Message: "empty order status"}
	}
	return nil
}

/*//////////////////////////////////////////////////////////////
                             CANCEL
//////////////////////////////////////////////////////////////*/

// CancelStatus is "success" or {"error": reason} on the wire.
type CancelStatus struct {
	Error string
}

func (c *CancelStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "success" {
			c.Error = s
		}
		return nil
	}

	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unmarshal cancel status: %w", err)
	}
	c.Error = obj.Error
	return nil
}

func (c CancelStatus) Err() error {
	if c.Error != "" {
		return &RejectedError{Message: c.Error}
	}
	return nil
}
