package exchange

import (
	"errors"
	"fmt"

	"github.com/banky/hyperliquid-exchange/admission"
	"github.com/banky/hyperliquid-exchange/rest"
)

// InvalidRequestError is caller input rejected before anything was signed.
// No nonce was consumed.
type InvalidRequestError struct {
	Msg string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Msg
}

func invalidRequest(format string, args ...any) *InvalidRequestError {
	return &InvalidRequestError{Msg: fmt.Sprintf(format, args...)}
}

// SigningError means the digest could not be computed or the signer
// refused it. Nothing was sent.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing failed: %v", e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// TransportError means no HTTP response was received. The action may or may
// not have reached the exchange; its nonce is spent either way.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx status. Body is the raw response body.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, string(e.Body))
}

// InvalidResponseError is a 2xx response that is not a valid envelope.
type InvalidResponseError struct {
	Body []byte
	Err  error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response: %v: %s", e.Err, string(e.Body))
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}

// RejectedError is a completed round trip in which the exchange refused the
// action, either for the whole envelope or for a single order.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "rejected: " + e.Message
}

// classifyPostError maps rest errors onto the exchange taxonomy.
func classifyPostError(err error) error {
	var (
		httpErr   *rest.HTTPError
		decodeErr *rest.DecodeError
	)
	switch {
	case errors.As(err, &httpErr):
		return &HTTPError{StatusCode: httpErr.StatusCode, Body: httpErr.Body}
	case errors.As(err, &decodeErr):
		return &InvalidResponseError{Body: decodeErr.Body, Err: decodeErr.Err}
	}
	var transportErr *rest.TransportError
	if errors.As(err, &transportErr) {
		return &TransportError{Err: transportErr.Err}
	}
	return &TransportError{Err: err}
}

// outcome is the metrics label for the result of a dispatch.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		invalid   *InvalidRequestError
		signing   *SigningError
		transport *TransportError
		status    *HTTPError
		response  *InvalidResponseError
		rejected  *RejectedError
		limited   *admission.RateLimitedError
	)
	switch {
	case errors.As(err, &invalid):
		return "invalid"
	case errors.As(err, &signing):
		return "signing_failed"
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &status):
		return "http"
	case errors.As(err, &response):
		return "invalid_response"
	case errors.As(err, &rejected):
		return "rejected"
	case errors.As(err, &limited):
		return "rate_limited"
	}
	return "error"
}
