package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// HTTPError is a response with a non-2xx status. Body is kept verbatim;
// Code and Msg are filled when the body is a {code, msg, data} object.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	Code       string
	Msg        string
	Data       any
}

func (e *HTTPError) Error() string {
	kind := "client"
	if e.IsServerError() {
		kind = "server"
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s error (status %d): %s", kind, e.StatusCode, e.Msg)
	}
	return fmt.Sprintf("%s error (status %d): %s", kind, e.StatusCode, string(e.Body))
}

func (e *HTTPError) IsServerError() bool {
	return e.StatusCode >= 500
}

// TransportError means no HTTP response was received. The request may or
// may not have reached the server.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError means a 2xx body did not decode into the expected type.
type DecodeError struct {
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v: %s", e.Err, string(e.Body))
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type errorResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

func handleException(resp *resty.Response) error {
	statusCode := resp.StatusCode()

	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	httpErr := &HTTPError{
		StatusCode: statusCode,
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}

	if statusCode < 500 {
		var errResp errorResponse
		if err := json.Unmarshal(resp.Body(), &errResp); err == nil {
			httpErr.Code = errResp.Code
			httpErr.Msg = errResp.Msg
			httpErr.Data = errResp.Data
		}
	}

	return httpErr
}
