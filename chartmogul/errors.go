package chartmogul

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the ChartMogul API.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("chartmogul: %s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// ErrorType classifies the failure by HTTP status.
func (e *APIError) ErrorType() string {
	if e == nil {
		return "APIError"
	}
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return "AuthenticationError"
	case e.StatusCode == http.StatusNotFound:
		return "NotFoundError"
	case e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity:
		return "ValidationError"
	case e.StatusCode == http.StatusTooManyRequests:
		return "RateLimitError"
	case e.StatusCode >= http.StatusInternalServerError:
		return "ServerError"
	default:
		return "APIError"
	}
}

// TransportError wraps failures that happen before a response is received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("chartmogul: %s %s: %v", e.Method, e.Path, e.Err)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Timeout reports whether the failure was a deadline or network timeout.
func (e *TransportError) Timeout() bool {
	if e == nil || e.Err == nil {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ErrorType classifies the failure as a timeout, cancellation or connection error.
func (e *TransportError) ErrorType() string {
	switch {
	case e.Timeout():
		return "TimeoutError"
	case e != nil && errors.Is(e.Err, context.Canceled):
		return "CancelledError"
	default:
		return "ConnectionError"
	}
}

// DecodeError reports a response body that could not be decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("chartmogul: decode %s response: %v", e.Path, e.Err)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrorType names the failure class.
func (e *DecodeError) ErrorType() string { return "DecodeError" }

func newAPIError(method, path string, status int, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Message:    errorMessage(body),
		Retryable:  isRetryableStatus(status),
	}
}

// errorMessage extracts a human message from the error bodies ChartMogul returns,
// which are either {"message": ...}, {"error": ...} or {"errors": {...}}.
func errorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return trimmed
	}
	for _, key := range []string{"message", "error"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	if errs, ok := obj["errors"]; ok {
		encoded, err := json.Marshal(errs)
		if err == nil {
			return string(encoded)
		}
	}
	return trimmed
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
