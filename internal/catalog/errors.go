package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a non-2xx response from the catalog API.
// Message and ErrorCode are extracted from the error body when present.
type APIError struct {
	StatusCode int
	Endpoint   string
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("catalog API %s returned %d (%s): %s", e.Endpoint, e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("catalog API %s returned %d", e.Endpoint, e.StatusCode)
}

// IsUnauthorized reports whether err is a credential failure (401/403).
// Unauthorized aborts the whole run; no retry makes a bad token valid.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsNotFound reports whether err is a 404. For optional entity kinds
// (volumes) this means "not supported by this installation" and is treated
// as an empty result, not an error.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsTransient reports whether err is worth retrying: 5xx and 429 responses,
// plus transport-level failures (timeouts, connection resets). Context
// cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	// Anything else that reached us is a transport failure.
	return true
}
