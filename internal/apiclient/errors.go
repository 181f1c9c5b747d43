package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed request.
type Kind string

const (
	// KindTimeout means no response arrived within the attempt timeout.
	KindTimeout Kind = "timeout"
	// KindHTTPStatus means the server answered with a non-2xx status.
	KindHTTPStatus Kind = "http_status"
	// KindAPI means the server answered 2xx with an envelope whose success flag is false.
	KindAPI Kind = "api_error"
	// KindNetwork means the transport failed (DNS, connection reset, unreadable body).
	KindNetwork Kind = "network"
	// KindMaxRetries means the retry budget ran out without any recorded error.
	KindMaxRetries Kind = "max_retries"
)

// Error is returned by every Client call that reaches the network.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	// Original error for debugging
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Unwrap implements the error unwrapping interface
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork:
		return true
	case KindHTTPStatus:
		return e.Status == http.StatusRequestTimeout ||
			e.Status == http.StatusTooManyRequests ||
			e.Status >= http.StatusInternalServerError
	default:
		return false
	}
}

// IsRetryable reports whether err is an *Error that the retry policy retries.
func IsRetryable(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// StatusOf returns the status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func newTimeoutError(err error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Status:  http.StatusRequestTimeout,
		Code:    "TIMEOUT",
		Message: "Request timeout",
		Err:     err,
	}
}

func newHTTPStatusError(status int, message string) *Error {
	return &Error{
		Kind:    KindHTTPStatus,
		Status:  status,
		Code:    fmt.Sprintf("HTTP_%d", status),
		Message: message,
	}
}

func newAPIError(status int, message string) *Error {
	return &Error{
		Kind:    KindAPI,
		Status:  status,
		Code:    "API_ERROR",
		Message: message,
	}
}

func newNetworkError(message string, err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Code:    "NETWORK_ERROR",
		Message: message,
		Err:     err,
	}
}

func newMaxRetriesError() *Error {
	return &Error{
		Kind:    KindMaxRetries,
		Status:  http.StatusInternalServerError,
		Code:    "MAX_RETRIES",
		Message: "Request failed after retries",
	}
}
