package core

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      &AppError{Type: ErrorTypeInvalidRequest, Message: "bad request"},
			expected: "invalid_request_error: bad request",
		},
		{
			name:     "with cause",
			err:      &AppError{Type: ErrorTypeInternal, Message: "send failed", Err: errors.New("smtp: 421")},
			expected: "internal_error: send failed: smtp: 421",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := NewInternalError("wrapped", originalErr)

	if !errors.Is(appErr, originalErr) {
		t.Errorf("errors.Is should find the original error")
	}
}

func TestAppError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected int
	}{
		{"explicit status code", &AppError{Type: ErrorTypeInvalidRequest, StatusCode: http.StatusUnprocessableEntity}, http.StatusUnprocessableEntity},
		{"rate limit default", &AppError{Type: ErrorTypeRateLimit}, http.StatusTooManyRequests},
		{"invalid request default", &AppError{Type: ErrorTypeInvalidRequest}, http.StatusBadRequest},
		{"not found default", &AppError{Type: ErrorTypeNotFound}, http.StatusNotFound},
		{"internal default", &AppError{Type: ErrorTypeInternal}, http.StatusInternalServerError},
		{"unknown type", &AppError{Type: "mystery"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.expected {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	if err := NewRateLimitError("slow down"); err.HTTPStatusCode() != http.StatusTooManyRequests || err.Type != ErrorTypeRateLimit {
		t.Errorf("unexpected rate limit error: %+v", err)
	}
	if err := NewNotFoundError("nope"); err.HTTPStatusCode() != http.StatusNotFound {
		t.Errorf("unexpected not found error: %+v", err)
	}
	if err := NewInvalidRequestError("bad", nil); err.HTTPStatusCode() != http.StatusBadRequest {
		t.Errorf("unexpected invalid request error: %+v", err)
	}
}

func TestAppError_Envelope(t *testing.T) {
	body, err := json.Marshal(NewRateLimitError("Too many requests. Please try again later.").Envelope())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"data":null,"success":false,"error":"Too many requests. Please try again later."}`
	if string(body) != want {
		t.Errorf("envelope = %s, want %s", body, want)
	}
}
