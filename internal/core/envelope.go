package core

// Envelope is the response wrapper every folio endpoint returns.
//
//	{"data": ..., "success": true, "message": "..."}
//	{"data": null, "success": false, "error": "..."}
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewEnvelope wraps data in a successful envelope.
func NewEnvelope[T any](data T, message string) Envelope[T] {
	return Envelope[T]{Data: data, Success: true, Message: message}
}

// NewErrorEnvelope builds a failed envelope with null data.
func NewErrorEnvelope(errMsg string) Envelope[any] {
	return Envelope[any]{Success: false, Error: errMsg}
}
