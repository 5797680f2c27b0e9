package models

import (
	"errors"
	"fmt"
	"strings"
)

// Collaborator and request error taxonomy. Handlers map these onto HTTP
// statuses; services map raw collaborator failures onto them so no external
// error ever propagates unclassified.
var (
	// ErrModelUnavailable means the embedding extractor cannot serve any
	// request (model not loaded, endpoint down, timeout). Trips fallback mode.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrIndexUnavailable means the vector backend cannot be queried.
	// Trips fallback mode.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrStoreUnavailable means the relational store is unreachable. There is
	// no fallback catalog, so this surfaces as a 500.
	ErrStoreUnavailable = errors.New("catalog store unavailable")

	// ErrInvalidImage means the uploaded bytes are empty, oversized or not a
	// decodable image. Surfaced as a 400, never reaches extraction.
	ErrInvalidImage = errors.New("invalid image")
)

// FieldError pinpoints a single offending request field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidationError carries field-level detail for a 422 response.
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		if d.Field != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", d.Field, d.Message))
			continue
		}
		parts = append(parts, d.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Details: []FieldError{{Field: field, Message: message}}}
}

// ErrorResponse is the wire shape for all error replies.
type ErrorResponse struct {
	Error      string       `json:"error"`
	Message    string       `json:"message"`
	Details    []FieldError `json:"details"`
	StatusCode int          `json:"status_code"`
}
