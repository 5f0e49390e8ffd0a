// Package apperr defines the error kinds the service exposes at its HTTP
// boundary. Services and stores classify failures by wrapping one of the
// sentinel kinds; handlers map kinds to status codes exactly once.
package apperr

import "errors"

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")

	// ErrExhausted means the short code allocation retry budget ran out.
	// Server-side condition, never the caller's fault.
	ErrExhausted = errors.New("short code allocation exhausted")

	// ErrAuthInfra is a store fault during credential lookup, distinct
	// from a rejected credential.
	ErrAuthInfra = errors.New("auth infrastructure failure")
)

// Error pairs a kind with a message that is safe to return to callers.
// Store error text never goes in Message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// E builds a caller-facing error of the given kind.
func E(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Message extracts the caller-facing message from err, or returns fallback
// when err carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
