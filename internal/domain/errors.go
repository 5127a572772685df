package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrPhoneNotSet is returned by verification operations that require a
	// claimed phone number before they can run.
	ErrPhoneNotSet = errors.New("phone number not set")

	// ErrCorruptData marks a stored payload that could not be decoded.
	// Should not happen under correct writers.
	ErrCorruptData = errors.New("corrupt data")

	// ErrCodeGenerationExhausted is returned when no free sync-code slot was
	// found within the retry bound. Callers should surface a retry-later
	// response; with a 90,000-code keyspace this is effectively unreachable.
	ErrCodeGenerationExhausted = errors.New("sync code generation exhausted")
)
