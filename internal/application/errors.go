package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConnectionInactive is returned when the underlying connection is not active.
	// A revoked connection freezes its sessions without altering their state.
	ErrConnectionInactive = errors.New("application: connection inactive")
	// ErrSessionTerminal is returned when a mutation targets a cancelled or expired session.
	ErrSessionTerminal = errors.New("application: session is terminal")
	// ErrConflict is returned when another actor already produced the outcome
	// this call raced for. Callers should treat it as "someone else already
	// acted", not a system fault.
	ErrConflict = errors.New("application: conflict")
	// ErrIdempotencyReplay is returned when the idempotency key of a mutating
	// request was already claimed by an earlier attempt.
	ErrIdempotencyReplay = errors.New("application: idempotency key already used")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
