package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a record with the same unique key already exists.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when stored data would violate a CHECK constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced record is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrStaleState is returned when a conditional update lost to a
	// concurrent writer that already settled the record.
	ErrStaleState = errors.New("persistence: stale state")
)
