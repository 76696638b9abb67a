// Package calendar defines the boundary to the external calendar systems the
// negotiation core reads availability from and writes confirmed events to.
// Implementations wrap provider SDKs or HTTP APIs; the core only depends on
// the Provider interface and the error taxonomy defined here.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/meeting-negotiator/internal/timeslot"
)

// EventInput captures the fields required to create a calendar event.
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Timezone    string
	Attendees   []string
}

// Event identifies an event created on the provider side.
type Event struct {
	ID string
}

// Provider exposes the calendar operations the negotiation core depends on.
type Provider interface {
	// BusyIntervals returns the busy spans for a user inside [from, to).
	BusyIntervals(ctx context.Context, userID string, from, to time.Time) ([]timeslot.Interval, error)
	// CreateEvent creates an event on the user's calendar.
	CreateEvent(ctx context.Context, userID string, input EventInput) (Event, error)
	// DeleteEvent removes a previously created event.
	DeleteEvent(ctx context.Context, userID string, eventID string) error
}

// ErrorKind classifies provider failures so callers can decide between
// rollback, retry, and surfacing a reconnect signal.
type ErrorKind string

const (
	// KindAuthExpired indicates the user's calendar authorization lapsed and
	// must be re-established before further calls can succeed.
	KindAuthExpired ErrorKind = "auth_expired"
	// KindTransient indicates a temporary failure that may succeed on retry.
	KindTransient ErrorKind = "transient"
	// KindPermanent indicates a failure that will not resolve on its own.
	KindPermanent ErrorKind = "permanent"
)

// ProviderError wraps a calendar failure with enough context to choose a
// recovery strategy.
type ProviderError struct {
	Kind   ErrorKind
	UserID string
	Op     string
	Err    error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("calendar: %s for user %s failed (%s): %v", e.Op, e.UserID, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewProviderError constructs a classified provider error.
func NewProviderError(kind ErrorKind, op, userID string, err error) *ProviderError {
	return &ProviderError{Kind: kind, UserID: userID, Op: op, Err: err}
}

// IsAuthExpired reports whether the error chain contains an auth-expired
// provider failure.
func IsAuthExpired(err error) bool {
	var pErr *ProviderError
	return errors.As(err, &pErr) && pErr.Kind == KindAuthExpired
}

// IsTransient reports whether the error chain contains a transient provider
// failure.
func IsTransient(err error) bool {
	var pErr *ProviderError
	return errors.As(err, &pErr) && pErr.Kind == KindTransient
}
