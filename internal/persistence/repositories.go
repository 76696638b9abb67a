package persistence

import (
	"context"
	"time"
)

// ConnectionRepository exposes read access to connections and their
// permission records. Permission lookups are issued fresh on every mutating
// call; callers never cache the result across calls.
type ConnectionRepository interface {
	CreateConnection(ctx context.Context, connection Connection) error
	GetConnection(ctx context.Context, id string) (Connection, error)
	UpdateConnectionStatus(ctx context.Context, id string, status ConnectionStatus, updatedAt time.Time) error
	GetPermission(ctx context.Context, connectionID, grantorID string) (Permission, error)
	PutPermission(ctx context.Context, permission Permission) error
}

// SessionRepository stores negotiation sessions. SetOutcomeIfAbsent is the
// single atomic conditional write establishing the exactly-once outcome
// guarantee; it must not be emulated with a read-then-write.
type SessionRepository interface {
	CreateSession(ctx context.Context, session NegotiationSession) error
	GetSession(ctx context.Context, id string) (NegotiationSession, error)
	UpdateSessionStatus(ctx context.Context, id string, status SessionStatus, updatedAt time.Time) error
	// SetOutcomeIfAbsent atomically records the outcome and flips the session
	// to confirmed, but only when no outcome has been written yet. The
	// boolean reports whether this call won the write.
	SetOutcomeIfAbsent(ctx context.Context, sessionID string, outcome Outcome, updatedAt time.Time) (bool, error)
}

// MessageRepository stores the exchange log of a session.
type MessageRepository interface {
	CreateMessage(ctx context.Context, message Message) error
	// LatestProposalMessage returns the most recent proposal message of the
	// session, or ErrNotFound when none has been issued.
	LatestProposalMessage(ctx context.Context, sessionID string) (Message, error)
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)
}

// NotificationRepository stores actionable notifications.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification Notification) error
	GetNotification(ctx context.Context, id string) (Notification, error)
	MarkActionability(ctx context.Context, id string, requiresAction bool, actionRef string, updatedAt time.Time) error
	ResolveNotification(ctx context.Context, id string, updatedAt time.Time) error
}

// IdempotencyRepository records claimed idempotency keys.
type IdempotencyRepository interface {
	// RegisterIfAbsent claims the (key, operation) pair. The boolean reports
	// whether this call performed the first registration; repeated calls
	// return false without side effects.
	RegisterIfAbsent(ctx context.Context, key, operation string, createdAt time.Time) (bool, error)
}
