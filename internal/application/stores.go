package application

import (
	"context"
	"time"

	"github.com/example/meeting-negotiator/internal/availability"
	"github.com/example/meeting-negotiator/internal/persistence"
	"github.com/example/meeting-negotiator/internal/timeslot"
)

// ConnectionStore captures the connection and permission lookups the
// services need. Implementations must return current state on every call;
// services never cache permission snapshots across calls.
type ConnectionStore interface {
	GetConnection(ctx context.Context, id string) (persistence.Connection, error)
	GetPermission(ctx context.Context, connectionID, grantorID string) (persistence.Permission, error)
}

// SessionStore captures the negotiation session persistence interactions.
type SessionStore interface {
	CreateSession(ctx context.Context, session persistence.NegotiationSession) error
	GetSession(ctx context.Context, id string) (persistence.NegotiationSession, error)
	UpdateSessionStatus(ctx context.Context, id string, status persistence.SessionStatus, updatedAt time.Time) error
	SetOutcomeIfAbsent(ctx context.Context, sessionID string, outcome persistence.Outcome, updatedAt time.Time) (bool, error)
}

// MessageStore captures the session message persistence interactions.
type MessageStore interface {
	CreateMessage(ctx context.Context, message persistence.Message) error
	LatestProposalMessage(ctx context.Context, sessionID string) (persistence.Message, error)
	ListMessages(ctx context.Context, sessionID string) ([]persistence.Message, error)
}

// IdempotencyStore registers claimed idempotency keys.
type IdempotencyStore interface {
	RegisterIfAbsent(ctx context.Context, key, operation string, createdAt time.Time) (bool, error)
}

// NotificationStore captures the notification sink operations.
type NotificationStore interface {
	CreateNotification(ctx context.Context, notification persistence.Notification) error
	GetNotification(ctx context.Context, id string) (persistence.Notification, error)
	MarkActionability(ctx context.Context, id string, requiresAction bool, actionRef string, updatedAt time.Time) error
	ResolveNotification(ctx context.Context, id string, updatedAt time.Time) error
}

// ProposalGenerator computes mutual candidate windows for two participants.
type ProposalGenerator interface {
	GenerateMutualProposals(ctx context.Context, params availability.MutualProposalParams) ([]timeslot.Window, error)
}

// DecisionNotifier informs a participant about a pending decision.
type DecisionNotifier interface {
	NotifyPendingDecision(ctx context.Context, params PendingDecisionParams) (string, error)
}
