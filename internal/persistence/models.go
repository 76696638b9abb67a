package persistence

import "time"

// ConnectionStatus enumerates the lifecycle states of a connection.
type ConnectionStatus string

const (
	ConnectionPending ConnectionStatus = "pending"
	ConnectionActive  ConnectionStatus = "active"
	ConnectionRevoked ConnectionStatus = "revoked"
)

// Connection is the durable relationship between two account holders that
// gates what one may request of the other.
type Connection struct {
	ID            string
	InitiatorID   string
	CounterpartID string
	Status        ConnectionStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Permission is one participant's capability grant within a connection.
// GrantorID identifies the account holder who issued the grant: the scopes
// describe what the other participant may do, and the constraints protect
// the grantor's calendar (working hours, notice, duration bounds).
type Permission struct {
	ConnectionID string
	GrantorID    string
	Scopes       []string
	Constraints  map[string]any
	UpdatedAt    time.Time
}

// SessionStatus enumerates the negotiation session state machine.
type SessionStatus string

const (
	SessionPending     SessionStatus = "pending"
	SessionNegotiating SessionStatus = "negotiating"
	SessionConfirmed   SessionStatus = "confirmed"
	SessionExpired     SessionStatus = "expired"
	SessionCancelled   SessionStatus = "cancelled"
)

// Outcome is the single confirmed result of a negotiation session.
type Outcome struct {
	Start              time.Time
	End                time.Time
	Timezone           string
	InitiatorEventID   string
	CounterpartEventID string
	ConfirmedBy        string
	ConfirmedAt        time.Time
}

// NegotiationSession is a connection-scoped exchange working toward one Outcome.
type NegotiationSession struct {
	ID            string
	ConnectionID  string
	InitiatorID   string
	CounterpartID string
	Status        SessionStatus
	TTLExpiresAt  *time.Time
	Outcome       *Outcome
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MessageKind enumerates the message types exchanged within a session.
type MessageKind string

const (
	MessageProposal     MessageKind = "proposal"
	MessageConfirmation MessageKind = "confirmation"
	MessageNote         MessageKind = "note"
)

// ProposalWindow is one candidate slot inside a proposal message.
type ProposalWindow struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Timezone string    `json:"timezone"`
}

// Message records one entry of a session's exchange. Proposal messages carry
// an immutable ordered candidate list; later proposal requests append new
// messages rather than mutating earlier ones.
type Message struct {
	ID        string
	SessionID string
	SenderID  string
	Kind      MessageKind
	Body      string
	Proposals []ProposalWindow
	CreatedAt time.Time
}

// Notification is an actionable record describing a pending decision.
type Notification struct {
	ID             string
	RecipientID    string
	Kind           string
	Title          string
	Body           string
	SessionID      string
	MessageID      string
	RequiresAction bool
	ActionRef      string
	Resolved       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IdempotencyRecord marks a (key, operation) pair as claimed.
type IdempotencyRecord struct {
	Key       string
	Operation string
	CreatedAt time.Time
}
