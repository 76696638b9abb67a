package application

import (
	"time"

	"github.com/example/meeting-negotiator/internal/persistence"
	"github.com/example/meeting-negotiator/internal/timeslot"
)

// Scopes a permission record can grant within a connection. Every mutating
// call re-checks the required scopes against a freshly loaded permission
// snapshot; grants revoked mid-negotiation take effect on the next call.
const (
	ScopeReadAvailability    = "read-availability"
	ScopeProposeTimes        = "propose-times"
	ScopeAutoConfirm         = "auto-confirm"
	ScopeConfirmWithApproval = "confirm-with-approval"
)

// Principal represents the authenticated account invoking a service method.
// Authentication itself happens upstream; the core only consumes the
// resolved identity.
type Principal struct {
	AccountID string
}

// Session is the application view of a negotiation session.
type Session struct {
	ID            string
	ConnectionID  string
	InitiatorID   string
	CounterpartID string
	Status        persistence.SessionStatus
	TTLExpiresAt  *time.Time
	Outcome       *Outcome
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Participant reports whether the account takes part in the session.
func (s Session) Participant(accountID string) bool {
	return accountID != "" && (accountID == s.InitiatorID || accountID == s.CounterpartID)
}

// Counterpart returns the other participant of the session.
func (s Session) CounterpartOf(accountID string) string {
	if accountID == s.InitiatorID {
		return s.CounterpartID
	}
	return s.InitiatorID
}

// Terminal reports whether the session accepts no further mutations.
func (s Session) Terminal() bool {
	switch s.Status {
	case persistence.SessionConfirmed, persistence.SessionExpired, persistence.SessionCancelled:
		return true
	default:
		return false
	}
}

// Outcome is the single confirmed result of a session.
type Outcome struct {
	Start              time.Time
	End                time.Time
	Timezone           string
	InitiatorEventID   string
	CounterpartEventID string
	ConfirmedBy        string
	ConfirmedAt        time.Time
}

// Message is one entry of a session's exchange log.
type Message struct {
	ID        string
	SessionID string
	SenderID  string
	Kind      persistence.MessageKind
	Body      string
	Proposals []timeslot.Window
	CreatedAt time.Time
}

// StartSessionParams wraps the data required to open a negotiation session.
type StartSessionParams struct {
	Principal    Principal
	ConnectionID string
	TTLExpiresAt *time.Time
}

// ProposeTimesParams wraps one proposal-generation request.
type ProposeTimesParams struct {
	Principal       Principal
	SessionID       string
	DurationMinutes int
	Earliest        *time.Time
	Latest          *time.Time
	Timezone        string
	Limit           *int
	IdempotencyKey  string
}

// ProposeTimesResult carries the recorded proposal message.
type ProposeTimesResult struct {
	Session Session
	Message Message
}

// ConfirmParams wraps one confirmation request.
type ConfirmParams struct {
	Principal      Principal
	SessionID      string
	CandidateIndex int
	IdempotencyKey string
}

// PendingDecisionParams describes the notification emitted when a
// participant has a decision waiting.
type PendingDecisionParams struct {
	RecipientID string
	Kind        string
	Title       string
	Body        string
	SessionID   string
	MessageID   string
	ActionRef   string
}

func sessionFromRecord(record persistence.NegotiationSession) Session {
	session := Session{
		ID:            record.ID,
		ConnectionID:  record.ConnectionID,
		InitiatorID:   record.InitiatorID,
		CounterpartID: record.CounterpartID,
		Status:        record.Status,
		TTLExpiresAt:  record.TTLExpiresAt,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	if record.Outcome != nil {
		outcome := outcomeFromRecord(*record.Outcome)
		session.Outcome = &outcome
	}
	return session
}

func outcomeFromRecord(record persistence.Outcome) Outcome {
	return Outcome(record)
}

func messageFromRecord(record persistence.Message) Message {
	message := Message{
		ID:        record.ID,
		SessionID: record.SessionID,
		SenderID:  record.SenderID,
		Kind:      record.Kind,
		Body:      record.Body,
		CreatedAt: record.CreatedAt,
	}
	if len(record.Proposals) > 0 {
		message.Proposals = make([]timeslot.Window, 0, len(record.Proposals))
		for _, window := range record.Proposals {
			message.Proposals = append(message.Proposals, timeslot.Window{
				Start:    window.Start,
				End:      window.End,
				Timezone: window.Timezone,
			})
		}
	}
	return message
}

func proposalRecords(windows []timeslot.Window) []persistence.ProposalWindow {
	if len(windows) == 0 {
		return []persistence.ProposalWindow{}
	}
	records := make([]persistence.ProposalWindow, 0, len(windows))
	for _, window := range windows {
		records = append(records, persistence.ProposalWindow{
			Start:    window.Start,
			End:      window.End,
			Timezone: window.Timezone,
		})
	}
	return records
}
