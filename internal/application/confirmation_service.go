package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/meeting-negotiator/internal/calendar"
	"github.com/example/meeting-negotiator/internal/persistence"
	"github.com/example/meeting-negotiator/internal/timeslot"
)

// ConfirmationService converts a chosen candidate into two externally
// created calendar events and durably records a single winning outcome per
// session.
//
// The exactly-once guarantee comes entirely from the session store's
// conditional outcome write. No in-process lock is held across the calendar
// provider calls; concurrent confirmation attempts race on the database and
// losers compensate by deleting the events they created.
type ConfirmationService struct {
	connections ConnectionStore
	sessions    SessionStore
	messages    MessageStore
	idempotency IdempotencyStore
	provider    calendar.Provider
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewConfirmationService wires dependencies for confirmation operations.
func NewConfirmationService(connections ConnectionStore, sessions SessionStore, messages MessageStore, idempotency IdempotencyStore, provider calendar.Provider, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ConfirmationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ConfirmationService{
		connections: connections,
		sessions:    sessions,
		messages:    messages,
		idempotency: idempotency,
		provider:    provider,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Confirm attempts to settle the session on the candidate at the given index
// of the most recent proposal set. Exactly one concurrent attempt can
// succeed; the rest observe ErrConflict after rolling back the events they
// speculatively created.
func (s *ConfirmationService) Confirm(ctx context.Context, params ConfirmParams) (Outcome, error) {
	if s == nil || s.sessions == nil || s.connections == nil || s.provider == nil {
		return Outcome{}, fmt.Errorf("ConfirmationService is not configured")
	}

	record, err := s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return Outcome{}, mapRepoError(err)
	}
	session := sessionFromRecord(record)

	if record.Outcome != nil || record.Status == persistence.SessionConfirmed {
		return Outcome{}, ErrConflict
	}
	if session.Terminal() {
		return Outcome{}, ErrSessionTerminal
	}

	callerID := params.Principal.AccountID
	_, permission, err := authorizeSessionAction(ctx, s.connections, record, callerID)
	if err != nil {
		return Outcome{}, err
	}
	if !hasAnyScope(permission, ScopeAutoConfirm, ScopeConfirmWithApproval) {
		return Outcome{}, ErrUnauthorized
	}

	proposal, err := s.messages.LatestProposalMessage(ctx, params.SessionID)
	if err != nil {
		if mapped := mapRepoError(err); mapped == ErrNotFound {
			vErr := &ValidationError{}
			vErr.add("candidate_index", "session has no proposals to confirm")
			return Outcome{}, vErr
		}
		return Outcome{}, err
	}
	if params.CandidateIndex < 0 || params.CandidateIndex >= len(proposal.Proposals) {
		vErr := &ValidationError{}
		vErr.add("candidate_index", fmt.Sprintf("index %d is out of bounds for %d candidates", params.CandidateIndex, len(proposal.Proposals)))
		return Outcome{}, vErr
	}
	chosen := proposal.Proposals[params.CandidateIndex]

	now := s.now()
	if params.IdempotencyKey != "" && s.idempotency != nil {
		claimed, err := s.idempotency.RegisterIfAbsent(ctx, params.IdempotencyKey, "confirm", now)
		if err != nil {
			return Outcome{}, err
		}
		if !claimed {
			return Outcome{}, ErrIdempotencyReplay
		}
	}

	logger := serviceLogger(ctx, s.logger, "confirmation", "confirm", "session_id", session.ID)

	window := timeslot.Window{Start: chosen.Start, End: chosen.End, Timezone: chosen.Timezone}
	input := calendar.EventInput{
		Summary:   "Scheduled meeting",
		Start:     window.Start,
		End:       window.End,
		Timezone:  window.Timezone,
		Attendees: []string{session.InitiatorID, session.CounterpartID},
	}

	initiatorEvent, err := s.provider.CreateEvent(ctx, session.InitiatorID, input)
	if err != nil {
		return Outcome{}, err
	}

	counterpartEvent, err := s.provider.CreateEvent(ctx, session.CounterpartID, input)
	if err != nil {
		// A partial pair never reaches the outcome write; roll back the
		// first event and surface the creation failure.
		s.deleteEvent(ctx, logger, session.InitiatorID, initiatorEvent.ID)
		return Outcome{}, err
	}

	outcome := persistence.Outcome{
		Start:              window.Start,
		End:                window.End,
		Timezone:           window.Timezone,
		InitiatorEventID:   initiatorEvent.ID,
		CounterpartEventID: counterpartEvent.ID,
		ConfirmedBy:        callerID,
		ConfirmedAt:        now,
	}

	won, err := s.sessions.SetOutcomeIfAbsent(ctx, session.ID, outcome, now)
	if err != nil {
		// Unknown storage state: the write may or may not have landed, so
		// the events are left in place rather than risking the deletion of a
		// recorded outcome's events.
		return Outcome{}, err
	}
	if !won {
		s.deleteEvent(ctx, logger, session.InitiatorID, initiatorEvent.ID)
		s.deleteEvent(ctx, logger, session.CounterpartID, counterpartEvent.ID)
		return Outcome{}, ErrConflict
	}

	if s.messages != nil {
		confirmation := persistence.Message{
			ID:        s.idGenerator(),
			SessionID: session.ID,
			SenderID:  callerID,
			Kind:      persistence.MessageConfirmation,
			Body:      fmt.Sprintf("Confirmed %s - %s", window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339)),
			CreatedAt: now,
		}
		if err := s.messages.CreateMessage(ctx, confirmation); err != nil {
			// The outcome is already durable; the missing log entry is noted
			// and the confirmation still succeeds.
			logger.ErrorContext(ctx, "failed to record confirmation message", "error", err)
		}
	}

	logger.InfoContext(ctx, "session confirmed",
		"confirmed_by", callerID,
		"start", window.Start,
		"end", window.End,
	)

	return outcomeFromRecord(outcome), nil
}

// deleteEvent performs a best-effort compensating delete. Failures are
// logged and never block the caller's primary result.
func (s *ConfirmationService) deleteEvent(ctx context.Context, logger *slog.Logger, userID, eventID string) {
	if eventID == "" {
		return
	}
	if err := s.provider.DeleteEvent(ctx, userID, eventID); err != nil {
		logger.ErrorContext(ctx, "compensating event delete failed",
			"user_id", userID,
			"event_id", eventID,
			"error", err,
		)
	}
}
