package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/example/meeting-negotiator/internal/availability"
	"github.com/example/meeting-negotiator/internal/persistence"
)

// NegotiationService coordinates the connection-scoped exchange between two
// participants: session creation, proposal issuance, counter-proposals, and
// caller-driven terminal transitions.
type NegotiationService struct {
	connections ConnectionStore
	sessions    SessionStore
	messages    MessageStore
	idempotency IdempotencyStore
	proposals   ProposalGenerator
	notifier    DecisionNotifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewNegotiationService wires dependencies for negotiation operations.
func NewNegotiationService(connections ConnectionStore, sessions SessionStore, messages MessageStore, idempotency IdempotencyStore, proposals ProposalGenerator, notifier DecisionNotifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *NegotiationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &NegotiationService{
		connections: connections,
		sessions:    sessions,
		messages:    messages,
		idempotency: idempotency,
		proposals:   proposals,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// StartSession opens a pending negotiation session on an active connection
// the caller participates in.
func (s *NegotiationService) StartSession(ctx context.Context, params StartSessionParams) (Session, error) {
	if s == nil || s.sessions == nil || s.connections == nil {
		return Session{}, fmt.Errorf("NegotiationService is not configured")
	}

	vErr := &ValidationError{}
	if params.ConnectionID == "" {
		vErr.add("connection_id", "connection_id is required")
	}
	if params.Principal.AccountID == "" {
		vErr.add("principal", "caller identity is required")
	}
	if vErr.HasErrors() {
		return Session{}, vErr
	}

	connection, err := s.connections.GetConnection(ctx, params.ConnectionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}

	callerID := params.Principal.AccountID
	if callerID != connection.InitiatorID && callerID != connection.CounterpartID {
		return Session{}, ErrUnauthorized
	}
	if connection.Status != persistence.ConnectionActive {
		return Session{}, ErrConnectionInactive
	}

	counterpartID := connection.CounterpartID
	if callerID == connection.CounterpartID {
		counterpartID = connection.InitiatorID
	}

	now := s.now()
	record := persistence.NegotiationSession{
		ID:            s.idGenerator(),
		ConnectionID:  connection.ID,
		InitiatorID:   callerID,
		CounterpartID: counterpartID,
		Status:        persistence.SessionPending,
		TTLExpiresAt:  params.TTLExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.sessions.CreateSession(ctx, record); err != nil {
		return Session{}, mapRepoError(err)
	}

	serviceLogger(ctx, s.logger, "negotiation", "start_session", "session_id", record.ID).
		InfoContext(ctx, "negotiation session created", "connection_id", connection.ID)

	return sessionFromRecord(record), nil
}

// ProposeTimes computes mutually free candidate windows, records them as an
// immutable proposal message, and informs the counterpart. Repeated calls in
// a negotiating session issue counter-proposals; each request needs a fresh
// idempotency key.
func (s *NegotiationService) ProposeTimes(ctx context.Context, params ProposeTimesParams) (ProposeTimesResult, error) {
	if s == nil || s.sessions == nil || s.connections == nil || s.messages == nil || s.proposals == nil {
		return ProposeTimesResult{}, fmt.Errorf("NegotiationService is not configured")
	}

	vErr := &ValidationError{}
	if params.SessionID == "" {
		vErr.add("session_id", "session_id is required")
	}
	if params.DurationMinutes <= 0 {
		vErr.add("duration_minutes", "duration must be positive")
	}
	if params.Limit != nil && *params.Limit <= 0 {
		vErr.add("limit", "limit must be positive")
	}
	if params.Earliest != nil && params.Latest != nil && !params.Latest.After(*params.Earliest) {
		vErr.add("latest", "latest must be after earliest")
	}
	if params.Timezone != "" {
		if _, err := time.LoadLocation(params.Timezone); err != nil {
			vErr.add("timezone", "unknown timezone")
		}
	}
	if vErr.HasErrors() {
		return ProposeTimesResult{}, vErr
	}

	record, err := s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return ProposeTimesResult{}, mapRepoError(err)
	}
	session := sessionFromRecord(record)
	if session.Terminal() {
		if session.Status == persistence.SessionConfirmed {
			return ProposeTimesResult{}, ErrConflict
		}
		return ProposeTimesResult{}, ErrSessionTerminal
	}

	callerID := params.Principal.AccountID
	_, _, err = authorizeSessionAction(ctx, s.connections, record, callerID, ScopeReadAvailability, ScopeProposeTimes)
	if err != nil {
		return ProposeTimesResult{}, err
	}

	now := s.now()
	key := params.IdempotencyKey
	if key == "" {
		key = deriveProposeKey(params)
	}
	if s.idempotency != nil {
		claimed, err := s.idempotency.RegisterIfAbsent(ctx, key, "propose_times", now)
		if err != nil {
			return ProposeTimesResult{}, err
		}
		if !claimed {
			return ProposeTimesResult{}, ErrIdempotencyReplay
		}
	}

	counterpartID := session.CounterpartOf(callerID)
	callerConstraints, err := participantConstraints(ctx, s.connections, session.ConnectionID, callerID)
	if err != nil {
		return ProposeTimesResult{}, err
	}
	counterpartConstraints, err := participantConstraints(ctx, s.connections, session.ConnectionID, counterpartID)
	if err != nil {
		return ProposeTimesResult{}, err
	}

	limit := 0
	if params.Limit != nil {
		limit = *params.Limit
	}

	windows, err := s.proposals.GenerateMutualProposals(ctx, availability.MutualProposalParams{
		UserA:           callerID,
		UserB:           counterpartID,
		DurationMinutes: params.DurationMinutes,
		Earliest:        params.Earliest,
		Latest:          params.Latest,
		Timezone:        params.Timezone,
		ConstraintsA:    callerConstraints,
		ConstraintsB:    counterpartConstraints,
		Limit:           limit,
	})
	if err != nil {
		return ProposeTimesResult{}, err
	}

	message := persistence.Message{
		ID:        s.idGenerator(),
		SessionID: session.ID,
		SenderID:  callerID,
		Kind:      persistence.MessageProposal,
		Proposals: proposalRecords(windows),
		CreatedAt: now,
	}
	if err := s.messages.CreateMessage(ctx, message); err != nil {
		return ProposeTimesResult{}, mapRepoError(err)
	}

	if record.Status == persistence.SessionPending {
		if err := s.sessions.UpdateSessionStatus(ctx, session.ID, persistence.SessionNegotiating, now); err != nil {
			return ProposeTimesResult{}, mapRepoError(err)
		}
		record.Status = persistence.SessionNegotiating
		record.UpdatedAt = now
	}

	logger := serviceLogger(ctx, s.logger, "negotiation", "propose_times", "session_id", session.ID)
	logger.InfoContext(ctx, "proposals issued", "candidates", len(windows), "sender", callerID)

	if s.notifier != nil {
		_, err := s.notifier.NotifyPendingDecision(ctx, PendingDecisionParams{
			RecipientID: counterpartID,
			Kind:        "schedule_proposal",
			Title:       "New meeting time proposals",
			Body:        strconv.Itoa(len(windows)) + " candidate times are waiting for your decision",
			SessionID:   session.ID,
			MessageID:   message.ID,
			ActionRef:   "sessions/" + session.ID + "/messages/" + message.ID,
		})
		if err != nil {
			// The proposal set is already durable and reachable through the
			// session read APIs, so a failed notification dispatch does not
			// undo the call.
			logger.ErrorContext(ctx, "failed to notify counterpart", "error", err)
		}
	}

	return ProposeTimesResult{
		Session: sessionFromRecord(record),
		Message: messageFromRecord(message),
	}, nil
}

// CancelSession moves a non-terminal session to cancelled.
func (s *NegotiationService) CancelSession(ctx context.Context, principal Principal, sessionID string) (Session, error) {
	return s.finishSession(ctx, principal, sessionID, persistence.SessionCancelled, "cancel_session")
}

// ExpireSession moves a non-terminal session to expired. Expiry is caller or
// policy driven; no background reaper exists.
func (s *NegotiationService) ExpireSession(ctx context.Context, principal Principal, sessionID string) (Session, error) {
	return s.finishSession(ctx, principal, sessionID, persistence.SessionExpired, "expire_session")
}

func (s *NegotiationService) finishSession(ctx context.Context, principal Principal, sessionID string, status persistence.SessionStatus, operation string) (Session, error) {
	if s == nil || s.sessions == nil || s.connections == nil {
		return Session{}, fmt.Errorf("NegotiationService is not configured")
	}

	record, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, mapRepoError(err)
	}
	session := sessionFromRecord(record)
	if session.Terminal() {
		return Session{}, ErrSessionTerminal
	}

	if _, _, err := authorizeSessionAction(ctx, s.connections, record, principal.AccountID); err != nil {
		return Session{}, err
	}

	now := s.now()
	if err := s.sessions.UpdateSessionStatus(ctx, sessionID, status, now); err != nil {
		return Session{}, mapRepoError(err)
	}
	record.Status = status
	record.UpdatedAt = now

	serviceLogger(ctx, s.logger, "negotiation", operation, "session_id", sessionID).
		InfoContext(ctx, "session transitioned", "status", string(status))

	return sessionFromRecord(record), nil
}

// GetSession returns a session to one of its participants.
func (s *NegotiationService) GetSession(ctx context.Context, principal Principal, sessionID string) (Session, error) {
	if s == nil || s.sessions == nil {
		return Session{}, fmt.Errorf("NegotiationService is not configured")
	}

	record, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, mapRepoError(err)
	}
	session := sessionFromRecord(record)
	if !session.Participant(principal.AccountID) {
		return Session{}, ErrUnauthorized
	}
	return session, nil
}

// ListMessages returns the exchange log of a session to one of its participants.
func (s *NegotiationService) ListMessages(ctx context.Context, principal Principal, sessionID string) ([]Message, error) {
	if s == nil || s.sessions == nil || s.messages == nil {
		return nil, fmt.Errorf("NegotiationService is not configured")
	}

	record, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !sessionFromRecord(record).Participant(principal.AccountID) {
		return nil, ErrUnauthorized
	}

	records, err := s.messages.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	messages := make([]Message, 0, len(records))
	for _, record := range records {
		messages = append(messages, messageFromRecord(record))
	}
	return messages, nil
}

// deriveProposeKey builds the fallback idempotency key from the parameters
// identifying a logically equivalent proposal request. Every field occupies a
// fixed position so requests differing only in which optional is set never
// share a key.
func deriveProposeKey(params ProposeTimesParams) string {
	earliest, latest, limit := "-", "-", "-"
	if params.Earliest != nil {
		earliest = params.Earliest.UTC().Format(time.RFC3339Nano)
	}
	if params.Latest != nil {
		latest = params.Latest.UTC().Format(time.RFC3339Nano)
	}
	if params.Limit != nil {
		limit = strconv.Itoa(*params.Limit)
	}
	return deriveIdempotencyKey("propose_times",
		params.SessionID,
		params.Principal.AccountID,
		strconv.Itoa(params.DurationMinutes),
		params.Timezone,
		earliest,
		latest,
		limit,
	)
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate), errors.Is(err, persistence.ErrStaleState):
		return ErrConflict
	case errors.Is(err, persistence.ErrConstraintViolation), errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("request", "related records are missing or invalid")
		return vErr
	}
	return err
}
