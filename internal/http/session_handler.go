package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-negotiator/internal/application"
	"github.com/example/meeting-negotiator/internal/timeslot"
)

type negotiationService interface {
	StartSession(ctx context.Context, params application.StartSessionParams) (application.Session, error)
	ProposeTimes(ctx context.Context, params application.ProposeTimesParams) (application.ProposeTimesResult, error)
	CancelSession(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error)
	ExpireSession(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error)
	GetSession(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error)
	ListMessages(ctx context.Context, principal application.Principal, sessionID string) ([]application.Message, error)
}

type confirmationService interface {
	Confirm(ctx context.Context, params application.ConfirmParams) (application.Outcome, error)
}

// SessionHandler serves the negotiation session endpoints.
type SessionHandler struct {
	negotiations  negotiationService
	confirmations confirmationService
	responder     responder
}

// NewSessionHandler builds the handler for session endpoints.
func NewSessionHandler(negotiations negotiationService, confirmations confirmationService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		negotiations:  negotiations,
		confirmations: confirmations,
		responder:     newResponder(logger),
	}
}

// Start opens a new negotiation session.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.negotiations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	session, err := h.negotiations.StartSession(r.Context(), application.StartSessionParams{
		Principal:    principal,
		ConnectionID: req.ConnectionID,
		TTLExpiresAt: req.TTLExpiresAt,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toSessionDTO(session))
}

// Get returns a session to one of its participants.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.negotiations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	session, err := h.negotiations.GetSession(r.Context(), principal, sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

// Propose generates mutually free candidate windows for the session.
func (h *SessionHandler) Propose(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.negotiations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	idempotencyKey, _ := IdempotencyKeyFromContext(r.Context())

	result, err := h.negotiations.ProposeTimes(r.Context(), application.ProposeTimesParams{
		Principal:       principal,
		SessionID:       sessionID,
		DurationMinutes: req.DurationMinutes,
		Earliest:        req.Earliest,
		Latest:          req.Latest,
		Timezone:        req.Timezone,
		Limit:           req.Limit,
		IdempotencyKey:  idempotencyKey,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, proposeResponse{
		Session: toSessionDTO(result.Session),
		Message: toMessageDTO(result.Message),
	})
}

// Confirm settles the session on one proposed candidate.
func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.confirmations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	idempotencyKey, _ := IdempotencyKeyFromContext(r.Context())

	outcome, err := h.confirmations.Confirm(r.Context(), application.ConfirmParams{
		Principal:      principal,
		SessionID:      sessionID,
		CandidateIndex: req.CandidateIndex,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toOutcomeDTO(outcome))
}

// Cancel transitions the session to cancelled.
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.finish(w, r, func(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error) {
		return h.negotiations.CancelSession(ctx, principal, sessionID)
	})
}

// Expire transitions the session to expired.
func (h *SessionHandler) Expire(w http.ResponseWriter, r *http.Request) {
	h.finish(w, r, func(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error) {
		return h.negotiations.ExpireSession(ctx, principal, sessionID)
	})
}

func (h *SessionHandler) finish(w http.ResponseWriter, r *http.Request, transition func(context.Context, application.Principal, string) (application.Session, error)) {
	if h == nil || h.negotiations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	session, err := transition(r.Context(), principal, sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

// Messages lists the session's exchange log.
func (h *SessionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.negotiations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	messages, err := h.negotiations.ListMessages(r.Context(), principal, sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]messageDTO, 0, len(messages))
	for _, message := range messages {
		dtos = append(dtos, toMessageDTO(message))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMessagesResponse{Messages: dtos})
}

// --- DTOs ---

type startSessionRequest struct {
	ConnectionID string     `json:"connection_id"`
	TTLExpiresAt *time.Time `json:"ttl_expires_at,omitempty"`
}

type proposeRequest struct {
	DurationMinutes int        `json:"duration_minutes"`
	Earliest        *time.Time `json:"earliest,omitempty"`
	Latest          *time.Time `json:"latest,omitempty"`
	Timezone        string     `json:"timezone,omitempty"`
	Limit           *int       `json:"limit,omitempty"`
}

type confirmRequest struct {
	CandidateIndex int `json:"candidate_index"`
}

type windowDTO struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Timezone string    `json:"timezone,omitempty"`
}

type outcomeDTO struct {
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	Timezone           string    `json:"timezone,omitempty"`
	InitiatorEventID   string    `json:"initiator_event_id"`
	CounterpartEventID string    `json:"counterpart_event_id"`
	ConfirmedBy        string    `json:"confirmed_by"`
	ConfirmedAt        time.Time `json:"confirmed_at"`
}

type sessionDTO struct {
	ID            string      `json:"id"`
	ConnectionID  string      `json:"connection_id"`
	InitiatorID   string      `json:"initiator_id"`
	CounterpartID string      `json:"counterpart_id"`
	Status        string      `json:"status"`
	TTLExpiresAt  *time.Time  `json:"ttl_expires_at,omitempty"`
	Outcome       *outcomeDTO `json:"outcome,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type messageDTO struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	SenderID  string      `json:"sender_id"`
	Kind      string      `json:"kind"`
	Body      string      `json:"body,omitempty"`
	Proposals []windowDTO `json:"proposals,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type proposeResponse struct {
	Session sessionDTO `json:"session"`
	Message messageDTO `json:"message"`
}

type listMessagesResponse struct {
	Messages []messageDTO `json:"messages"`
}

func toSessionDTO(session application.Session) sessionDTO {
	dto := sessionDTO{
		ID:            session.ID,
		ConnectionID:  session.ConnectionID,
		InitiatorID:   session.InitiatorID,
		CounterpartID: session.CounterpartID,
		Status:        string(session.Status),
		TTLExpiresAt:  session.TTLExpiresAt,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	}
	if session.Outcome != nil {
		outcome := toOutcomeDTO(*session.Outcome)
		dto.Outcome = &outcome
	}
	return dto
}

func toOutcomeDTO(outcome application.Outcome) outcomeDTO {
	return outcomeDTO(outcome)
}

func toMessageDTO(message application.Message) messageDTO {
	dto := messageDTO{
		ID:        message.ID,
		SessionID: message.SessionID,
		SenderID:  message.SenderID,
		Kind:      string(message.Kind),
		Body:      message.Body,
		CreatedAt: message.CreatedAt,
	}
	if len(message.Proposals) > 0 {
		dto.Proposals = make([]windowDTO, 0, len(message.Proposals))
		for _, window := range message.Proposals {
			dto.Proposals = append(dto.Proposals, toWindowDTO(window))
		}
	}
	return dto
}

func toWindowDTO(window timeslot.Window) windowDTO {
	return windowDTO(window)
}
