package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/meeting-negotiator/internal/application"
)

type notificationResolver interface {
	Resolve(ctx context.Context, principal application.Principal, notificationID string) error
}

// NotificationHandler serves the notification resolution callback.
type NotificationHandler struct {
	bridge    notificationResolver
	responder responder
}

// NewNotificationHandler builds the handler for notification endpoints.
func NewNotificationHandler(bridge notificationResolver, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{bridge: bridge, responder: newResponder(logger)}
}

// Resolve marks a notification as handled by its recipient.
func (h *NotificationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.bridge == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	notificationID, ok := NotificationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(notificationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidNotificationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.bridge.Resolve(r.Context(), principal, notificationID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
