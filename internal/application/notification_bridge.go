package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/meeting-negotiator/internal/persistence"
)

// NotificationBridge emits actionable notifications describing pending
// decisions and exposes the resolution callback an automated resolver can
// invoke later.
type NotificationBridge struct {
	store       NotificationStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewNotificationBridge wires dependencies for notification operations.
func NewNotificationBridge(store NotificationStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *NotificationBridge {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &NotificationBridge{
		store:       store,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// NotifyPendingDecision creates the primary notification and then flags it
// as actionable. The flagging is a best-effort secondary step: when it fails
// after the primary record exists, the decision is delivered but not
// interactively actionable, the failure is logged, and the call still
// succeeds. That asymmetry is intentional; a genuine primary-path fault is
// never hidden by it.
func (b *NotificationBridge) NotifyPendingDecision(ctx context.Context, params PendingDecisionParams) (string, error) {
	if b == nil || b.store == nil {
		return "", fmt.Errorf("NotificationBridge is not configured")
	}
	if params.RecipientID == "" {
		vErr := &ValidationError{}
		vErr.add("recipient_id", "recipient_id is required")
		return "", vErr
	}

	now := b.now()
	notification := persistence.Notification{
		ID:          b.idGenerator(),
		RecipientID: params.RecipientID,
		Kind:        params.Kind,
		Title:       params.Title,
		Body:        params.Body,
		SessionID:   params.SessionID,
		MessageID:   params.MessageID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := b.store.CreateNotification(ctx, notification); err != nil {
		return "", mapRepoError(err)
	}

	if params.ActionRef != "" {
		if err := b.store.MarkActionability(ctx, notification.ID, true, params.ActionRef, now); err != nil {
			serviceLogger(ctx, b.logger, "notification", "notify_pending_decision", "notification_id", notification.ID).
				WarnContext(ctx, "failed to mark notification actionable", "error", err)
		}
	}

	return notification.ID, nil
}

// Resolve marks a notification as handled on behalf of its recipient.
func (b *NotificationBridge) Resolve(ctx context.Context, principal Principal, notificationID string) error {
	if b == nil || b.store == nil {
		return fmt.Errorf("NotificationBridge is not configured")
	}

	notification, err := b.store.GetNotification(ctx, notificationID)
	if err != nil {
		return mapRepoError(err)
	}
	if notification.RecipientID != principal.AccountID {
		return ErrUnauthorized
	}
	if notification.Resolved {
		return nil
	}

	if err := b.store.ResolveNotification(ctx, notificationID, b.now()); err != nil {
		return mapRepoError(err)
	}
	return nil
}
