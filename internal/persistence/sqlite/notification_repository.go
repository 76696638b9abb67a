package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-negotiator/internal/persistence"
)

// NotificationRepository implements persistence.NotificationRepository on SQLite.
type NotificationRepository struct {
	pool *ConnectionPool
}

// NewNotificationRepository creates a SQLite-backed notification repository.
func NewNotificationRepository(pool *ConnectionPool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// CreateNotification stores a new notification.
func (r *NotificationRepository) CreateNotification(ctx context.Context, notification persistence.Notification) error {
	if strings.TrimSpace(notification.ID) == "" || notification.RecipientID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO notifications
			(id, recipient_id, kind, title, body, session_id, message_id, requires_action, action_ref, resolved, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		notification.ID,
		notification.RecipientID,
		notification.Kind,
		notification.Title,
		notification.Body,
		notification.SessionID,
		notification.MessageID,
		boolToInt(notification.RequiresAction),
		notification.ActionRef,
		boolToInt(notification.Resolved),
		formatTime(notification.CreatedAt),
		formatTime(notification.UpdatedAt),
	)
	return mapError(err)
}

// GetNotification retrieves a notification by ID.
func (r *NotificationRepository) GetNotification(ctx context.Context, id string) (persistence.Notification, error) {
	query := `
		SELECT id, recipient_id, kind, title, body, session_id, message_id, requires_action, action_ref, resolved, created_at, updated_at
		FROM notifications
		WHERE id = ?
	`

	var notification persistence.Notification
	var requiresAction, resolved int
	var createdAt, updatedAt string
	err := r.pool.db.QueryRowContext(ctx, query, id).Scan(
		&notification.ID,
		&notification.RecipientID,
		&notification.Kind,
		&notification.Title,
		&notification.Body,
		&notification.SessionID,
		&notification.MessageID,
		&requiresAction,
		&notification.ActionRef,
		&resolved,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Notification{}, mapError(err)
	}

	notification.RequiresAction = requiresAction != 0
	notification.Resolved = resolved != 0
	if notification.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Notification{}, err
	}
	if notification.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Notification{}, err
	}

	return notification, nil
}

// MarkActionability updates the actionable flags of a notification.
func (r *NotificationRepository) MarkActionability(ctx context.Context, id string, requiresAction bool, actionRef string, updatedAt time.Time) error {
	query := `UPDATE notifications SET requires_action = ?, action_ref = ?, updated_at = ? WHERE id = ?`
	result, err := r.pool.db.ExecContext(ctx, query, boolToInt(requiresAction), actionRef, formatTime(updatedAt), id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ResolveNotification marks a notification as resolved.
func (r *NotificationRepository) ResolveNotification(ctx context.Context, id string, updatedAt time.Time) error {
	query := `UPDATE notifications SET resolved = 1, updated_at = ? WHERE id = ?`
	result, err := r.pool.db.ExecContext(ctx, query, formatTime(updatedAt), id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
