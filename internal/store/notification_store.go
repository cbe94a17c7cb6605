package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/todoapp/internal/model"
)

// ListReminderCandidates returns the user's incomplete todos that have a
// due date and a reminder lead and have not been notified for their current
// due date. Whether the reminder window is open is decided by the caller.
func (r *repo) ListReminderCandidates(ctx context.Context, userID int64) ([]model.Todo, error) {
	var todos []model.Todo
	err := sqlx.SelectContext(ctx, r.ext, &todos, `
		SELECT `+todoColumns+`
		FROM todos
		WHERE user_id = ?
		  AND completed_at IS NULL
		  AND due_date IS NOT NULL
		  AND reminder_minutes IS NOT NULL
		  AND last_notification_sent IS NULL
		ORDER BY due_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying reminder candidates: %w", err)
	}
	for i := range todos {
		r.localTodo(&todos[i])
	}
	return todos, nil
}

// ClaimReminder records that a reminder was sent for n.TodoID. The todo's
// last_notification_sent is set only if it is still unset and the todo is
// still open; when that conditional update loses, ClaimReminder reports
// false and writes nothing. On success the notification row is logged in
// the same transaction.
func (r *repo) ClaimReminder(ctx context.Context, n model.Notification) (bool, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	claimed := false
	err := r.inTx(ctx, func(tx *repo) error {
		result, err := tx.ext.ExecContext(ctx, `
			UPDATE todos SET last_notification_sent = ?
			WHERE id = ? AND user_id = ?
			  AND last_notification_sent IS NULL
			  AND completed_at IS NULL`,
			dbTime(n.CreatedAt), n.TodoID, n.UserID,
		)
		if err != nil {
			return fmt.Errorf("claiming reminder for todo %d: %w", n.TodoID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected for todo %d: %w", n.TodoID, err)
		}
		if rows == 0 {
			return nil
		}

		_, err = tx.ext.ExecContext(ctx, `
			INSERT INTO notifications (id, user_id, todo_id, message, read, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			n.ID, n.UserID, n.TodoID, n.Message, boolToInt(n.Read), dbTime(n.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("logging notification for todo %d: %w", n.TodoID, err)
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// ListNotifications returns the user's notification log, newest first.
func (r *repo) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	query := `
		SELECT id, user_id, todo_id, message, read, created_at
		FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += " AND read = 0"
	}
	query += " ORDER BY created_at DESC, id"

	var notifications []model.Notification
	if err := sqlx.SelectContext(ctx, r.ext, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	for i := range notifications {
		r.local(&notifications[i].CreatedAt)
	}
	return notifications, nil
}

// MarkNotificationRead flags a notification as read.
func (r *repo) MarkNotificationRead(ctx context.Context, userID int64, id string) error {
	result, err := r.ext.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return checkAffected(result, "notification", id)
}
