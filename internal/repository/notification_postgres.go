// internal/repository/notification_postgres.go
package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/models"
)

type notificationPostgres struct {
	db *sql.DB
}

// NewNotificationPostgres creates the PostgreSQL-backed notification store.
func NewNotificationPostgres(db *sql.DB) NotificationRepository {
	return &notificationPostgres{db: db}
}

func (r *notificationPostgres) Create(ctx context.Context, n *models.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, subscription_id, message, status, failure_reason, created_at, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, n.SubscriptionID, n.Message, string(n.Status),
		n.FailureReason, n.CreatedAt, n.SentAt,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("notification.create", err)
	}
	return nil
}

func (r *notificationPostgres) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, subscription_id, message, status, COALESCE(failure_reason, ''), created_at, sent_at
		FROM notifications WHERE id = $1`, id)

	n, err := scanNotification(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotificationNotFoundError(id)
		}
		return nil, errors.NewQueryExecutionFailedError("notification.get", err)
	}
	return n, nil
}

func (r *notificationPostgres) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, subscription_id, message, status, COALESCE(failure_reason, ''), created_at, sent_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("notification.listByUser", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *notificationPostgres) ListBySubscription(ctx context.Context, subscriptionID string) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, subscription_id, message, status, COALESCE(failure_reason, ''), created_at, sent_at
		FROM notifications WHERE subscription_id = $1 ORDER BY created_at DESC`, subscriptionID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("notification.listBySubscription", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *notificationPostgres) UpdateStatus(ctx context.Context, id string, status models.NotificationStatus, failureReason string, sentAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET status = $2, failure_reason = $3, sent_at = $4
		WHERE id = $1`,
		id, string(status), failureReason, sentAt,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("notification.updateStatus", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotificationNotFoundError(id)
	}
	return nil
}

func (r *notificationPostgres) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return errors.NewQueryExecutionFailedError("notification.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotificationNotFoundError(id)
	}
	return nil
}

func (r *notificationPostgres) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return errors.NewQueryExecutionFailedError("notification.deleteByUser", err)
	}
	return nil
}

func (r *notificationPostgres) DeleteBySubscription(ctx context.Context, subscriptionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE subscription_id = $1`, subscriptionID)
	if err != nil {
		return errors.NewQueryExecutionFailedError("notification.deleteBySubscription", err)
	}
	return nil
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var status string
	var sentAt sql.NullTime

	if err := row.Scan(&n.ID, &n.UserID, &n.SubscriptionID, &n.Message,
		&status, &n.FailureReason, &n.CreatedAt, &sentAt); err != nil {
		return nil, err
	}
	n.Status = models.NotificationStatus(status)
	if sentAt.Valid {
		t := sentAt.Time
		n.SentAt = &t
	}
	return &n, nil
}

func collectNotifications(rows *sql.Rows) ([]models.Notification, error) {
	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("notification.scan", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("notification.rows", err)
	}
	return out, nil
}
