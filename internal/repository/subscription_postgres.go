// internal/repository/subscription_postgres.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/models"
)

type subscriptionPostgres struct {
	db *sql.DB
}

// NewSubscriptionPostgres creates the PostgreSQL-backed subscription store.
func NewSubscriptionPostgres(db *sql.DB) SubscriptionRepository {
	return &subscriptionPostgres{db: db}
}

func (r *subscriptionPostgres) Create(ctx context.Context, sub *models.Subscription) error {
	filters, err := json.Marshal(sub.Filters)
	if err != nil {
		return errors.NewQueryExecutionFailedError("subscription.create", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, buyer_id, filters, transport, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.BuyerID, filters, string(sub.Transport), sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("subscription.create", err)
	}
	return nil
}

func (r *subscriptionPostgres) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, buyer_id, filters, transport, created_at, updated_at
		FROM subscriptions WHERE id = $1`, id)

	sub, err := scanSubscription(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewSubscriptionNotFoundError(id)
		}
		return nil, errors.NewQueryExecutionFailedError("subscription.get", err)
	}
	return sub, nil
}

func (r *subscriptionPostgres) ListAll(ctx context.Context) ([]models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, buyer_id, filters, transport, created_at, updated_at
		FROM subscriptions ORDER BY created_at`)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("subscription.listAll", err)
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

func (r *subscriptionPostgres) ListByBuyer(ctx context.Context, buyerID string) ([]models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, buyer_id, filters, transport, created_at, updated_at
		FROM subscriptions WHERE buyer_id = $1 ORDER BY created_at`, buyerID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("subscription.listByBuyer", err)
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

func (r *subscriptionPostgres) CountByBuyer(ctx context.Context, buyerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE buyer_id = $1`, buyerID).Scan(&count)
	if err != nil {
		return 0, errors.NewQueryExecutionFailedError("subscription.countByBuyer", err)
	}
	return count, nil
}

func (r *subscriptionPostgres) Update(ctx context.Context, sub *models.Subscription) error {
	filters, err := json.Marshal(sub.Filters)
	if err != nil {
		return errors.NewQueryExecutionFailedError("subscription.update", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET filters = $2, transport = $3, updated_at = $4
		WHERE id = $1`,
		sub.ID, filters, string(sub.Transport), sub.UpdatedAt,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("subscription.update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewSubscriptionNotFoundError(sub.ID)
	}
	return nil
}

func (r *subscriptionPostgres) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return errors.NewQueryExecutionFailedError("subscription.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewSubscriptionNotFoundError(id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var filters []byte
	var transport string

	if err := row.Scan(&sub.ID, &sub.BuyerID, &filters, &transport,
		&sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(filters, &sub.Filters); err != nil {
		return nil, err
	}
	sub.Transport = models.Transport(transport)
	return &sub, nil
}

func collectSubscriptions(rows *sql.Rows) ([]models.Subscription, error) {
	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("subscription.scan", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("subscription.rows", err)
	}
	return subs, nil
}
