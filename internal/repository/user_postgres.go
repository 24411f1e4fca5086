// internal/repository/user_postgres.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/models"

	"github.com/redis/go-redis/v9"
)

const userCacheKeyPrefix = "user:contact:"

type userPostgres struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
}

// NewUserPostgres creates the PostgreSQL-backed user directory. When rdb is
// non-nil, GetByID reads through a Redis cache; dispatch fan-out hits the
// same buyers repeatedly, so the cache keeps fan-out off the users table.
func NewUserPostgres(db *sql.DB, rdb *redis.Client, cacheTTL time.Duration) UserRepository {
	return &userPostgres{db: db, redis: rdb, cacheTTL: cacheTTL}
}

func (r *userPostgres) GetByID(ctx context.Context, id string) (*models.User, error) {
	if r.redis != nil {
		if val, err := r.redis.Get(ctx, userCacheKeyPrefix+id).Result(); err == nil {
			var u models.User
			if err := json.Unmarshal([]byte(val), &u); err == nil {
				return &u, nil
			}
		}
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(telegram_username, ''), COALESCE(telegram_chat_id, 0), role
		FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewUserNotFoundError(fmt.Sprintf("userId: %s", id))
		}
		return nil, errors.NewQueryExecutionFailedError("user.get", err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(u); err == nil {
			r.redis.Set(ctx, userCacheKeyPrefix+id, data, r.cacheTTL)
		}
	}
	return u, nil
}

func (r *userPostgres) GetByTelegramUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(telegram_username, ''), COALESCE(telegram_chat_id, 0), role
		FROM users WHERE LOWER(telegram_username) = $1`, strings.ToLower(username))

	u, err := scanUser(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewUserNotFoundError(fmt.Sprintf("telegramUsername: %s", username))
		}
		return nil, errors.NewQueryExecutionFailedError("user.getByTelegramUsername", err)
	}
	return u, nil
}

func (r *userPostgres) SetTelegramChatID(ctx context.Context, userID string, chatID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET telegram_chat_id = $2 WHERE id = $1`, userID, chatID)
	if err != nil {
		return errors.NewQueryExecutionFailedError("user.setTelegramChatId", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewUserNotFoundError(fmt.Sprintf("userId: %s", userID))
	}

	// Stale contact info must not outlive the link.
	if r.redis != nil {
		r.redis.Del(ctx, userCacheKeyPrefix+userID)
	}
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.TelegramUsername,
		&u.TelegramChatID, &u.Role); err != nil {
		return nil, err
	}
	return &u, nil
}
