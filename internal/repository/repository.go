// internal/repository/repository.go

// Package repository defines narrow storage ports per entity plus their
// PostgreSQL implementations. Services depend on the interfaces only, so
// the orchestrator never sees the storage technology.
package repository

import (
	"context"
	"time"

	"estatehub-notifier/internal/models"
)

// SubscriptionRepository is the storage port for saved searches.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id string) (*models.Subscription, error)
	ListAll(ctx context.Context) ([]models.Subscription, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Subscription, error)
	CountByBuyer(ctx context.Context, buyerID string) (int, error)
	Update(ctx context.Context, sub *models.Subscription) error
	Delete(ctx context.Context, id string) error
}

// NotificationRepository is the storage port for notification records.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]models.Notification, error)
	UpdateStatus(ctx context.Context, id string, status models.NotificationStatus, failureReason string, sentAt *time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
	DeleteBySubscription(ctx context.Context, subscriptionID string) error
}

// UserRepository is the read-mostly port into the marketplace user
// directory; only contact points and chat linking are touched here.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByTelegramUsername(ctx context.Context, username string) (*models.User, error)
	SetTelegramChatID(ctx context.Context, userID string, chatID int64) error
}
