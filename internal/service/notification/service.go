// internal/service/notification/service.go
package notification

import (
	"context"
	"time"

	"estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/common/logger"
	"estatehub-notifier/internal/models"
	"estatehub-notifier/internal/repository"

	"github.com/google/uuid"
)

// Service manages notification records and their status lifecycle. A record
// starts at SENT ("accepted, in flight") and moves exactly once to DELIVERED
// or FAILED. Both end states are terminal; there is no retry mechanism for a
// FAILED notification, it remains a user-visible audit record.
type Service struct {
	notifications repository.NotificationRepository
	subscriptions repository.SubscriptionRepository
	logger        logger.Logger
	now           func() time.Time
}

func NewService(notifications repository.NotificationRepository, subscriptions repository.SubscriptionRepository, log logger.Logger) *Service {
	return &Service{
		notifications: notifications,
		subscriptions: subscriptions,
		logger:        log,
		now:           time.Now,
	}
}

// Create persists a new record with status SENT, then verifies the referenced
// subscription exists. A dangling subscription id marks the record FAILED and
// re-raises the error: the record must exist either way so the failure is
// auditable, and the caller must learn about the integrity defect.
func (s *Service) Create(ctx context.Context, userID, subscriptionID, message string) (*models.Notification, error) {
	n := &models.Notification{
		ID:             uuid.New().String(),
		UserID:         userID,
		SubscriptionID: subscriptionID,
		Message:        message,
		Status:         models.NotificationSent,
		CreatedAt:      s.now(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}

	if _, err := s.subscriptions.GetByID(ctx, subscriptionID); err != nil {
		if errors.HasCode(err, errors.ErrCodeSubscriptionNotFound) {
			if markErr := s.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
				s.logger.Error("failed to mark dangling notification", map[string]interface{}{
					"notificationId": n.ID,
					"error":          markErr,
				})
			}
			return nil, err
		}
		return nil, err
	}

	s.logger.Debug("notification record created", map[string]interface{}{
		"notificationId": n.ID,
		"userId":         userID,
		"subscriptionId": subscriptionID,
	})
	return n, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	return s.notifications.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.notifications.ListByUser(ctx, userID)
}

func (s *Service) ListBySubscription(ctx context.Context, subscriptionID string) ([]models.Notification, error) {
	return s.notifications.ListBySubscription(ctx, subscriptionID)
}

// MarkDelivered transitions SENT -> DELIVERED and stamps the sent-at time.
func (s *Service) MarkDelivered(ctx context.Context, id string) error {
	return s.UpdateStatus(ctx, id, models.NotificationDelivered, "")
}

// MarkFailed transitions SENT -> FAILED, recording why. FAILED records keep a
// nil sent-at timestamp.
func (s *Service) MarkFailed(ctx context.Context, id, reason string) error {
	return s.UpdateStatus(ctx, id, models.NotificationFailed, reason)
}

// UpdateStatus applies the status state machine. Only SENT records may move,
// and only to DELIVERED or FAILED.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.NotificationStatus, failureReason string) error {
	current, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status.IsTerminal() {
		return errors.NewInvalidStatusTransitionError(string(current.Status), string(status))
	}
	if status != models.NotificationDelivered && status != models.NotificationFailed {
		return errors.NewInvalidStatusTransitionError(string(current.Status), string(status))
	}

	var sentAt *time.Time
	if status == models.NotificationDelivered {
		t := s.now()
		sentAt = &t
		failureReason = ""
	}
	return s.notifications.UpdateStatus(ctx, id, status, failureReason, sentAt)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.notifications.Delete(ctx, id)
}

// ClearForUser removes every notification record belonging to the user.
func (s *Service) ClearForUser(ctx context.Context, userID string) error {
	return s.notifications.DeleteByUser(ctx, userID)
}
