// internal/service/subscription/service.go
package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/common/logger"
	"estatehub-notifier/internal/common/validation"
	"estatehub-notifier/internal/models"
	"estatehub-notifier/internal/repository"

	"github.com/google/uuid"
)

// Service manages a buyer's saved searches. Two gates guard creation: a
// per-buyer cardinality cap and transport satisfiability. Satisfiability for
// CHAT checks only that a chat handle exists; the linked chat id is verified
// lazily at send time because linking can happen after subscribing.
type Service struct {
	subscriptions repository.SubscriptionRepository
	notifications repository.NotificationRepository
	users         repository.UserRepository
	limit         int
	logger        logger.Logger
	now           func() time.Time
}

func NewService(
	subscriptions repository.SubscriptionRepository,
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	limit int,
	log logger.Logger,
) *Service {
	return &Service{
		subscriptions: subscriptions,
		notifications: notifications,
		users:         users,
		limit:         limit,
		logger:        log,
		now:           time.Now,
	}
}

func (s *Service) Create(ctx context.Context, buyerID string, rawFilters json.RawMessage, transport models.Transport) (*models.Subscription, error) {
	filters, err := validation.ValidateFilterSet(rawFilters)
	if err != nil {
		return nil, err
	}

	count, err := s.subscriptions.CountByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if count >= s.limit {
		return nil, errors.NewSubscriptionLimitReachedError(buyerID, s.limit)
	}

	if err := s.checkTransport(ctx, buyerID, transport); err != nil {
		return nil, err
	}

	now := s.now()
	sub := &models.Subscription{
		ID:        uuid.New().String(),
		BuyerID:   buyerID,
		Filters:   filters,
		Transport: transport,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("subscription created", map[string]interface{}{
		"subscriptionId": sub.ID,
		"buyerId":        buyerID,
		"transport":      string(transport),
	})
	return sub, nil
}

// Update replaces the filter set and transport. Transport satisfiability is
// re-checked only when the transport actually changes.
func (s *Service) Update(ctx context.Context, id string, rawFilters json.RawMessage, transport models.Transport) (*models.Subscription, error) {
	existing, err := s.subscriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	filters, err := validation.ValidateFilterSet(rawFilters)
	if err != nil {
		return nil, err
	}

	if transport != existing.Transport {
		if err := s.checkTransport(ctx, existing.BuyerID, transport); err != nil {
			return nil, err
		}
	}

	existing.Filters = filters
	existing.Transport = transport
	existing.UpdatedAt = s.now()
	if err := s.subscriptions.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete purges the subscription's notification records first; the schema
// carries no ON DELETE CASCADE.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.subscriptions.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.notifications.DeleteBySubscription(ctx, id); err != nil {
		return err
	}
	return s.subscriptions.Delete(ctx, id)
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	return s.subscriptions.GetByID(ctx, id)
}

func (s *Service) ListForUser(ctx context.Context, buyerID string) ([]models.Subscription, error) {
	return s.subscriptions.ListByBuyer(ctx, buyerID)
}

func (s *Service) checkTransport(ctx context.Context, buyerID string, transport models.Transport) error {
	buyer, err := s.users.GetByID(ctx, buyerID)
	if err != nil {
		return err
	}

	switch transport {
	case models.TransportEmail:
		if !buyer.HasEmail() {
			return errors.NewTransportUnsatisfiableError(string(transport), "buyer has no email address")
		}
	case models.TransportChat:
		if !buyer.HasChatHandle() {
			return errors.NewTransportUnsatisfiableError(string(transport), "buyer has no chat handle")
		}
	default:
		return errors.NewTransportUnsatisfiableError(string(transport), fmt.Sprintf("unknown transport %q", transport))
	}
	return nil
}
