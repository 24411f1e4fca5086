// internal/service/dispatch/service.go
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"estatehub-notifier/internal/channel"
	"estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/common/logger"
	"estatehub-notifier/internal/common/metrics"
	"estatehub-notifier/internal/matching"
	"estatehub-notifier/internal/models"
	"estatehub-notifier/internal/repository"
	"estatehub-notifier/internal/service/notification"
)

// Service coordinates listing events end to end: it pulls the full
// subscription set, narrows it with the filter evaluator, and for each match
// creates the notification record before attempting delivery on the
// subscription's transport. One recipient's failure never aborts the pass;
// each subscription is processed independently and its outcome lands on its
// own record.
//
// Filtering happens in-process over the whole subscription set. That is
// O(subscriptions) per listing event, a known scaling limitation accepted for
// correctness.
type Service struct {
	subscriptions repository.SubscriptionRepository
	users         repository.UserRepository
	records       *notification.Service
	channels      map[models.Transport]channel.Channel
	baseURL       string
	sendTimeout   time.Duration
	logger        logger.Logger
}

func NewService(
	subscriptions repository.SubscriptionRepository,
	users repository.UserRepository,
	records *notification.Service,
	channels []channel.Channel,
	baseURL string,
	sendTimeout time.Duration,
	log logger.Logger,
) *Service {
	byTransport := make(map[models.Transport]channel.Channel, len(channels))
	for _, ch := range channels {
		byTransport[ch.Transport()] = ch
	}
	return &Service{
		subscriptions: subscriptions,
		users:         users,
		records:       records,
		channels:      byTransport,
		baseURL:       baseURL,
		sendTimeout:   sendTimeout,
		logger:        log,
	}
}

// ==========================
// Listing Event Entry Points
// ==========================

// DispatchForNewListing fans a freshly created listing out to every matching
// subscription.
func (s *Service) DispatchForNewListing(ctx context.Context, listing *models.Listing) error {
	metrics.DispatchEvents.WithLabelValues("listing_created").Inc()
	return s.dispatch(ctx, listing, "listing_created")
}

// DispatchForUpdatedListing re-dispatches after an edit, but only when the
// edit is material: photos, title, price or area changed, or the listing came
// back from Archived to Active. Cosmetic edits (description, location) do not
// re-trigger. Qualifying edits re-notify even if the same buyer was already
// notified for this listing; a price drop is worth a second message.
func (s *Service) DispatchForUpdatedListing(ctx context.Context, old, updated *models.Listing) error {
	if !materialChange(old, updated) {
		s.logger.Debug("listing update not material, skipping dispatch", map[string]interface{}{
			"listingId": updated.ID,
		})
		return nil
	}
	metrics.DispatchEvents.WithLabelValues("listing_updated").Inc()
	return s.dispatch(ctx, updated, "listing_updated")
}

func (s *Service) dispatch(ctx context.Context, listing *models.Listing, event string) error {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.WithLabelValues(event).Observe(time.Since(start).Seconds())
	}()

	// A listing id that sanitizes to nothing cannot produce a deep link for
	// anyone; that is a hard error, not a silent skip.
	message, err := renderListingMessage(listing, s.baseURL)
	if err != nil {
		return err
	}

	subs, err := s.subscriptions.ListAll(ctx)
	if err != nil {
		return err
	}

	matched := 0
	for i := range subs {
		sub := &subs[i]
		if !matching.Matches(listing, sub.Filters) {
			continue
		}
		matched++

		if err := s.deliver(ctx, sub, message, listing.FirstPhoto()); err != nil {
			s.logger.Error("dispatch failed for subscription", map[string]interface{}{
				"event":          event,
				"listingId":      listing.ID,
				"subscriptionId": sub.ID,
				"buyerId":        sub.BuyerID,
				"error":          err,
			})
		}
	}

	s.logger.Info("dispatch pass complete", map[string]interface{}{
		"event":         event,
		"listingId":     listing.ID,
		"subscriptions": len(subs),
		"matched":       matched,
	})
	return nil
}

// ==========================
// Notification Operations
// ==========================

// Notify carries an arbitrary caller-supplied message to one subscription's
// buyer. The record is created first so a delivery failure stays auditable;
// only a dangling subscription id is returned as an error, every other
// failure ends on the record as FAILED.
func (s *Service) Notify(ctx context.Context, userID, subscriptionID, message string) (*models.Notification, error) {
	sub, err := s.subscriptions.GetByID(ctx, subscriptionID)
	if err != nil && !errors.HasCode(err, errors.ErrCodeSubscriptionNotFound) {
		return nil, err
	}

	record, createErr := s.records.Create(ctx, userID, subscriptionID, message)
	if createErr != nil {
		return nil, createErr
	}

	if sendErr := s.send(ctx, record, sub, ""); sendErr != nil {
		s.logger.Error("notification delivery failed", map[string]interface{}{
			"notificationId": record.ID,
			"subscriptionId": subscriptionID,
			"error":          sendErr,
		})
	}
	return s.records.GetByID(ctx, record.ID)
}

func (s *Service) GetNotificationsForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.records.ListByUser(ctx, userID)
}

func (s *Service) GetNotificationsForSubscription(ctx context.Context, subscriptionID string) ([]models.Notification, error) {
	return s.records.ListBySubscription(ctx, subscriptionID)
}

func (s *Service) UpdateNotificationStatus(ctx context.Context, id string, status models.NotificationStatus) error {
	return s.records.UpdateStatus(ctx, id, status, "")
}

func (s *Service) DeleteNotification(ctx context.Context, id string) error {
	return s.records.Delete(ctx, id)
}

func (s *Service) ClearNotificationsForUser(ctx context.Context, userID string) error {
	return s.records.ClearForUser(ctx, userID)
}

// ==========================
// Delivery
// ==========================

// deliver creates the record and pushes the message for one matched
// subscription. The record exists before the first provider call so a
// failure is observable even when delivery never started.
func (s *Service) deliver(ctx context.Context, sub *models.Subscription, message, imageRef string) error {
	record, err := s.records.Create(ctx, sub.BuyerID, sub.ID, message)
	if err != nil {
		return err
	}
	return s.send(ctx, record, sub, imageRef)
}

func (s *Service) send(ctx context.Context, record *models.Notification, sub *models.Subscription, imageRef string) error {
	transport := models.Transport("")
	if sub != nil {
		transport = sub.Transport
	}

	sendErr := func() error {
		if sub == nil {
			return errors.NewSubscriptionNotFoundError(record.SubscriptionID)
		}
		ch, ok := s.channels[sub.Transport]
		if !ok {
			return errors.NewTransportUnsatisfiableError(string(sub.Transport), "no channel adapter configured")
		}

		buyer, err := s.users.GetByID(ctx, sub.BuyerID)
		if err != nil {
			return err
		}

		sendCtx := ctx
		if s.sendTimeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(ctx, s.sendTimeout)
			defer cancel()
		}
		return ch.Send(sendCtx, buyer, record.Message, imageRef)
	}()

	if sendErr != nil {
		metrics.NotificationsSent.WithLabelValues(string(transport), "FAILED").Inc()
		metrics.NotificationFailures.WithLabelValues(string(transport), string(errors.CodeOf(sendErr))).Inc()
		if markErr := s.records.MarkFailed(ctx, record.ID, sendErr.Error()); markErr != nil {
			s.logger.Error("failed to record delivery failure", map[string]interface{}{
				"notificationId": record.ID,
				"error":          markErr,
			})
		}
		return sendErr
	}

	metrics.NotificationsSent.WithLabelValues(string(transport), "DELIVERED").Inc()
	return s.records.MarkDelivered(ctx, record.ID)
}

// ==========================
// Helpers
// ==========================

func materialChange(old, updated *models.Listing) bool {
	if old.Status == models.ListingArchived && updated.Status == models.ListingActive {
		return true
	}
	return old.Title != updated.Title ||
		old.Price != updated.Price ||
		old.Area != updated.Area ||
		!equalStrings(old.Photos, updated.Photos)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func renderListingMessage(listing *models.Listing, baseURL string) (string, error) {
	id := sanitizeListingID(listing.ID)
	if id == "" {
		return "", errors.NewInvalidListingIDError(listing.ID)
	}
	link := fmt.Sprintf("%s/listings/%s", strings.TrimRight(baseURL, "/"), id)
	return fmt.Sprintf("New listing: %s\nPrice: %d\nArea: %d\n%s",
		listing.Title, listing.Price, listing.Area, link), nil
}

// sanitizeListingID keeps only the characters safe in a canonical deep link.
func sanitizeListingID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
