// internal/service/dispatch/service_test.go
package dispatch

import (
	"context"
	"testing"
	"time"

	"estatehub-notifier/internal/channel"
	"estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/common/logger"
	"estatehub-notifier/internal/models"
	"estatehub-notifier/internal/service/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type MockSubscriptionRepo struct {
	subs []models.Subscription
}

func (m *MockSubscriptionRepo) Create(_ context.Context, sub *models.Subscription) error {
	m.subs = append(m.subs, *sub)
	return nil
}

func (m *MockSubscriptionRepo) GetByID(_ context.Context, id string) (*models.Subscription, error) {
	for i := range m.subs {
		if m.subs[i].ID == id {
			cp := m.subs[i]
			return &cp, nil
		}
	}
	return nil, errors.NewSubscriptionNotFoundError(id)
}

func (m *MockSubscriptionRepo) ListAll(_ context.Context) ([]models.Subscription, error) {
	out := make([]models.Subscription, len(m.subs))
	copy(out, m.subs)
	return out, nil
}

func (m *MockSubscriptionRepo) ListByBuyer(_ context.Context, buyerID string) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range m.subs {
		if sub.BuyerID == buyerID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) CountByBuyer(_ context.Context, buyerID string) (int, error) {
	list, _ := m.ListByBuyer(context.Background(), buyerID)
	return len(list), nil
}

func (m *MockSubscriptionRepo) Update(context.Context, *models.Subscription) error { return nil }
func (m *MockSubscriptionRepo) Delete(context.Context, string) error               { return nil }

type MockNotificationRepo struct {
	records map[string]*models.Notification
	order   []string
}

func newMockNotificationRepo() *MockNotificationRepo {
	return &MockNotificationRepo{records: map[string]*models.Notification{}}
}

func (m *MockNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	cp := *n
	m.records[n.ID] = &cp
	m.order = append(m.order, n.ID)
	return nil
}

func (m *MockNotificationRepo) GetByID(_ context.Context, id string) (*models.Notification, error) {
	n, ok := m.records[id]
	if !ok {
		return nil, errors.NewNotificationNotFoundError(id)
	}
	cp := *n
	return &cp, nil
}

func (m *MockNotificationRepo) ListByUser(_ context.Context, userID string) ([]models.Notification, error) {
	var out []models.Notification
	for _, id := range m.order {
		if n, ok := m.records[id]; ok && n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *MockNotificationRepo) ListBySubscription(_ context.Context, subscriptionID string) ([]models.Notification, error) {
	var out []models.Notification
	for _, id := range m.order {
		if n, ok := m.records[id]; ok && n.SubscriptionID == subscriptionID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *MockNotificationRepo) UpdateStatus(_ context.Context, id string, status models.NotificationStatus, failureReason string, sentAt *time.Time) error {
	n, ok := m.records[id]
	if !ok {
		return errors.NewNotificationNotFoundError(id)
	}
	n.Status = status
	n.FailureReason = failureReason
	n.SentAt = sentAt
	return nil
}

func (m *MockNotificationRepo) Delete(_ context.Context, id string) error {
	delete(m.records, id)
	return nil
}

func (m *MockNotificationRepo) DeleteByUser(_ context.Context, userID string) error {
	for id, n := range m.records {
		if n.UserID == userID {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *MockNotificationRepo) DeleteBySubscription(_ context.Context, subscriptionID string) error {
	for id, n := range m.records {
		if n.SubscriptionID == subscriptionID {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *MockNotificationRepo) all() []models.Notification {
	var out []models.Notification
	for _, id := range m.order {
		if n, ok := m.records[id]; ok {
			out = append(out, *n)
		}
	}
	return out
}

type MockUserRepo struct {
	users map[string]*models.User
}

func (m *MockUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, errors.NewUserNotFoundError("userId: " + id)
	}
	return u, nil
}

func (m *MockUserRepo) GetByTelegramUsername(context.Context, string) (*models.User, error) {
	return nil, nil
}

func (m *MockUserRepo) SetTelegramChatID(context.Context, string, int64) error { return nil }

type sentMessage struct {
	userID   string
	message  string
	imageRef string
}

// MockChannel records sends and fails per-recipient on demand.
type MockChannel struct {
	transport models.Transport
	sent      []sentMessage
	failFor   map[string]error
}

func newMockChannel(transport models.Transport) *MockChannel {
	return &MockChannel{transport: transport, failFor: map[string]error{}}
}

func (m *MockChannel) Transport() models.Transport { return m.transport }

func (m *MockChannel) Send(_ context.Context, recipient *models.User, message, imageRef string) error {
	if err, ok := m.failFor[recipient.ID]; ok {
		return err
	}
	m.sent = append(m.sent, sentMessage{userID: recipient.ID, message: message, imageRef: imageRef})
	return nil
}

type fixture struct {
	svc     *Service
	subs    *MockSubscriptionRepo
	notifs  *MockNotificationRepo
	email   *MockChannel
	chat    *MockChannel
	users   *MockUserRepo
}

func newFixture() *fixture {
	subs := &MockSubscriptionRepo{}
	notifs := newMockNotificationRepo()
	users := &MockUserRepo{users: map[string]*models.User{}}
	email := newMockChannel(models.TransportEmail)
	chat := newMockChannel(models.TransportChat)
	log := logger.NewNoOpLogger()

	records := notification.NewService(notifs, subs, log)
	svc := NewService(subs, users, records, []channel.Channel{email, chat},
		"https://estatehub.example", time.Second, log)

	return &fixture{svc: svc, subs: subs, notifs: notifs, email: email, chat: chat, users: users}
}

func (f *fixture) addBuyer(id string) {
	f.users.users[id] = &models.User{
		ID: id, Name: id, Email: id + "@example.com",
		TelegramUsername: id, TelegramChatID: 42,
	}
}

func (f *fixture) addSubscription(id, buyerID string, filters models.FilterSet, transport models.Transport) {
	f.addBuyer(buyerID)
	f.subs.subs = append(f.subs.subs, models.Subscription{
		ID: id, BuyerID: buyerID, Filters: filters, Transport: transport,
	})
}

func activeListing() *models.Listing {
	cat := "cat-1"
	return &models.Listing{
		ID:         "lst-001",
		UserID:     "seller-001",
		CategoryID: &cat,
		Tags:       []string{"lux"},
		Title:      "2BR Flat",
		Type:       "apartment",
		Price:      50000,
		Area:       60,
		Photos:     []string{"https://img.example/1.jpg"},
		Status:     models.ListingActive,
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestDispatchForNewListing_EndToEnd(t *testing.T) {
	f := newFixture()
	maxPrice := int64(60000)
	cat := "cat-1"
	f.addSubscription("sub-001", "buyer-001",
		models.FilterSet{Category: &cat, MaxPrice: &maxPrice}, models.TransportEmail)

	require.NoError(t, f.svc.DispatchForNewListing(context.Background(), activeListing()))

	records := f.notifs.all()
	require.Len(t, records, 1)
	assert.Equal(t, models.NotificationDelivered, records[0].Status)
	require.NotNil(t, records[0].SentAt)
	assert.Contains(t, records[0].Message, "2BR Flat")
	assert.Contains(t, records[0].Message, "https://estatehub.example/listings/lst-001")

	require.Len(t, f.email.sent, 1)
	assert.Equal(t, "https://img.example/1.jpg", f.email.sent[0].imageRef)
}

func TestDispatchForNewListing_NonMatchingSubscriptionSkipped(t *testing.T) {
	f := newFixture()
	minPrice := int64(100000)
	f.addSubscription("sub-001", "buyer-001",
		models.FilterSet{MinPrice: &minPrice}, models.TransportEmail)

	require.NoError(t, f.svc.DispatchForNewListing(context.Background(), activeListing()))

	assert.Empty(t, f.notifs.all())
	assert.Empty(t, f.email.sent)
}

func TestDispatchForNewListing_FanOutIsolation(t *testing.T) {
	f := newFixture()
	f.addSubscription("sub-001", "buyer-001", models.FilterSet{}, models.TransportEmail)
	f.addSubscription("sub-002", "buyer-002", models.FilterSet{}, models.TransportEmail)
	f.addSubscription("sub-003", "buyer-003", models.FilterSet{}, models.TransportEmail)
	f.email.failFor["buyer-002"] = errors.NewProviderError("ses", assert.AnError)

	require.NoError(t, f.svc.DispatchForNewListing(context.Background(), activeListing()))

	byBuyer := map[string]models.NotificationStatus{}
	for _, n := range f.notifs.all() {
		byBuyer[n.UserID] = n.Status
	}
	assert.Equal(t, models.NotificationDelivered, byBuyer["buyer-001"])
	assert.Equal(t, models.NotificationFailed, byBuyer["buyer-002"])
	assert.Equal(t, models.NotificationDelivered, byBuyer["buyer-003"])
}

func TestDispatchForNewListing_RecordExistsBeforeFailedSend(t *testing.T) {
	f := newFixture()
	f.addSubscription("sub-001", "buyer-001", models.FilterSet{}, models.TransportChat)
	f.chat.failFor["buyer-001"] = errors.NewChatNotLinkedError("buyer-001")

	require.NoError(t, f.svc.DispatchForNewListing(context.Background(), activeListing()))

	records := f.notifs.all()
	require.Len(t, records, 1)
	assert.Equal(t, models.NotificationFailed, records[0].Status)
	assert.Contains(t, records[0].FailureReason, "CHAT_NOT_LINKED")
	assert.Nil(t, records[0].SentAt)
}

func TestDispatchForNewListing_InvalidListingID(t *testing.T) {
	f := newFixture()
	f.addSubscription("sub-001", "buyer-001", models.FilterSet{}, models.TransportEmail)

	listing := activeListing()
	listing.ID = "@@@///"

	err := f.svc.DispatchForNewListing(context.Background(), listing)

	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidListingID))
	assert.Empty(t, f.notifs.all(), "hard error happens before any record is created")
}

func TestDispatchForUpdatedListing_TriggerMatrix(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(l *models.Listing)
		dispatch bool
	}{
		{"description only", func(l *models.Listing) { l.Description = "now with balcony" }, false},
		{"location only", func(l *models.Listing) { l.Location = "downtown" }, false},
		{"title changed", func(l *models.Listing) { l.Title = "3BR Flat" }, true},
		{"price changed", func(l *models.Listing) { l.Price = 45000 }, true},
		{"area changed", func(l *models.Listing) { l.Area = 75 }, true},
		{"photos changed", func(l *models.Listing) { l.Photos = append(l.Photos, "https://img.example/2.jpg") }, true},
		{"archived to active", func(l *models.Listing) { l.Status = models.ListingActive }, true},
		{"active to archived", func(l *models.Listing) { l.Status = models.ListingArchived }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.addSubscription("sub-001", "buyer-001", models.FilterSet{}, models.TransportEmail)

			old := activeListing()
			if tt.name == "archived to active" {
				old.Status = models.ListingArchived
			}
			updated := *old
			tt.mutate(&updated)

			require.NoError(t, f.svc.DispatchForUpdatedListing(context.Background(), old, &updated))

			if tt.dispatch {
				assert.Len(t, f.notifs.all(), 1)
			} else {
				assert.Empty(t, f.notifs.all())
			}
		})
	}
}

func TestNotify_LiteralMessage(t *testing.T) {
	f := newFixture()
	f.addSubscription("sub-001", "buyer-001", models.FilterSet{}, models.TransportChat)

	record, err := f.svc.Notify(context.Background(), "buyer-001", "sub-001", "Your subscription expires soon")

	require.NoError(t, err)
	assert.Equal(t, models.NotificationDelivered, record.Status)
	require.Len(t, f.chat.sent, 1)
	assert.Equal(t, "Your subscription expires soon", f.chat.sent[0].message)
	assert.Empty(t, f.chat.sent[0].imageRef)
}

func TestNotify_DanglingSubscription(t *testing.T) {
	f := newFixture()
	f.addBuyer("buyer-001")

	_, err := f.svc.Notify(context.Background(), "buyer-001", "sub-gone", "hello")

	assert.True(t, errors.HasCode(err, errors.ErrCodeSubscriptionNotFound))

	// The record still exists, marked FAILED, for auditability.
	records := f.notifs.all()
	require.Len(t, records, 1)
	assert.Equal(t, models.NotificationFailed, records[0].Status)
}

func TestNotify_DeliveryFailureEndsOnRecord(t *testing.T) {
	f := newFixture()
	f.addSubscription("sub-001", "buyer-001", models.FilterSet{}, models.TransportEmail)
	f.email.failFor["buyer-001"] = errors.NewMissingEmailError("buyer-001")

	record, err := f.svc.Notify(context.Background(), "buyer-001", "sub-001", "hello")

	require.NoError(t, err)
	assert.Equal(t, models.NotificationFailed, record.Status)
	assert.Contains(t, record.FailureReason, "MISSING_EMAIL")
}

// ==========================
// Helper Tests
// ==========================

func TestRenderListingMessage(t *testing.T) {
	msg, err := renderListingMessage(activeListing(), "https://estatehub.example/")
	require.NoError(t, err)
	assert.Contains(t, msg, "2BR Flat")
	assert.Contains(t, msg, "50000")
	assert.Contains(t, msg, "60")
	assert.Contains(t, msg, "https://estatehub.example/listings/lst-001")
}

func TestSanitizeListingID(t *testing.T) {
	assert.Equal(t, "lst-001", sanitizeListingID("lst-001"))
	assert.Equal(t, "lst001", sanitizeListingID("lst_0 0?1"))
	assert.Equal(t, "", sanitizeListingID("@!/."))
}
