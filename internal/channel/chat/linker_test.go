// internal/channel/chat/linker_test.go
package chat

import (
	"context"
	"testing"

	commonerrors "estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/common/logger"
	"estatehub-notifier/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockUserRepo struct {
	GetByIDFunc               func(ctx context.Context, id string) (*models.User, error)
	GetByTelegramUsernameFunc func(ctx context.Context, username string) (*models.User, error)
	SetTelegramChatIDFunc     func(ctx context.Context, userID string, chatID int64) error
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockUserRepo) GetByTelegramUsername(ctx context.Context, username string) (*models.User, error) {
	return m.GetByTelegramUsernameFunc(ctx, username)
}

func (m *MockUserRepo) SetTelegramChatID(ctx context.Context, userID string, chatID int64) error {
	return m.SetTelegramChatIDFunc(ctx, userID, chatID)
}

func TestLinker_Link_Success(t *testing.T) {
	var lookedUp string
	var linkedUserID string
	var linkedChatID int64

	repo := &MockUserRepo{
		GetByTelegramUsernameFunc: func(_ context.Context, username string) (*models.User, error) {
			lookedUp = username
			return &models.User{ID: "u1", TelegramUsername: "buyer"}, nil
		},
		SetTelegramChatIDFunc: func(_ context.Context, userID string, chatID int64) error {
			linkedUserID, linkedChatID = userID, chatID
			return nil
		},
	}
	l := NewLinker(repo, logger.NewTestLogger(t))

	require.NoError(t, l.Link(context.Background(), "Buyer", 42))
	assert.Equal(t, "buyer", lookedUp, "handle lookup is case-insensitive")
	assert.Equal(t, "u1", linkedUserID)
	assert.EqualValues(t, 42, linkedChatID)
}

func TestLinker_Link_UnknownHandle(t *testing.T) {
	repo := &MockUserRepo{
		GetByTelegramUsernameFunc: func(_ context.Context, username string) (*models.User, error) {
			return nil, commonerrors.NewUserNotFoundError("telegramUsername: " + username)
		},
		SetTelegramChatIDFunc: func(_ context.Context, _ string, _ int64) error {
			t.Fatal("must not persist a chat id for an unknown handle")
			return nil
		},
	}
	l := NewLinker(repo, logger.NewNoOpLogger())

	err := l.Link(context.Background(), "stranger", 42)
	assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodeUserNotFound))
}
