// internal/channel/email/adapter_test.go
package email

import (
	"context"
	"errors"
	"testing"

	commonerrors "estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/common/logger"
	"estatehub-notifier/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	calls         int
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls++
	return m.SendEmailFunc(ctx, params, optFns...)
}

func testConfig() *Config {
	return &Config{
		AWSRegion: "us-east-1",
		FromEmail: "noreply@estatehub.dev",
		FromName:  "EstateHub",
		Subject:   "New Notification from EstateHub",
	}
}

func TestAdapter_Send_Success(t *testing.T) {
	var captured *ses.SendEmailInput
	mock := &MockSESService{
		SendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			captured = params
			return &ses.SendEmailOutput{}, nil
		},
	}
	a := NewAdapterWithClient(testConfig(), mock, logger.NewTestLogger(t))

	user := &models.User{ID: "u1", Email: "buyer@example.com"}
	err := a.Send(context.Background(), user, "New listing: 2BR Flat", "")
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, []string{"buyer@example.com"}, captured.Destination.ToAddresses)
	assert.Equal(t, "New Notification from EstateHub", *captured.Message.Subject.Data)
	assert.Contains(t, *captured.Message.Body.Html.Data, "<p>")
	assert.Contains(t, *captured.Message.Body.Html.Data, "2BR Flat")
	assert.Equal(t, "EstateHub <noreply@estatehub.dev>", *captured.Source)
}

func TestAdapter_Send_MissingEmail_NoProviderCall(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(_ context.Context, _ *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return &ses.SendEmailOutput{}, nil
		},
	}
	a := NewAdapterWithClient(testConfig(), mock, logger.NewNoOpLogger())

	err := a.Send(context.Background(), &models.User{ID: "u1"}, "hello", "")
	assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodeMissingEmail))
	assert.Zero(t, mock.calls, "provider must not be called without an address")
}

func TestAdapter_Send_ProviderFailurePropagates(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(_ context.Context, _ *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("ses unavailable")
		},
	}
	a := NewAdapterWithClient(testConfig(), mock, logger.NewNoOpLogger())

	err := a.Send(context.Background(), &models.User{ID: "u1", Email: "a@b.c"}, "hello", "")
	assert.True(t, commonerrors.HasCode(err, commonerrors.ErrCodeProvider))
	assert.Equal(t, 1, mock.calls, "email sends are not retried")
}
