// internal/channel/email/adapter.go

// Package email delivers notifications over SES.
package email

import (
	"context"
	"fmt"
	"html"

	commonerrors "estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/common/logger"
	"estatehub-notifier/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the slice of the SES client we use; narrowed for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Config holds the sender identity for outgoing notification mail.
type Config struct {
	AWSRegion string
	FromEmail string
	FromName  string
	Subject   string
}

// Adapter is the EMAIL transport channel.
type Adapter struct {
	config *Config
	client SESService
	logger logger.Logger
}

// NewAdapter builds the email channel on a fresh SES client.
func NewAdapter(ctx context.Context, cfg *Config, log logger.Logger) (*Adapter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewAdapterWithClient(cfg, ses.NewFromConfig(awsCfg), log), nil
}

// NewAdapterWithClient builds the email channel on an existing client.
func NewAdapterWithClient(cfg *Config, client SESService, log logger.Logger) *Adapter {
	return &Adapter{
		config: cfg,
		client: client,
		logger: log.WithFields(map[string]interface{}{"channel": "email"}),
	}
}

func (a *Adapter) Transport() models.Transport {
	return models.TransportEmail
}

// Send mails the rendered message as a one-paragraph HTML body. A recipient
// without an email address fails with MISSING_EMAIL before any provider
// call; provider failures propagate as PROVIDER_ERROR without retry.
func (a *Adapter) Send(ctx context.Context, recipient *models.User, message string, _ string) error {
	if !recipient.HasEmail() {
		return commonerrors.NewMissingEmailError(recipient.ID)
	}

	htmlBody := fmt.Sprintf("<p>%s</p>", html.EscapeString(message))

	_, err := a.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{recipient.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(a.config.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(message)},
				Html: &types.Content{Data: aws.String(htmlBody)},
			},
		},
		Source: aws.String(fmt.Sprintf("%s <%s>", a.config.FromName, a.config.FromEmail)),
	})
	if err != nil {
		a.logger.Error("email send failed", map[string]interface{}{
			"error": err,
			"email": recipient.Email,
		})
		return commonerrors.NewProviderError("ses", err)
	}

	a.logger.Info("notification email sent", map[string]interface{}{
		"email": recipient.Email,
	})
	return nil
}
