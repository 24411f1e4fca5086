// internal/channel/chat/adapter.go
package chat

import (
	"context"
	"time"

	commonerrors "estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/common/logger"
	"estatehub-notifier/internal/models"
)

// Adapter is the CHAT transport channel.
type Adapter struct {
	provider Provider
	logger   logger.Logger

	// sleep is swapped out in tests; the rate-limit backoff otherwise
	// blocks the dispatch pass for real.
	sleep func(time.Duration)
}

// NewAdapter builds the chat channel on the given provider.
func NewAdapter(provider Provider, log logger.Logger) *Adapter {
	return &Adapter{
		provider: provider,
		logger:   log.WithFields(map[string]interface{}{"channel": "chat"}),
		sleep:    time.Sleep,
	}
}

func (a *Adapter) Transport() models.Transport {
	return models.TransportChat
}

// Send delivers message to the recipient's linked chat. Preconditions are
// checked in order: a missing chat handle is a profile-configuration error,
// a missing linked chat id means the /link step never happened. The chat is
// probed for liveness before sending. A rate-limited send is retried exactly
// once after the provider's retry-after hint; a second rate limit is a hard
// failure.
func (a *Adapter) Send(ctx context.Context, recipient *models.User, message string, imageRef string) error {
	if !recipient.HasChatHandle() {
		return commonerrors.NewMissingChatHandleError(recipient.ID)
	}
	if !recipient.IsChatLinked() {
		return commonerrors.NewChatNotLinkedError(recipient.ID)
	}

	if err := a.provider.GetChat(ctx, recipient.TelegramChatID); err != nil {
		return err
	}

	err := a.push(ctx, recipient.TelegramChatID, message, imageRef)
	if retryAfter, limited := commonerrors.RetryAfterOf(err); limited {
		a.logger.Warn("rate limit reached, retrying after backoff", map[string]interface{}{
			"chatId":     recipient.TelegramChatID,
			"retryAfter": retryAfter.String(),
		})
		a.sleep(retryAfter)

		err = a.push(ctx, recipient.TelegramChatID, message, imageRef)
		if _, limitedAgain := commonerrors.RetryAfterOf(err); limitedAgain {
			return commonerrors.NewProviderError("telegram", err)
		}
	}
	if err != nil {
		return err
	}

	a.logger.Info("chat message sent", map[string]interface{}{
		"chatId":   recipient.TelegramChatID,
		"hasImage": imageRef != "",
	})
	return nil
}

func (a *Adapter) push(ctx context.Context, chatID int64, message, imageRef string) error {
	if imageRef != "" {
		return a.provider.SendImage(ctx, chatID, imageRef, message)
	}
	return a.provider.SendText(ctx, chatID, message)
}
