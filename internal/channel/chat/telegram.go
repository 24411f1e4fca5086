// internal/channel/chat/telegram.go
package chat

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	commonerrors "estatehub-notifier/internal/common/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramProvider implements Provider on the Bot API SDK. The SDK does not
// take a context; call deadlines are bounded by the bot's HTTP client.
type telegramProvider struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramProvider authenticates the bot token against the Bot API.
func NewTelegramProvider(token string) (Provider, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &telegramProvider{bot: bot}, nil
}

// RegisterWebhook points the Bot API at our inbound update endpoint.
func RegisterWebhook(p Provider, publicURL string) error {
	tp, ok := p.(*telegramProvider)
	if !ok {
		return nil
	}
	wh, err := tgbotapi.NewWebhook(publicURL)
	if err != nil {
		return err
	}
	_, err = tp.bot.Request(wh)
	return err
}

func (p *telegramProvider) GetChat(_ context.Context, chatID int64) error {
	_, err := p.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		if isChatNotFound(err) {
			return commonerrors.NewChatNotFoundError(chatID, err)
		}
		return mapTelegramError(err)
	}
	return nil
}

func (p *telegramProvider) SendText(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := p.bot.Send(msg); err != nil {
		return mapTelegramError(err)
	}
	return nil
}

func (p *telegramProvider) SendImage(_ context.Context, chatID int64, imageRef, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(imageRef))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if _, err := p.bot.Send(photo); err != nil {
		return mapTelegramError(err)
	}
	return nil
}

func isChatNotFound(err error) bool {
	var apiErr *tgbotapi.Error
	return stderrors.As(err, &apiErr) &&
		strings.Contains(strings.ToLower(apiErr.Message), "chat not found")
}

func mapTelegramError(err error) error {
	var apiErr *tgbotapi.Error
	if stderrors.As(err, &apiErr) && apiErr.Code == 429 {
		retryAfter := time.Duration(apiErr.ResponseParameters.RetryAfter) * time.Second
		return commonerrors.NewRateLimitedError(retryAfter, err)
	}
	return commonerrors.NewProviderError("telegram", err)
}
