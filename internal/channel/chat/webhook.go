// internal/channel/chat/webhook.go
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"estatehub-notifier/internal/common/logger"
	"estatehub-notifier/internal/common/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	welcomeReply = "Welcome to EstateHub! Send /link to connect your Telegram account using your Telegram username."

	missingUsernameReply = "Error: You must have a Telegram username set in your Telegram profile to link your account."
)

// Webhook handles the chat provider's inbound update stream. Only the
// /start and /link commands are consumed here; everything else the bot
// receives is ignored.
type Webhook struct {
	provider Provider
	linker   *Linker
	logger   logger.Logger
}

func NewWebhook(provider Provider, linker *Linker, log logger.Logger) *Webhook {
	return &Webhook{
		provider: provider,
		linker:   linker,
		logger:   log.WithFields(map[string]interface{}{"component": "chat-webhook"}),
	}
}

// Handler decodes Bot API updates posted by the provider.
func (w *Webhook) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			w.logger.Warn("undecodable webhook update", map[string]interface{}{"error": err})
			http.Error(rw, "bad request", http.StatusBadRequest)
			return
		}

		w.HandleUpdate(r.Context(), &update)

		rw.Header().Set("Content-Type", "application/json")
		fmt.Fprint(rw, `{"ok":true}`)
	}
}

// HandleUpdate dispatches a single provider update.
func (w *Webhook) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	switch update.Message.Text {
	case "/start":
		metrics.WebhookCommands.WithLabelValues("start", "ok").Inc()
		w.reply(ctx, chatID, welcomeReply)

	case "/link":
		w.handleLink(ctx, update, chatID)
	}
}

func (w *Webhook) handleLink(ctx context.Context, update *tgbotapi.Update, chatID int64) {
	if update.Message.From == nil || update.Message.From.UserName == "" {
		metrics.WebhookCommands.WithLabelValues("link", "missing_username").Inc()
		w.reply(ctx, chatID, missingUsernameReply)
		return
	}
	username := update.Message.From.UserName

	if err := w.linker.Link(ctx, username, chatID); err != nil {
		metrics.WebhookCommands.WithLabelValues("link", "failed").Inc()
		w.logger.Error("link command failed", map[string]interface{}{
			"username": username,
			"error":    err,
		})
		w.reply(ctx, chatID, fmt.Sprintf(
			"Error: Could not link account. Please ensure your Telegram username (%s) is registered in EstateHub.",
			username))
		return
	}

	metrics.WebhookCommands.WithLabelValues("link", "ok").Inc()
	w.reply(ctx, chatID, fmt.Sprintf("Successfully linked Telegram account for %s.", username))
}

func (w *Webhook) reply(ctx context.Context, chatID int64, text string) {
	if err := w.provider.SendText(ctx, chatID, text); err != nil {
		w.logger.Warn("webhook reply failed", map[string]interface{}{
			"chatId": chatID,
			"error":  err,
		})
	}
}
