// internal/channel/chat/linker.go
package chat

import (
	"context"
	"strings"

	"estatehub-notifier/internal/common/logger"
	"estatehub-notifier/internal/repository"
)

// Linker associates a user's chat handle with the provider-specific chat id
// needed to push messages to them. It is driven by the provider's inbound
// "link" command, never by the application's own HTTP surface.
type Linker struct {
	users  repository.UserRepository
	logger logger.Logger
}

func NewLinker(users repository.UserRepository, log logger.Logger) *Linker {
	return &Linker{
		users:  users,
		logger: log.WithFields(map[string]interface{}{"component": "chat-linker"}),
	}
}

// Link resolves username case-insensitively and persists chatID on that
// user. Returns USER_NOT_FOUND when no account registered the handle.
func (l *Linker) Link(ctx context.Context, username string, chatID int64) error {
	user, err := l.users.GetByTelegramUsername(ctx, strings.ToLower(username))
	if err != nil {
		return err
	}

	if err := l.users.SetTelegramChatID(ctx, user.ID, chatID); err != nil {
		return err
	}

	l.logger.Info("telegram account linked", map[string]interface{}{
		"userId": user.ID,
		"chatId": chatID,
	})
	return nil
}
