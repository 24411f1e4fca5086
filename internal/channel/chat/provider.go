// internal/channel/chat/provider.go

// Package chat delivers notifications over the Telegram Bot API and hosts
// the chat-identity linking driven by the provider's inbound webhook.
package chat

import "context"

// Provider is the slice of the chat provider we use; narrowed for mocking.
// Implementations translate provider failures into the typed errors of
// internal/common/errors: a dead chat surfaces as CHAT_NOT_FOUND from
// GetChat, a 429 surfaces as RATE_LIMITED carrying the provider's
// retry-after hint, anything else as PROVIDER_ERROR.
type Provider interface {
	// GetChat probes that chatID still resolves to a live chat.
	GetChat(ctx context.Context, chatID int64) error

	// SendText sends a rich-formatted text message.
	SendText(ctx context.Context, chatID int64, text string) error

	// SendImage sends an image with a rich-formatted caption.
	SendImage(ctx context.Context, chatID int64, imageRef, caption string) error
}
