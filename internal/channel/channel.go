// internal/channel/channel.go

// Package channel defines the transport adapter contract shared by the
// email and chat delivery channels.
package channel

import (
	"context"

	"estatehub-notifier/internal/models"
)

// Channel wraps one transport provider's send primitive. Implementations
// validate recipient reachability before touching the provider and return
// typed errors from internal/common/errors for every distinguishable
// failure condition.
type Channel interface {
	// Transport identifies which subscription transport this channel serves.
	Transport() models.Transport

	// Send delivers message to recipient. imageRef, when non-empty, is a
	// reference to an image the channel may attach (chat sends it as a
	// photo with the message as caption; email ignores it).
	Send(ctx context.Context, recipient *models.User, message string, imageRef string) error
}
