package port

import "context"

// Notifier delivers a free-text message to the chat channel, best effort.
// There is deliberately no error return: delivery failures must never reach
// position logic.
type Notifier interface {
	Send(ctx context.Context, text string)
}
