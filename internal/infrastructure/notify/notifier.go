// Package notify delivers chat alerts. Delivery is strictly best effort: the
// scan loop and position logic never see a delivery error, only the log does.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"exploder/internal/application/port"
)

// Sender is a concrete delivery channel. It may fail; the BestEffort wrapper
// decides what that means.
type Sender interface {
	Send(ctx context.Context, text string) error
	Name() string
}

// BestEffort adapts a Sender to the Notifier port: failures are logged at
// warn and swallowed.
type BestEffort struct {
	sender Sender
}

func NewBestEffort(s Sender) *BestEffort { return &BestEffort{sender: s} }

func (b *BestEffort) Send(ctx context.Context, text string) {
	if b.sender == nil {
		return
	}
	if err := b.sender.Send(ctx, text); err != nil {
		log.Warn().Err(err).Str("sender", b.sender.Name()).Msg("alert delivery failed")
	}
}

// Noop satisfies the Notifier port without delivering anywhere. Used when no
// channel is configured and in tests.
type Noop struct{}

func (Noop) Send(ctx context.Context, text string) {}

var (
	_ port.Notifier = (*BestEffort)(nil)
	_ port.Notifier = Noop{}
)
