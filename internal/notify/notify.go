package notify

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Channel is one delivery target for alert messages.
type Channel interface {
	Name() string
	Send(ctx context.Context, subject, text string) error
}

// Notifier fans a message out to every channel. Channels are independent:
// a failure is logged and the remaining channels are still attempted.
// Failed sends are not retried.
type Notifier struct {
	Logger   *zap.Logger
	Subject  string
	Channels []Channel
}

func New(logger *zap.Logger, subject string, channels ...Channel) *Notifier {
	return &Notifier{Logger: logger, Subject: subject, Channels: channels}
}

// Notify returns the combined channel errors, for callers that want them;
// every failure has already been logged.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	var errs error
	for _, ch := range n.Channels {
		if ch == nil {
			continue
		}
		if err := ch.Send(ctx, n.Subject, text); err != nil {
			n.Logger.Warn("notify_channel_error",
				zap.String("channel", ch.Name()),
				zap.Error(err),
			)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		n.Logger.Info("notify_channel_sent", zap.String("channel", ch.Name()))
	}
	return errs
}
