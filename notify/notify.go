/*
Package notify is the outbound boundary for alert notifications.

The scheduler hands each dispatchable alert to a Notifier. Delivery is
best effort: ErrUnavailable (no permission, no channel) is a silent no-op
for the caller, any other error is logged and the cycle continues.
*/
package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrUnavailable means the channel cannot deliver right now.
var ErrUnavailable = errors.New("notification channel unavailable")

// Notifier delivers one titled message.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// LogNotifier "delivers" notifications by logging them.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.Logger.WithFields(logrus.Fields{
		"title": title,
		"body":  body,
	}).Warn("notification")
	return nil
}

// Unavailable is a Notifier whose permission was never granted.
type Unavailable struct{}

func (Unavailable) Notify(context.Context, string, string) error { return ErrUnavailable }

// Multi fans a notification out to several notifiers and returns the first
// error other than ErrUnavailable.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, title, body string) error {
	var first error
	delivered := false
	for _, n := range m {
		if n == nil {
			continue
		}
		err := n.Notify(ctx, title, body)
		switch {
		case err == nil:
			delivered = true
		case errors.Is(err, ErrUnavailable):
		case first == nil:
			first = err
		}
	}
	if first != nil {
		return first
	}
	if !delivered {
		return ErrUnavailable
	}
	return nil
}
