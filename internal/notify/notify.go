// Package notify delivers invitation notices outside the request path.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Notifier sends an invitation to email for the given organization.
type Notifier interface {
	NotifyInvite(ctx context.Context, email string, organizationID uint64) error
}

// LogNotifier records invitations in the log. It stands in for a mail
// integration.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

// NotifyInvite logs the invitation.
func (n *LogNotifier) NotifyInvite(_ context.Context, email string, organizationID uint64) error {
	n.logger.Info().
		Str("email", email).
		Uint64("organization_id", organizationID).
		Msg("invitation issued")
	return nil
}

// Dispatcher runs a Notifier asynchronously. Failures and panics are logged
// and reported to onDone; they never reach the caller.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   zerolog.Logger
	onDone   func(err error)
}

// NewDispatcher creates a Dispatcher. onDone may be nil.
func NewDispatcher(notifier Notifier, timeout time.Duration, logger zerolog.Logger, onDone func(err error)) *Dispatcher {
	if onDone == nil {
		onDone = func(error) {}
	}
	return &Dispatcher{
		notifier: notifier,
		timeout:  timeout,
		logger:   logger.With().Str("component", "notify_dispatcher").Logger(),
		onDone:   onDone,
	}
}

// DispatchInvite sends the invitation in a new goroutine and returns
// immediately.
func (d *Dispatcher) DispatchInvite(email string, organizationID uint64) {
	go func() {
		err := d.send(email, organizationID)
		if err != nil {
			d.logger.Warn().Err(err).
				Str("email", email).
				Uint64("organization_id", organizationID).
				Msg("invitation notification failed")
		}
		d.onDone(err)
	}()
}

func (d *Dispatcher) send(email string, organizationID uint64) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()

	return d.notifier.NotifyInvite(ctx, email, organizationID)
}
