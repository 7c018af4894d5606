// Package track holds the state-tracking core: merging discovered waybills
// into the persistent set, deciding per waybill whether a fresh observation
// is worth notifying about, and taking the one-way transition into the
// delivered state. All I/O happens behind the small interfaces below so the
// core stays testable without a mailbox, a carrier page or an SMTP server.
package track

import (
	"context"

	"github.com/nicx17/hytrack/internal/model"
)

// Feed yields candidate waybill numbers discovered in inbound messages.
// Consuming the feed marks the underlying messages as read.
type Feed interface {
	Waybills(ctx context.Context) ([]string, error)
}

// Lookup fetches the most recent status event for one waybill.
type Lookup interface {
	Latest(ctx context.Context, waybill string) (model.Event, error)
}

// Notifier delivers one rendered notification. A send failure is non-fatal
// to the run; the caller logs it and moves on.
type Notifier interface {
	Send(ctx context.Context, subject, htmlBody string) error
}

// RenderFunc turns an event into the notification body for one waybill.
type RenderFunc func(waybill string, ev model.Event) (string, error)
