package track

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nicx17/hytrack/internal/metrics"
	"github.com/nicx17/hytrack/internal/model"
	"github.com/nicx17/hytrack/internal/store"
)

// Engine runs the per-waybill decision loop: fetch the latest event, compare
// it with what we knew, transition to delivered exactly once, notify on
// change. Waybills are independent; a failure on one never touches another,
// and iteration order does not affect the final state.
type Engine struct {
	lookup   Lookup
	notifier Notifier // nil disables notifications
	render   RenderFunc
	timeout  time.Duration // bound on each lookup call, 0 = unbounded
	metrics  *metrics.Set
	log      zerolog.Logger
}

// NewEngine wires the decision loop. The timeout comes from the lookup
// config, which owns its default.
func NewEngine(lookup Lookup, notifier Notifier, render RenderFunc, timeout time.Duration, m *metrics.Set, log zerolog.Logger) *Engine {
	return &Engine{
		lookup:   lookup,
		notifier: notifier,
		render:   render,
		timeout:  timeout,
		metrics:  m,
		log:      log.With().Str("component", "engine").Logger(),
	}
}

// Run sweeps every non-delivered entry once, mutating entries in place.
// Entries whose lookup fails this run are left exactly as they were and
// picked up again on the next run.
func (e *Engine) Run(ctx context.Context, ids map[string]*store.Entry) {
	for wb, entry := range ids {
		if entry.Delivered {
			continue
		}
		e.track(ctx, wb, entry)
	}
}

func (e *Engine) track(ctx context.Context, wb string, entry *store.Entry) {
	lctx, cancel := ctx, func() {}
	if e.timeout > 0 {
		lctx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	ev, err := e.lookup.Latest(lctx, wb)
	cancel()
	if err != nil {
		e.metrics.LookupFailures.Inc()
		e.log.Warn().Err(err).Str("waybill", wb).Msg("could not fetch event, will retry next run")
		return
	}

	if ev.Delivered() {
		// Terminal transition. The final event is recorded even when it
		// equals the previous one, and the delivery notification replaces
		// the normal update notification.
		entry.Delivered = true
		entry.LastEvent = &ev
		e.metrics.Delivered.Inc()
		e.log.Info().Str("waybill", wb).Str("status", ev.Details).Msg("package delivered, deactivating tracking")
		e.notify(ctx, wb, "DELIVERED: Waybill "+wb, ev)
		return
	}

	if entry.LastEvent != nil && *entry.LastEvent == ev {
		e.log.Info().Str("waybill", wb).Str("status", ev.Details).Msg("no new update")
		return
	}

	entry.LastEvent = &ev
	e.metrics.Updates.Inc()
	e.log.Info().Str("waybill", wb).Str("status", ev.Details).Msg("new update found")
	e.notify(ctx, wb, "Update for Waybill "+wb, ev)
}

// notify renders and sends one notification. Failures are logged and
// counted but never rolled back into the entry: the state keeps the true
// latest event whether or not the human heard about it.
func (e *Engine) notify(ctx context.Context, wb, subject string, ev model.Event) {
	if e.notifier == nil {
		return
	}
	body, err := e.render(wb, ev)
	if err != nil {
		e.metrics.NotifyFailures.Inc()
		e.log.Error().Err(err).Str("waybill", wb).Msg("render notification failed")
		return
	}
	if err := e.notifier.Send(ctx, subject, body); err != nil {
		e.metrics.NotifyFailures.Inc()
		e.log.Error().Err(err).Str("waybill", wb).Msg("send notification failed")
	}
}
