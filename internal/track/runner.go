package track

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nicx17/hytrack/internal/metrics"
	"github.com/nicx17/hytrack/internal/store"
)

// Runner sequences one full pass: load state, merge discoveries, sweep the
// tracked set, save state. Save runs unconditionally so newly discovered
// waybills survive a run where every lookup failed; a save error is the one
// failure that aborts the pass.
type Runner struct {
	store   *store.File
	feed    Feed // nil disables discovery
	engine  *Engine
	metrics *metrics.Set
	log     zerolog.Logger
}

func NewRunner(st *store.File, feed Feed, engine *Engine, m *metrics.Set, log zerolog.Logger) *Runner {
	return &Runner{
		store:   st,
		feed:    feed,
		engine:  engine,
		metrics: m,
		log:     log.With().Str("component", "runner").Logger(),
	}
}

// Run performs one pass. Per-waybill failures never surface here; only an
// unusable state file at save time does.
func (r *Runner) Run(ctx context.Context) error {
	ids := r.store.Load()
	r.discover(ctx, ids)
	r.engine.Run(ctx, ids)
	r.metrics.Tracked.Set(float64(len(ids)))
	if err := r.store.Save(ids); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// discover pulls waybills from inbound mail and merges them. A feed failure
// means zero new waybills this run, nothing more.
func (r *Runner) discover(ctx context.Context, ids map[string]*store.Entry) {
	if r.feed == nil {
		r.log.Debug().Msg("discovery disabled")
		return
	}
	wbs, err := r.feed.Waybills(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("discovery failed, continuing with known waybills")
		return
	}
	added := Merge(ids, wbs, r.log)
	r.metrics.Discovered.Add(float64(added))
}
