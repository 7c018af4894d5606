package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nicx17/hytrack/internal/config"
	"github.com/nicx17/hytrack/internal/lookup"
	"github.com/nicx17/hytrack/internal/mail"
	"github.com/nicx17/hytrack/internal/metrics"
	"github.com/nicx17/hytrack/internal/model"
	"github.com/nicx17/hytrack/internal/notify"
	"github.com/nicx17/hytrack/internal/store"
	"github.com/nicx17/hytrack/internal/track"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	var (
		cfgPath  = flag.String("config", "hytrack.yml", "path to YAML config")
		interval = flag.Duration("interval", 0, "re-run every interval instead of exiting (0 = one pass)")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg.Logging)
	log.Info().Str("version", Version).Msg("hytrack starting")

	m := metrics.NewSet()
	runner := buildRunner(cfg, m, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runPass := func() {
		if err := runner.Run(ctx); err != nil {
			// Per-waybill failures never land here; this is the state file
			// refusing to save, and silently losing state is worse than
			// failing loudly.
			log.Fatal().Err(err).Msg("run failed")
		}
		reportMetrics(cfg.Metrics, m, log)
	}

	runPass()
	if *interval <= 0 {
		log.Info().Msg("run finished")
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping")
			return
		case <-ticker.C:
			runPass()
		}
	}
}

// buildRunner is the composition root: everything is constructed here from
// the config and injected. Missing IMAP config disables discovery, missing
// SMTP config disables notifications; the tracker itself runs either way.
func buildRunner(cfg *config.Config, m *metrics.Set, log zerolog.Logger) *track.Runner {
	var feed track.Feed
	if cfg.HasIMAP() {
		feed = mail.NewInbox(cfg.IMAP, log)
	} else {
		log.Warn().Msg("imap not configured, discovery disabled")
	}

	var notifier track.Notifier
	if cfg.HasSMTP() {
		notifier = notify.NewMailer(cfg.SMTP, log)
	} else {
		log.Warn().Msg("smtp not configured, notifications disabled")
	}

	render := func(wb string, ev model.Event) (string, error) {
		return notify.BuildHTML(lookup.TrackingURL(cfg.Lookup.BaseURL, wb), ev)
	}
	engine := track.NewEngine(lookup.NewBlueDart(cfg.Lookup, log), notifier, render, cfg.Lookup.Timeout, m, log)
	return track.NewRunner(store.NewFile(cfg.StatePath, log), feed, engine, m, log)
}

func newLogger(cfg config.Logging) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var w io.Writer = os.Stdout
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file %s: %v, logging to stdout only\n", cfg.File, err)
		} else {
			w = zerolog.MultiLevelWriter(os.Stdout, f)
		}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func reportMetrics(cfg config.Metrics, m *metrics.Set, log zerolog.Logger) {
	if cfg.PushgatewayURL == "" {
		log.Info().Str("metrics", m.Snapshot()).Msg("run metrics")
		return
	}
	if err := m.Push(cfg.PushgatewayURL, cfg.PushTimeout); err != nil {
		log.Warn().Err(err).Msg("metrics push failed")
	}
}
