package workers

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/observability"
	"log/slog"
	"time"
)

var _ contract.Worker = (*ReporterWorker)(nil)

// ReporterWorker logs a one line summary of the bridge on every tick and once more on stop.
type ReporterWorker struct {
	log      *slog.Logger
	stats    *observability.Stats
	state    contract.StateReader
	registry contract.IRegistry
	interval time.Duration
}

func NewReporterWorker(log *slog.Logger, stats *observability.Stats, state contract.StateReader,
	registry contract.IRegistry, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{
		log:      log,
		stats:    stats,
		state:    state,
		registry: registry,
		interval: interval,
	}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	startTime := time.Now()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report(startTime)
			return nil
		case <-ticker.C:
			w.report(startTime)
		}
	}
}

func (w *ReporterWorker) report(startTime time.Time) {
	state := w.state.Snapshot()
	counters := w.stats.Snapshot()
	w.log.Info("Bridge report",
		"uptime", time.Since(startTime).Round(time.Second).String(),
		"sessions", w.registry.Count(),
		"score", state.Score,
		"misses", state.Misses,
		"game_over", state.GameOver,
		"dots_relayed", counters.DotsRelayed,
		"actions_applied", counters.ActionsApplied,
		"decode_errors", counters.DecodeErrors,
		"unknown_tags", counters.UnknownTags,
		"rss_mb", counters.Process.RSSBytes/1024/1024,
	)
}
