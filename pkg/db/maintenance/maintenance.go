package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wikijournalbot/pkg/store"
)

const lastRunStateKey = "maintenance_last_run"

// Pruner deletes rows older than a given age.
type Pruner interface {
	PruneCache(olderThan time.Duration) (int64, error)
	PruneEdits(olderThan time.Duration) (int64, error)
}

// Options controls retention.
type Options struct {
	CacheMaxAge time.Duration // Zero keeps cache entries forever
	EditMaxAge  time.Duration // Zero keeps edit history forever
	Interval    time.Duration // Minimum time between two passes
}

// DefaultOptions keeps SPARQL responses for 30 days and edit history for a year,
// pruning at most once a day.
func DefaultOptions() Options {
	return Options{
		CacheMaxAge: 30 * 24 * time.Hour,
		EditMaxAge:  365 * 24 * time.Hour,
		Interval:    24 * time.Hour,
	}
}

// Run prunes old cache entries and edit history. Failures are logged, not returned,
// so that maintenance never blocks a run; the returned error is for state bookkeeping only.
func Run(ctx context.Context, s store.StateStore, p Pruner, opts Options, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	now := time.Now().UTC()
	if last, ok := s.GetState(ctx, lastRunStateKey); ok && opts.Interval > 0 {
		if t, err := time.Parse(time.RFC3339, last); err == nil && now.Sub(t) < opts.Interval {
			logger.Debug("Maintenance skipped", "last_run", last)
			return nil
		}
	}

	logger.Debug("Starting database maintenance")

	if opts.CacheMaxAge > 0 {
		if n, err := p.PruneCache(opts.CacheMaxAge); err != nil {
			logger.Error("Cache pruning failed", "error", err)
		} else {
			logger.Info("Cache pruning completed", "removed", n)
		}
	}

	if opts.EditMaxAge > 0 {
		if n, err := p.PruneEdits(opts.EditMaxAge); err != nil {
			logger.Error("Edit history pruning failed", "error", err)
		} else {
			logger.Info("Edit history pruning completed", "removed", n)
		}
	}

	if err := s.SetState(ctx, lastRunStateKey, now.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}
	return nil
}
