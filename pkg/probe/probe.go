// Package probe runs startup checks against the wiki and the query service
// before a run touches any page.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 10 * time.Second

// Probe is a single named startup check.
type Probe struct {
	Name     string
	Check    func(ctx context.Context) error
	Critical bool          // a failure aborts the run
	Timeout  time.Duration // 0 means defaultTimeout
}

// Outcome is what one probe reported.
type Outcome struct {
	Name     string
	Critical bool
	Err      error
	Took     time.Duration
}

// Report collects outcomes in probe order.
type Report []Outcome

// Run executes the probes concurrently, each under its own timeout.
func Run(ctx context.Context, probes ...Probe) Report {
	rep := make(Report, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			rep[i] = run(ctx, p)
			return nil
		})
	}
	_ = g.Wait() // failures live in the report
	return rep
}

func run(ctx context.Context, p Probe) Outcome {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := p.Check(ctx)
	return Outcome{Name: p.Name, Critical: p.Critical, Err: err, Took: time.Since(start)}
}

// Err joins the failures of critical probes, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, o := range r {
		if o.Err != nil && o.Critical {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name, o.Err))
		}
	}
	return errors.Join(errs...)
}

// Log writes one line per probe. Critical failures log at error level,
// others at warn.
func (r Report) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, o := range r {
		attrs := []any{"probe", o.Name, "took", o.Took.Round(time.Millisecond)}
		switch {
		case o.Err == nil:
			logger.Info("Startup check passed", attrs...)
		case o.Critical:
			logger.Error("Startup check failed", append(attrs, "error", o.Err)...)
		default:
			logger.Warn("Startup check failed", append(attrs, "error", o.Err)...)
		}
	}
}
