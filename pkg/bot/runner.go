// Package bot drives one batch run over all list pages.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wikijournalbot/pkg/logging"
	"wikijournalbot/pkg/mediawiki"
	"wikijournalbot/pkg/model"
	"wikijournalbot/pkg/reconcile"
	"wikijournalbot/pkg/tracker"
	"wikijournalbot/pkg/wikitext"
)

// Wiki is the MediaWiki surface the runner needs.
type Wiki interface {
	PageContent(ctx context.Context, title string) (*model.PageDocument, error)
	TranscludedIn(ctx context.Context, template, namespace string) ([]string, error)
	Edit(ctx context.Context, req mediawiki.EditRequest) (*mediawiki.EditResult, error)
}

// Reconciler computes the new text of one page.
type Reconciler interface {
	Reconcile(ctx context.Context, page model.PageDocument) reconcile.Outcome
}

// History persists run and page outcomes.
type History interface {
	SaveRun(ctx context.Context, r *model.RunRecord) error
	SaveEdit(ctx context.Context, e *model.EditRecord) error
}

// Options are the run-level settings.
type Options struct {
	BotName       string
	Mode          string
	OperatorPage  string
	GuardOperator bool   // Abort when the operator page opts out
	CheckPages    bool   // Skip pages that opt out
	ListTemplate  string // Template whose transclusions are the work list
	Namespace     string
	Summary       string
	Throttle      time.Duration
	DryRun        bool
	Pages         []string // Explicit work list; skips discovery when set
}

// Summary is the result of a run.
type Summary struct {
	RunID     string
	Pages     int
	Submitted int
	Skipped   int
	Failed    int
	DryRun    int
	Aborted   string
}

// Runner processes pages sequentially.
type Runner struct {
	Wiki     Wiki
	Pipeline Reconciler
	History  History // Optional
	Tracker  *tracker.Tracker
	Logger   *slog.Logger
	Options  Options

	sleep func(ctx context.Context, d time.Duration) error
}

// Abort reasons recorded on the run.
const (
	AbortOptedOut  = "operator page opted out"
	AbortGuard     = "operator page unavailable"
	AbortDiscovery = "page discovery failed"
	AbortCancelled = "cancelled"
)

// Run processes the work list. Per-page failures are recorded and never returned;
// the error is only set when the context is cancelled.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if r.Tracker == nil {
		r.Tracker = tracker.New()
	}
	if r.sleep == nil {
		r.sleep = sleepCtx
	}

	rec := &model.RunRecord{
		ID:        uuid.NewString(),
		Mode:      r.Options.Mode,
		StartedAt: time.Now(),
	}
	logger := r.logger().With("run", rec.ID)
	logger.Info("Starting population of article lists", "mode", rec.Mode, "dry_run", r.Options.DryRun)

	sum := Summary{RunID: rec.ID}
	finish := func() (Summary, error) {
		rec.FinishedAt = time.Now()
		rec.Pages = sum.Pages
		rec.Submitted = sum.Submitted
		rec.Skipped = sum.Skipped + sum.DryRun
		rec.Failed = sum.Failed
		rec.Aborted = sum.Aborted
		if r.History != nil {
			if err := r.History.SaveRun(context.WithoutCancel(ctx), rec); err != nil {
				logger.Error("Failed to save run record", "error", err)
			}
		}
		r.logSummary(logger, sum)
		if sum.Aborted == AbortCancelled {
			return sum, ctx.Err()
		}
		return sum, nil
	}

	if r.Options.GuardOperator {
		if reason := r.checkOperator(ctx, logger); reason != "" {
			sum.Aborted = reason
			return finish()
		}
	}

	titles, err := r.workList(ctx)
	if err != nil {
		logger.Error("Could not retrieve list of pages", "template", r.Options.ListTemplate, "error", err)
		sum.Aborted = AbortDiscovery
		if ctx.Err() != nil {
			sum.Aborted = AbortCancelled
		}
		return finish()
	}
	logger.Info("Pages to process", "count", len(titles))

	for i, title := range titles {
		if ctx.Err() != nil {
			sum.Aborted = AbortCancelled
			return finish()
		}

		status := r.processPage(ctx, logger.With("title", title), rec.ID, title)
		sum.Pages++
		switch status {
		case model.StatusSubmitted:
			sum.Submitted++
		case model.StatusSkipped:
			sum.Skipped++
		case model.StatusFailed:
			sum.Failed++
		case model.StatusDryRun:
			sum.DryRun++
		}

		if i < len(titles)-1 && r.Options.Throttle > 0 {
			if err := r.sleep(ctx, r.Options.Throttle); err != nil {
				sum.Aborted = AbortCancelled
				return finish()
			}
		}
	}

	return finish()
}

// checkOperator returns an abort reason, or "" when the run may proceed.
func (r *Runner) checkOperator(ctx context.Context, logger *slog.Logger) string {
	page, err := r.Wiki.PageContent(ctx, r.Options.OperatorPage)
	if err != nil {
		logger.Error("Could not read operator page", "page", r.Options.OperatorPage, "error", err)
		return AbortGuard
	}
	if !wikitext.AllowBots(page.Content, r.Options.BotName) {
		logger.Info("Operator page contains an exclusion template, exiting", "page", r.Options.OperatorPage)
		return AbortOptedOut
	}
	return ""
}

func (r *Runner) workList(ctx context.Context) ([]string, error) {
	if len(r.Options.Pages) > 0 {
		return r.Options.Pages, nil
	}
	return r.Wiki.TranscludedIn(ctx, r.Options.ListTemplate, r.Options.Namespace)
}

func (r *Runner) processPage(ctx context.Context, logger *slog.Logger, runID, title string) model.PageStatus {
	logger.Info("Working on page")

	edit := &model.EditRecord{RunID: runID, Title: title}
	defer func() {
		r.Tracker.TrackPage(edit.Status)
		if r.History != nil {
			if err := r.History.SaveEdit(context.WithoutCancel(ctx), edit); err != nil {
				logger.Error("Failed to save edit record", "error", err)
			}
		}
	}()

	page, err := r.Wiki.PageContent(ctx, title)
	if err != nil {
		edit.Stage = reconcile.StageFetch
		edit.Reason = err.Error()
		if errors.Is(err, mediawiki.ErrPageMissing) {
			logger.Warn("Page has no content, skipping", "stage", edit.Stage, "error", err)
			edit.Status = model.StatusSkipped
		} else {
			logger.Error("Could not retrieve page content", "stage", edit.Stage, "error", err)
			edit.Status = model.StatusFailed
		}
		return edit.Status
	}

	if r.Options.CheckPages && !wikitext.AllowBots(page.Content, r.Options.BotName) {
		logger.Info("Page contains an exclusion template, skipping")
		edit.Status = model.StatusSkipped
		edit.Stage = reconcile.StageFetch
		edit.Reason = "bot exclusion"
		return edit.Status
	}

	out := r.Pipeline.Reconcile(ctx, *page)
	edit.Stage = out.Stage
	edit.Rows = out.Rows

	switch out.Kind {
	case reconcile.Failed:
		// Extraction and query failures leave the page untouched.
		logger.Error("Page failed", "stage", out.Stage, "error", out.Err)
		edit.Status = model.StatusSkipped
		edit.Reason = out.Err.Error()
		return edit.Status

	case reconcile.Unchanged:
		if out.Reason == reconcile.ReasonNoRows {
			r.Tracker.TrackAPIZero("wikidata")
		}
		logger.Debug("Skipping page", "stage", out.Stage, "reason", out.Reason)
		edit.Status = model.StatusSkipped
		edit.Reason = out.Reason
		return edit.Status
	}

	logging.Trace(logger, "New page content", "content", out.Content)

	if r.Options.DryRun {
		logger.Info("Dry run, not submitting", "rows", out.Rows)
		edit.Status = model.StatusDryRun
		return edit.Status
	}

	edit.Stage = reconcile.StageSubmit
	res, err := r.Wiki.Edit(ctx, mediawiki.EditRequest{
		Title:   page.Title,
		Text:    out.Content,
		Summary: r.Options.Summary,
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", reconcile.ErrSubmission, err)
		logger.Error("Edit request was unsuccessful", "stage", edit.Stage, "error", err)
		edit.Status = model.StatusFailed
		edit.Reason = err.Error()
		return edit.Status
	}

	edit.RevID = res.NewRevID
	edit.Status = model.StatusSubmitted
	logger.Info("Successfully updated list", "rows", out.Rows, "revid", res.NewRevID)
	return edit.Status
}

func (r *Runner) logSummary(logger *slog.Logger, sum Summary) {
	logger.Info("Done",
		"pages", sum.Pages,
		"submitted", sum.Submitted,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"dry_run", sum.DryRun,
		"aborted", sum.Aborted,
	)
	usage := r.Tracker.Snapshot()
	for _, host := range r.Tracker.Hosts() {
		u := usage[host]
		logger.Info("API usage",
			"host", host,
			"success", u.Success,
			"failures", u.Failures,
			"cache_hit_rate", fmt.Sprintf("%.0f%%", u.HitRate()*100),
			"empty_results", u.Empty,
		)
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
