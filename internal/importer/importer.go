package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/pizzafeed/importer/internal/models"
	"github.com/pizzafeed/importer/internal/source"
	"github.com/pizzafeed/importer/internal/storage"
	"github.com/pizzafeed/importer/pkg/logger"
)

// Options configures an Importer
type Options struct {
	// DryRun counts what would be imported without writing anything;
	// no run log is created either.
	DryRun bool

	// SourcePause is the pause between sources in a multi-source run
	SourcePause time.Duration

	// StaleAfter is the age past which a leftover running run log for the
	// same source is marked failed before a new run starts
	StaleAfter time.Duration

	// DefaultStatus is applied when a normalizer does not decide the
	// status itself (trusted sources create records as approved)
	DefaultStatus models.ContentStatus
}

// Importer drives import runs: fetch, normalize, dedupe, persist, and run
// log accounting. It owns the run log lifecycle exclusively.
type Importer struct {
	repo storage.Repository
	opts Options
	log  *logger.Logger
}

// New creates a new importer
func New(repo storage.Repository, opts Options, log *logger.Logger) *Importer {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = time.Hour
	}
	if opts.DefaultStatus == "" {
		opts.DefaultStatus = models.ContentStatusPending
	}
	return &Importer{
		repo: repo,
		opts: opts,
		log:  log.WithComponent("importer"),
	}
}

// RunSummary contains the results of one import run. ItemsFound always
// equals ItemsImported + ItemsSkipped() + ItemsErrored.
type RunSummary struct {
	SourceName       string
	Platform         models.Platform
	Status           models.RunStatus
	ItemsFound       int
	ItemsImported    int
	SkippedFiltered  int
	SkippedDuplicate int
	ItemsErrored     int
	DryRun           bool
	Duration         time.Duration
}

// ItemsSkipped is the combined non-imported, non-error count
func (s *RunSummary) ItemsSkipped() int {
	return s.SkippedFiltered + s.SkippedDuplicate
}

// Run executes one import run for a source. Only a fetch failure is fatal:
// it finalizes the run log as failed and is returned as the error. Per-item
// problems are converted into counters and the run still ends completed.
func (imp *Importer) Run(ctx context.Context, src source.Source) (*RunSummary, error) {
	startTime := time.Now()
	log := imp.log.WithSource(string(src.Platform()), src.Name())

	summary := &RunSummary{
		SourceName: src.Name(),
		Platform:   src.Platform(),
		DryRun:     imp.opts.DryRun,
	}

	var run *models.ImportRunLog
	if !imp.opts.DryRun {
		if taken, err := imp.repo.FailStaleRuns(ctx, src.Name(), imp.opts.StaleAfter); err != nil {
			log.Warn().Err(err).Msg("Failed to check for stale runs")
		} else if taken > 0 {
			log.Warn().Int64("count", taken).Msg("Took over stale running run logs")
		}

		run = &models.ImportRunLog{
			SourceName: src.Name(),
			Platform:   src.Platform(),
			Status:     models.RunStatusRunning,
			StartedAt:  startTime,
		}
		if err := imp.repo.CreateRunLog(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to create run log: %w", err)
		}
		log = log.WithRun(run.ID)
	} else {
		log.Info().Msg("DRY RUN: nothing will be written")
	}

	items, err := src.Fetch(ctx)
	if err != nil {
		summary.Status = models.RunStatusFailed
		summary.Duration = time.Since(startTime)
		imp.finalize(ctx, run, summary, err)
		log.Error().Err(err).Msg("Fetch failed, run aborted")
		return summary, fmt.Errorf("fetch from %s failed: %w", src.Name(), err)
	}

	summary.ItemsFound = len(items)
	log.Info().Int("items_found", len(items)).Msg("Fetched items")

	// Items are processed strictly in fetch order, one at a time.
	for _, item := range items {
		imp.processItem(ctx, item, summary, log)
	}

	summary.Status = models.RunStatusCompleted
	summary.Duration = time.Since(startTime)
	imp.finalize(ctx, run, summary, nil)

	if !imp.opts.DryRun {
		if err := imp.repo.TouchImportSource(ctx, src.Name(), time.Now()); err != nil {
			log.Warn().Err(err).Msg("Failed to update source last-fetch time")
		}
	}

	log.Info().
		Int("imported", summary.ItemsImported).
		Int("skipped_filtered", summary.SkippedFiltered).
		Int("skipped_duplicate", summary.SkippedDuplicate).
		Int("errors", summary.ItemsErrored).
		Dur("duration", summary.Duration).
		Bool("dry_run", summary.DryRun).
		Msg("Run completed")

	return summary, nil
}

func (imp *Importer) processItem(ctx context.Context, item source.Item, summary *RunSummary, log *logger.Logger) {
	record := item.Normalize()
	if record == nil {
		summary.SkippedFiltered++
		return
	}
	if record.Status == "" {
		record.Status = imp.opts.DefaultStatus
	}

	exists, err := imp.repo.ContentExists(ctx, record.URL, record.SourceURL)
	if err != nil {
		summary.ItemsErrored++
		log.Warn().Err(err).Str("url", record.URL).Msg("Duplicate check failed")
		return
	}
	if exists {
		summary.SkippedDuplicate++
		return
	}

	if imp.opts.DryRun {
		summary.ItemsImported++
		return
	}

	if err := imp.repo.CreateContent(ctx, record); err != nil {
		// Two concurrent runs can race past the existence check; the
		// uniqueness constraint resolves it as a skip, not an error.
		if storage.IsConflict(err) {
			summary.SkippedDuplicate++
			return
		}
		summary.ItemsErrored++
		log.Warn().Err(err).Str("url", record.URL).Msg("Failed to persist record")
		return
	}

	summary.ItemsImported++
}

// finalize writes the terminal state to the run log exactly once. Dry runs
// have no run log to finalize.
func (imp *Importer) finalize(ctx context.Context, run *models.ImportRunLog, summary *RunSummary, runErr error) {
	if run == nil {
		return
	}
	now := time.Now()
	run.Status = summary.Status
	run.ItemsFound = summary.ItemsFound
	run.ItemsImported = summary.ItemsImported
	run.ItemsSkipped = summary.ItemsSkipped()
	run.ItemsErrored = summary.ItemsErrored
	run.CompletedAt = &now
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	if err := imp.repo.UpdateRunLog(ctx, run); err != nil {
		imp.log.Error().Err(err).Uint("run_id", run.ID).Msg("Failed to finalize run log")
	}
}

// RunAll runs every source sequentially with a pause in between. A failed
// source never aborts its siblings; the first error is returned after all
// sources have run so the caller can exit nonzero.
func (imp *Importer) RunAll(ctx context.Context, sources []source.Source) ([]*RunSummary, error) {
	summaries := make([]*RunSummary, 0, len(sources))
	var firstErr error

	for i, src := range sources {
		if i > 0 && imp.opts.SourcePause > 0 {
			select {
			case <-ctx.Done():
				return summaries, ctx.Err()
			case <-time.After(imp.opts.SourcePause):
			}
		}

		summary, err := imp.Run(ctx, src)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if summary != nil {
			summaries = append(summaries, summary)
		}
	}

	return summaries, firstErr
}
