// Package organizer executes preview and copy jobs claimed from the store.
//
// A runner owns a job from claim to terminal state: it scans the source tree,
// extracts metadata through the shared cache, resolves locations, computes
// group keys against the job's rules snapshot, and either aggregates a preview
// or copies files into the destination layout. Per-file failures are recorded
// and never fatal; the job only fails when the source scan fails or the
// destination itself becomes unusable mid-copy.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"shoebox/internal/config"
	"shoebox/internal/fileutil"
	"shoebox/internal/geocode"
	"shoebox/internal/grouping"
	"shoebox/internal/jobs"
	"shoebox/internal/logging"
	"shoebox/internal/media"
	"shoebox/internal/metadata"
	"shoebox/internal/scan"
)

// Runner drives one job at a time through its lifecycle.
type Runner struct {
	cfg      *config.Config
	store    *jobs.Store
	cache    *metadata.Cache
	resolver geocode.Resolver
	logger   *slog.Logger
}

// NewRunner wires a runner against shared services. The metadata cache and
// resolver are shared across workers; everything else is per-run state.
func NewRunner(cfg *config.Config, store *jobs.Store, cache *metadata.Cache, resolver geocode.Resolver, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		store:    store,
		cache:    cache,
		resolver: resolver,
		logger:   logging.WithComponent(logger, "organizer"),
	}
}

// Run executes a claimed job to a terminal state. The job must already be
// marked running by the store claim.
func (r *Runner) Run(ctx context.Context, job *jobs.Job) {
	logger := r.logger.With(
		slog.String(logging.FieldJobID, job.ID),
		slog.String(logging.FieldJobKind, string(job.Kind)),
	)
	logger.Info("job started", logging.String("source", job.SourceRoot))

	scanner := scan.New(r.cfg.Scanner.Extensions, r.cfg.Scanner.MaxDepth)
	records, err := scanner.Collect(ctx, job.SourceRoot)
	if err != nil {
		logger.Error("source scan failed", logging.Error(err))
		r.finish(ctx, job, func() {
			job.SetFailed(fmt.Sprintf("scan source tree: %v", err))
		})
		return
	}

	job.Progress = jobs.Progress{Processed: 0, Total: int64(len(records))}
	if err := r.store.Update(ctx, job); err != nil {
		logger.Warn("persist scan total failed", logging.Error(err))
	}

	engine := grouping.NewEngine(job.Rules)
	var result jobResult
	switch job.Kind {
	case jobs.KindCopy:
		result = newCopyResult(job.DestRoot)
	default:
		result = newPreviewResult(r.cfg.Preview.SampleFiles)
	}

	flushEvery := int64(r.cfg.Workflow.ProgressFlushFiles)
	if flushEvery < 1 {
		flushEvery = 1
	}

	for _, record := range records {
		if cancelled, err := r.cancelled(ctx, job); err != nil {
			logger.Warn("cancel check failed", logging.Error(err))
		} else if cancelled {
			logger.Info("job cancelled", logging.Int64("processed", job.Progress.Processed))
			// Partial results stay available for diagnostic display.
			r.finish(ctx, job, func() {
				result.Attach(job)
				job.State = jobs.StateCancelled
			})
			return
		}

		key := r.groupFile(ctx, engine, record, logger)
		if err := result.Add(record, key, logger); err != nil {
			logger.Error("job aborted", logging.Error(err))
			r.finish(ctx, job, func() {
				result.Attach(job)
				job.SetFailed(err.Error())
			})
			return
		}

		job.Progress.Processed++
		if job.Progress.Processed%flushEvery == 0 {
			if err := r.store.Update(ctx, job); err != nil {
				logger.Warn("persist progress failed", logging.Error(err))
			}
		}
	}

	r.finish(ctx, job, func() {
		result.Attach(job)
		job.State = jobs.StateDone
	})
	logger.Info("job finished",
		logging.Int64("processed", job.Progress.Processed),
		logging.Int64("total", job.Progress.Total),
	)
}

// groupFile computes the destination group for one file. Extraction failures
// degrade to unknown metadata so the file still lands in a fallback group.
func (r *Runner) groupFile(ctx context.Context, engine *grouping.Engine, record media.FileRecord, logger *slog.Logger) grouping.Key {
	meta, err := r.cache.GetOrExtract(record)
	if err != nil {
		logger.Debug("metadata extraction failed",
			logging.String("file", record.Path),
			logging.Error(err),
		)
		meta = media.Metadata{Kind: media.KindForExtension(filepath.Ext(record.Path))}
	}
	label := r.resolver.Resolve(ctx, meta.Location)
	return engine.ComputeKey(meta, label)
}

func (r *Runner) cancelled(ctx context.Context, job *jobs.Job) (bool, error) {
	if job.CancelRequested {
		return true, nil
	}
	flagged, err := r.store.CancelRequested(ctx, job.ID)
	if err != nil {
		return false, err
	}
	job.CancelRequested = flagged
	return flagged, nil
}

func (r *Runner) finish(ctx context.Context, job *jobs.Job, apply func()) {
	apply()
	now := time.Now().UTC()
	job.FinishedAt = &now
	if err := r.store.Update(ctx, job); err != nil {
		r.logger.Error("persist terminal state failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}
}

// jobResult accumulates the outcome of processing each file and attaches the
// final payload to the job. Add returns an error only when continuing the job
// is meaningless; per-file problems are absorbed into the result instead.
type jobResult interface {
	Add(record media.FileRecord, key grouping.Key, logger *slog.Logger) error
	Attach(job *jobs.Job)
}

type previewResult struct {
	sampleLimit int
	order       []string
	groups      map[string]*jobs.GroupSummary
}

func newPreviewResult(sampleLimit int) *previewResult {
	return &previewResult{
		sampleLimit: sampleLimit,
		groups:      make(map[string]*jobs.GroupSummary),
	}
}

func (p *previewResult) Add(record media.FileRecord, key grouping.Key, _ *slog.Logger) error {
	folder := key.Render()
	summary, ok := p.groups[folder]
	if !ok {
		summary = &jobs.GroupSummary{Folder: folder}
		p.groups[folder] = summary
		p.order = append(p.order, folder)
	}
	summary.FileCount++
	summary.TotalBytes += record.Size
	if len(summary.SampleFiles) < p.sampleLimit {
		summary.SampleFiles = append(summary.SampleFiles, record.Name())
	}
	return nil
}

func (p *previewResult) Attach(job *jobs.Job) {
	result := &jobs.PreviewResult{Groups: make([]jobs.GroupSummary, 0, len(p.order))}
	for _, folder := range p.order {
		result.Groups = append(result.Groups, *p.groups[folder])
	}
	job.Preview = result
}

type copyResult struct {
	destRoot string
	report   jobs.CopyReport
}

func newCopyResult(destRoot string) *copyResult {
	return &copyResult{destRoot: destRoot}
}

func (c *copyResult) Add(record media.FileRecord, key grouping.Key, logger *slog.Logger) error {
	destDir := filepath.Join(c.destRoot, filepath.FromSlash(key.Render()))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		if fatal := c.fatal(err); fatal != nil {
			return fatal
		}
		c.fail(record, fmt.Sprintf("create group folder: %v", err), logger)
		return nil
	}

	dest := filepath.Join(destDir, record.Name())
	switch err := fileutil.CopyFileNoClobber(record.Path, dest); {
	case err == nil:
		c.report.CopiedCount++
	case errors.Is(err, fileutil.ErrDestinationExists):
		c.report.SkippedCount++
		logger.Debug("destination exists, skipping", logging.String("file", record.Path))
	default:
		if fatal := c.fatal(err); fatal != nil {
			return fatal
		}
		c.fail(record, err.Error(), logger)
	}
	return nil
}

// fatal classifies copy errors that make continuing meaningless: the
// destination filesystem is full, or the destination root itself is no longer
// a reachable directory. Everything else stays a per-file failure.
func (c *copyResult) fatal(cause error) error {
	if errors.Is(cause, syscall.ENOSPC) {
		return fmt.Errorf("destination out of space: %w", cause)
	}
	if info, err := os.Stat(c.destRoot); err != nil || !info.IsDir() {
		return fmt.Errorf("destination root unavailable: %w", cause)
	}
	return nil
}

func (c *copyResult) fail(record media.FileRecord, reason string, logger *slog.Logger) {
	c.report.FailedEntries = append(c.report.FailedEntries, jobs.FailedEntry{
		File:   record.Path,
		Reason: reason,
	})
	logger.Warn("copy failed",
		logging.String("file", record.Path),
		logging.String("reason", reason),
	)
}

func (c *copyResult) Attach(job *jobs.Job) {
	report := c.report
	job.Report = &report
}
