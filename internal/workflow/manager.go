// Package workflow runs the background worker pool that drains the job queue.
package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"shoebox/internal/config"
	"shoebox/internal/geocode"
	"shoebox/internal/jobs"
	"shoebox/internal/logging"
	"shoebox/internal/metadata"
	"shoebox/internal/organizer"
)

// Manager polls the store for queued jobs and dispatches them to a bounded
// pool of workers. Each worker claims at most one job at a time; the store's
// guarded claim keeps two workers off the same job.
type Manager struct {
	cfg    *config.Config
	store  *jobs.Store
	runner *organizer.Runner
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewManager builds the worker pool and its shared services. The metadata
// cache and geocode resolver are created here so every worker reuses them.
func NewManager(cfg *config.Config, store *jobs.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	cache := metadata.NewCache(metadata.NewExtractor())
	resolver := geocode.FromConfig(cfg, logger)
	return &Manager{
		cfg:    cfg,
		store:  store,
		runner: organizer.NewRunner(cfg, store, cache, resolver, logger),
		logger: logging.WithComponent(logger, "workflow"),
	}
}

// Start launches the worker goroutines. Calling Start twice is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	workers := m.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	m.logger.Info("workflow started",
		logging.Int("workers", workers),
		logging.Duration("poll_interval", m.cfg.Workflow.QueuePollInterval),
	)
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.workerLoop(runCtx, i)
	}
}

// Stop cancels the workers and waits for the in-flight jobs to reach a
// terminal state. Jobs interrupted mid-run stay in the store as running and
// are not resumed; operators cancel or clear them.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.logger.Info("workflow stopped")
}

func (m *Manager) workerLoop(ctx context.Context, id int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", id))

	ticker := time.NewTicker(m.cfg.Workflow.QueuePollInterval)
	defer ticker.Stop()

	for {
		m.drainQueue(ctx, logger)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drainQueue claims and runs jobs until the queue is empty or the context is
// cancelled.
func (m *Manager) drainQueue(ctx context.Context, logger *slog.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := m.store.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("claim next job failed", logging.Error(err))
			}
			return
		}
		if job == nil {
			return
		}
		logger.Info("claimed job",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldJobKind, string(job.Kind)),
		)
		m.runner.Run(ctx, job)
	}
}
