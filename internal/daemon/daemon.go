// Package daemon hosts the long-running shoebox process: the single-instance
// lock, the workflow manager, and the HTTP API surface the CLI talks to.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"shoebox/internal/config"
	"shoebox/internal/jobs"
	"shoebox/internal/logging"
	"shoebox/internal/rules"
	"shoebox/internal/workflow"
)

// ErrInvalidRequest marks submission failures the caller can fix; the API
// layer maps it to a 400 response.
var ErrInvalidRequest = errors.New("invalid request")

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	JobStats     map[jobs.State]int
	JobDBPath    string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "shoeboxd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	srv, err := newAPIServer(cfg, d, d.logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the instance lock and launches the workflow manager and API
// server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shoebox daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.workflow.Start(runCtx)
	if err := d.api.start(runCtx); err != nil {
		d.workflow.Stop()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("shoebox daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("shoebox daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Submit validates a request synchronously and queues a new job. Validation
// failures wrap ErrInvalidRequest and never create a job.
func (d *Daemon) Submit(ctx context.Context, kindValue, sourceRoot, destRoot string) (*jobs.Job, error) {
	kind, ok := jobs.ParseKind(kindValue)
	if !ok {
		return nil, fmt.Errorf("%w: unknown job kind %q", ErrInvalidRequest, kindValue)
	}

	source, err := resolveDir(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: source root: %v", ErrInvalidRequest, err)
	}

	dest := ""
	if kind == jobs.KindCopy {
		dest = strings.TrimSpace(destRoot)
		if dest == "" {
			return nil, fmt.Errorf("%w: copy jobs require a destination root", ErrInvalidRequest)
		}
		dest, err = filepath.Abs(dest)
		if err != nil {
			return nil, fmt.Errorf("%w: destination root: %v", ErrInvalidRequest, err)
		}
		if err := ensureWritableDir(dest); err != nil {
			return nil, fmt.Errorf("%w: destination root: %v", ErrInvalidRequest, err)
		}
	}

	// The rules file is read once per submission; the snapshot rides with the
	// job so a mid-run edit never changes grouping.
	ruleSet, err := rules.Load(d.cfg.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: rules file: %v", ErrInvalidRequest, err)
	}

	job := &jobs.Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		SourceRoot: source,
		DestRoot:   dest,
		Rules:      ruleSet,
	}
	if err := d.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("queue job: %w", err)
	}

	d.logger.Info("job queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobKind, string(job.Kind)),
		logging.String("source", source),
	)
	return job, nil
}

// APIAddr returns the bound API address, which differs from the configured
// bind when the config asks for port 0.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// ListJobs returns jobs filtered by optional states.
func (d *Daemon) ListJobs(ctx context.Context, states []jobs.State) ([]*jobs.Job, error) {
	return d.store.List(ctx, states...)
}

// GetJob returns a job snapshot, or nil when the id is unknown.
func (d *Daemon) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	return d.store.Get(ctx, id)
}

// CancelJob requests cooperative cancellation.
func (d *Daemon) CancelJob(ctx context.Context, id string) (bool, error) {
	return d.store.RequestCancel(ctx, id)
}

// ClearFinished removes terminal jobs from the store.
func (d *Daemon) ClearFinished(ctx context.Context) (int64, error) {
	return d.store.ClearTerminal(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("job stats unavailable", logging.Error(err))
		stats = map[jobs.State]int{}
	}
	return Status{
		Running:      d.running.Load(),
		JobStats:     stats,
		JobDBPath:    d.store.Path(),
		LockFilePath: d.lockPath,
	}
}

func resolveDir(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%q is not a directory", abs)
	}
	return abs, nil
}

func ensureWritableDir(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%q is not a directory", path)
		}
		return nil
	case os.IsNotExist(err):
		return os.MkdirAll(path, 0o755)
	default:
		return err
	}
}
