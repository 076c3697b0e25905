package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"shoebox/internal/config"
	"shoebox/internal/rules"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the jobs database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	// Pragmas ride on the DSN so every pooled connection gets them; a plain
	// db.Exec would only configure whichever connection happens to run it,
	// leaving the rest without a busy timeout under write contention.
	dsn := "file:" + dbPath +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new queued job.
func (s *Store) Create(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.ID == "" {
		return errors.New("job id is empty")
	}
	now := time.Now().UTC()
	job.State = StateQueued
	job.CreatedAt = now
	job.UpdatedAt = now

	rulesJSON, err := encodeJSON(job.Rules)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, kind, state, source_root, dest_root,
            progress_processed, progress_total, cancel_requested,
            rules_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Kind,
		job.State,
		job.SourceRoot,
		nullableString(job.DestRoot),
		job.Progress.Processed,
		job.Progress.Total,
		0,
		rulesJSON,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get fetches a job snapshot by id. A missing id returns (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to a non-terminal job. Rows already in a terminal
// state are left untouched, which keeps finished jobs immutable.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()

	previewJSON, err := encodeJSON(job.Preview)
	if err != nil {
		return fmt.Errorf("marshal preview: %w", err)
	}
	reportJSON, err := encodeJSON(job.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET state = ?, progress_processed = ?, progress_total = ?,
             error_message = ?, preview_json = ?, report_json = ?,
             updated_at = ?, started_at = ?, finished_at = ?
         WHERE id = ? AND state IN (?, ?)`,
		job.State,
		job.Progress.Processed,
		job.Progress.Total,
		nullableString(job.ErrorMessage),
		previewJSON,
		reportJSON,
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.StartedAt),
		nullableTime(job.FinishedAt),
		job.ID,
		StateQueued,
		StateRunning,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by state set (or all jobs when none is given),
// newest first.
func (s *Store) List(ctx context.Context, states ...State) ([]*Job, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at DESC, id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(states) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(states))
		args := make([]any, len(states))
		for i, state := range states {
			args[i] = state
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE state IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var list []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, job)
	}
	return list, rows.Err()
}

// ClaimNext atomically moves the oldest queued job to running and returns it.
// Returns (nil, nil) when the queue is empty. Safe under concurrent workers:
// the guarded UPDATE ensures only one claimer wins each job.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	for {
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM jobs WHERE state = ? ORDER BY created_at, id LIMIT 1`,
			StateQueued,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select next queued job: %w", err)
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs SET state = ?, started_at = ?, updated_at = ? WHERE id = ? AND state = ?`,
			StateRunning, now, now, id, StateQueued,
		)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim rows affected: %w", err)
		}
		if affected == 1 {
			return s.Get(ctx, id)
		}
		// Lost the race to another worker; pick again.
	}
}

// RequestCancel flags a job for cooperative cancellation. A still-queued job
// is cancelled immediately; a running job gets the flag and transitions once
// its worker observes it. Terminal jobs are left alone.
func (s *Store) RequestCancel(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET state = ?, cancel_requested = 1, finished_at = ?, updated_at = ?
         WHERE id = ? AND state = ?`,
		StateCancelled, now, now, id, StateQueued,
	)
	if err != nil {
		return false, fmt.Errorf("cancel queued job: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 1 {
		return true, nil
	}

	res, err = s.execWithRetry(
		ctx,
		`UPDATE jobs SET cancel_requested = 1, updated_at = ? WHERE id = ? AND state = ?`,
		now, id, StateRunning,
	)
	if err != nil {
		return false, fmt.Errorf("flag running job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel rows affected: %w", err)
	}
	return affected == 1, nil
}

// CancelRequested reports the cancellation flag for a job. Workers poll this
// between files.
func (s *Store) CancelRequested(ctx context.Context, id string) (bool, error) {
	var flag int
	err := s.db.QueryRowContext(ctx, `SELECT cancel_requested FROM jobs WHERE id = ?`, id).Scan(&flag)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return flag != 0, nil
}

// Stats returns a count of jobs grouped by state.
func (s *Store) Stats(ctx context.Context) (map[State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[State]int)
	for rows.Next() {
		var state State
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	return stats, rows.Err()
}

// ClearTerminal removes finished jobs, keeping queued and running ones.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM jobs WHERE state IN (?, ?, ?)`,
		StateDone, StateFailed, StateCancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("clear finished jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

const jobColumns = "id, kind, state, source_root, dest_root, progress_processed, progress_total, cancel_requested, error_message, rules_json, preview_json, report_json, created_at, updated_at, started_at, finished_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id          string
		kind        string
		state       string
		sourceRoot  string
		destRoot    sql.NullString
		processed   int64
		total       int64
		cancelFlag  int64
		errMessage  sql.NullString
		rulesJSON   sql.NullString
		previewJSON sql.NullString
		reportJSON  sql.NullString
		createdRaw  string
		updatedRaw  string
		startedRaw  sql.NullString
		finishedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id, &kind, &state, &sourceRoot, &destRoot,
		&processed, &total, &cancelFlag,
		&errMessage, &rulesJSON, &previewJSON, &reportJSON,
		&createdRaw, &updatedRaw, &startedRaw, &finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		Kind:            Kind(kind),
		State:           State(state),
		SourceRoot:      sourceRoot,
		DestRoot:        destRoot.String,
		Progress:        Progress{Processed: processed, Total: total},
		CancelRequested: cancelFlag != 0,
		ErrorMessage:    errMessage.String,
	}

	if rulesJSON.Valid && rulesJSON.String != "" {
		set := rules.Empty()
		if err := json.Unmarshal([]byte(rulesJSON.String), set); err != nil {
			return nil, fmt.Errorf("unmarshal rules: %w", err)
		}
		job.Rules = set
	}
	if previewJSON.Valid && previewJSON.String != "" {
		var preview PreviewResult
		if err := json.Unmarshal([]byte(previewJSON.String), &preview); err != nil {
			return nil, fmt.Errorf("unmarshal preview: %w", err)
		}
		job.Preview = &preview
	}
	if reportJSON.Valid && reportJSON.String != "" {
		var report CopyReport
		if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		job.Report = &report
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	return job, nil
}

func encodeJSON(value any) (any, error) {
	switch v := value.(type) {
	case *rules.Set:
		if v == nil {
			return nil, nil
		}
	case *PreviewResult:
		if v == nil {
			return nil, nil
		}
	case *CopyReport:
		if v == nil {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
