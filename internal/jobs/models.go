package jobs

import (
	"strings"
	"time"

	"shoebox/internal/rules"
)

// Kind distinguishes dry-run previews from actual copy jobs.
type Kind string

const (
	KindPreview Kind = "preview"
	KindCopy    Kind = "copy"
)

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindPreview:
		return KindPreview, true
	case KindCopy:
		return KindCopy, true
	default:
		return "", false
	}
}

// State represents the lifecycle of a job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether no further transition can leave the state.
func (s State) IsTerminal() bool {
	switch s {
	case StateDone, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Progress counts files handled so far against the scan total. Processed is
// monotonically non-decreasing over a job's lifetime.
type Progress struct {
	Processed int64 `json:"processed"`
	Total     int64 `json:"total"`
}

// GroupSummary aggregates one destination group inside a preview.
type GroupSummary struct {
	Folder      string   `json:"folder"`
	FileCount   int64    `json:"fileCount"`
	TotalBytes  int64    `json:"totalBytes"`
	SampleFiles []string `json:"sampleFiles,omitempty"`
}

// PreviewResult is the aggregated outcome of a preview job. Group order is the
// first-seen order during the scan, which is stable across runs over an
// unchanged source tree.
type PreviewResult struct {
	Groups []GroupSummary `json:"groups"`
}

// FailedEntry records one file a copy job could not place.
type FailedEntry struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// CopyReport is the outcome of a copy job. Skipped counts destinations that
// already existed; per-file failures accumulate here without failing the job.
type CopyReport struct {
	CopiedCount   int64         `json:"copiedCount"`
	SkippedCount  int64         `json:"skippedCount"`
	FailedEntries []FailedEntry `json:"failedEntries,omitempty"`
}

// Job is one background unit of work. While running it is exclusively owned by
// a workflow worker; everyone else observes it through store snapshots.
type Job struct {
	ID              string
	Kind            Kind
	State           State
	SourceRoot      string
	DestRoot        string
	Progress        Progress
	CancelRequested bool
	ErrorMessage    string
	Rules           *rules.Set
	Preview         *PreviewResult
	Report          *CopyReport
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	FinishedAt      *time.Time
}

// SetFailed marks the job failed with a diagnostic message. Partial progress
// and results are kept for display.
func (j *Job) SetFailed(message string) {
	j.State = StateFailed
	j.ErrorMessage = message
}
