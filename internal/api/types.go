// Package api defines the JSON payloads exchanged between the daemon and its
// clients.
package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SubmitRequest asks the daemon to queue a new job.
type SubmitRequest struct {
	Kind       string `json:"kind"`
	SourceRoot string `json:"sourceRoot"`
	DestRoot   string `json:"destRoot,omitempty"`
}

// SubmitResponse returns the queued job.
type SubmitResponse struct {
	Job JobPayload `json:"job"`
}

// JobProgress reports how far a job has come through its scan total.
type JobProgress struct {
	Processed int64 `json:"processed"`
	Total     int64 `json:"total"`
}

// GroupSummary describes one destination group inside a preview payload.
type GroupSummary struct {
	Folder      string   `json:"folder"`
	FileCount   int64    `json:"fileCount"`
	TotalBytes  int64    `json:"totalBytes"`
	SampleFiles []string `json:"sampleFiles,omitempty"`
}

// PreviewPayload carries a preview job's grouped outcome.
type PreviewPayload struct {
	Groups []GroupSummary `json:"groups"`
}

// FailedEntry records one file a copy job could not place.
type FailedEntry struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// ReportPayload carries a copy job's outcome.
type ReportPayload struct {
	CopiedCount   int64         `json:"copiedCount"`
	SkippedCount  int64         `json:"skippedCount"`
	FailedEntries []FailedEntry `json:"failedEntries,omitempty"`
}

// JobPayload describes a job in a transport-friendly format.
type JobPayload struct {
	ID              string          `json:"id"`
	Kind            string          `json:"kind"`
	State           string          `json:"state"`
	SourceRoot      string          `json:"sourceRoot"`
	DestRoot        string          `json:"destRoot,omitempty"`
	Progress        JobProgress     `json:"progress"`
	CancelRequested bool            `json:"cancelRequested"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	Preview         *PreviewPayload `json:"preview,omitempty"`
	Report          *ReportPayload  `json:"report,omitempty"`
	CreatedAt       string          `json:"createdAt,omitempty"`
	UpdatedAt       string          `json:"updatedAt,omitempty"`
	StartedAt       string          `json:"startedAt,omitempty"`
	FinishedAt      string          `json:"finishedAt,omitempty"`
}

// JobList wraps multiple jobs.
type JobList struct {
	Jobs []JobPayload `json:"jobs"`
}

// CancelResponse reports whether a cancel request took effect.
type CancelResponse struct {
	Cancelled bool       `json:"cancelled"`
	Job       JobPayload `json:"job"`
}

// StatusResponse summarizes daemon state.
type StatusResponse struct {
	Running   bool           `json:"running"`
	Version   string         `json:"version"`
	JobStats  map[string]int `json:"jobStats"`
	QueueSize int            `json:"queueSize"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
