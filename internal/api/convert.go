package api

import (
	"time"

	"shoebox/internal/jobs"
)

// FromJob converts a store record to its API representation.
func FromJob(job *jobs.Job) JobPayload {
	if job == nil {
		return JobPayload{}
	}

	dto := JobPayload{
		ID:              job.ID,
		Kind:            string(job.Kind),
		State:           string(job.State),
		SourceRoot:      job.SourceRoot,
		DestRoot:        job.DestRoot,
		Progress:        JobProgress{Processed: job.Progress.Processed, Total: job.Progress.Total},
		CancelRequested: job.CancelRequested,
		ErrorMessage:    job.ErrorMessage,
		CreatedAt:       FormatTime(job.CreatedAt),
		UpdatedAt:       FormatTime(job.UpdatedAt),
	}
	if job.StartedAt != nil {
		dto.StartedAt = FormatTime(*job.StartedAt)
	}
	if job.FinishedAt != nil {
		dto.FinishedAt = FormatTime(*job.FinishedAt)
	}
	if job.Preview != nil {
		dto.Preview = fromPreview(job.Preview)
	}
	if job.Report != nil {
		dto.Report = fromReport(job.Report)
	}
	return dto
}

// FromJobs converts a slice of store records into API DTOs.
func FromJobs(list []*jobs.Job) []JobPayload {
	if len(list) == 0 {
		return nil
	}
	out := make([]JobPayload, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}

func fromPreview(preview *jobs.PreviewResult) *PreviewPayload {
	out := &PreviewPayload{Groups: make([]GroupSummary, 0, len(preview.Groups))}
	for _, group := range preview.Groups {
		out.Groups = append(out.Groups, GroupSummary{
			Folder:      group.Folder,
			FileCount:   group.FileCount,
			TotalBytes:  group.TotalBytes,
			SampleFiles: group.SampleFiles,
		})
	}
	return out
}

func fromReport(report *jobs.CopyReport) *ReportPayload {
	out := &ReportPayload{
		CopiedCount:  report.CopiedCount,
		SkippedCount: report.SkippedCount,
	}
	for _, entry := range report.FailedEntries {
		out.FailedEntries = append(out.FailedEntries, FailedEntry{File: entry.File, Reason: entry.Reason})
	}
	return out
}

// MergeJobStats produces a string-keyed representation of job stats.
func MergeJobStats(stats map[jobs.State]int) map[string]int {
	out := make(map[string]int, len(stats))
	for state, count := range stats {
		out[string(state)] = count
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
