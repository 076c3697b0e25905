package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shoebox/internal/api"
)

func renderJobTable(list []api.JobPayload) string {
	columns := []column{
		{title: "ID"},
		{title: "Kind"},
		{title: "State"},
		{title: "Progress", numeric: true},
		{title: "Source"},
	}

	rows := make([][]string, 0, len(list))
	for _, job := range list {
		rows = append(rows, []string{
			shortID(job.ID),
			job.Kind,
			job.State,
			formatProgress(job.Progress),
			job.SourceRoot,
		})
	}
	return renderTable(columns, rows)
}

func renderJobDetail(cmd *cobra.Command, job api.JobPayload) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:      %s\n", job.ID)
	fmt.Fprintf(out, "Kind:     %s\n", job.Kind)
	fmt.Fprintf(out, "State:    %s\n", job.State)
	fmt.Fprintf(out, "Source:   %s\n", job.SourceRoot)
	if job.DestRoot != "" {
		fmt.Fprintf(out, "Dest:     %s\n", job.DestRoot)
	}
	fmt.Fprintf(out, "Progress: %s\n", formatProgress(job.Progress))
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s\n", job.ErrorMessage)
	}
	if job.Preview != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderPreviewTable(job.Preview))
	}
	if job.Report != nil {
		fmt.Fprintln(out)
		renderReport(cmd, job.Report)
	}
}

func renderPreviewTable(preview *api.PreviewPayload) string {
	columns := []column{
		{title: "Folder"},
		{title: "Files", numeric: true},
		{title: "Size", numeric: true},
		{title: "Samples"},
	}

	rows := make([][]string, 0, len(preview.Groups))
	for _, group := range preview.Groups {
		rows = append(rows, []string{
			group.Folder,
			strconv.FormatInt(group.FileCount, 10),
			humanize.IBytes(uint64(group.TotalBytes)),
			strings.Join(group.SampleFiles, ", "),
		})
	}
	return renderTable(columns, rows)
}

func renderReport(cmd *cobra.Command, report *api.ReportPayload) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Copied:  %d\n", report.CopiedCount)
	fmt.Fprintf(out, "Skipped: %d\n", report.SkippedCount)
	fmt.Fprintf(out, "Failed:  %d\n", len(report.FailedEntries))
	for _, entry := range report.FailedEntries {
		fmt.Fprintf(out, "  %s: %s\n", entry.File, entry.Reason)
	}
}

func formatProgress(progress api.JobProgress) string {
	if progress.Total == 0 {
		return strconv.FormatInt(progress.Processed, 10)
	}
	return fmt.Sprintf("%d/%d", progress.Processed, progress.Total)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
