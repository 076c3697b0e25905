package main

import (
	"fmt"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"shoebox/internal/api"
	"shoebox/internal/jobs"
)

const watchPollInterval = 500 * time.Millisecond

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow a job until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchJob(cmd, ctx, args[0], jsonOut)
		},
	}

	addJSONFlag(cmd, &jsonOut)
	return cmd
}

// watchJob polls the daemon until the job reaches a terminal state, rendering
// a progress bar on interactive terminals.
func watchJob(cmd *cobra.Command, ctx *commandContext, id string, jsonOut bool) error {
	c, err := ctx.apiClient()
	if err != nil {
		return err
	}

	var bar *pb.ProgressBar
	interactive := isatty.IsTerminal(getStdoutFd(cmd)) && !jsonOut
	defer func() {
		if bar != nil {
			bar.Finish()
		}
	}()

	for {
		job, err := c.Job(cmd.Context(), id)
		if err != nil {
			return err
		}

		if interactive && job.Progress.Total > 0 {
			if bar == nil {
				bar = pb.Full.Start64(job.Progress.Total)
				bar.SetWriter(cmd.OutOrStdout())
			}
			bar.SetTotal(job.Progress.Total)
			bar.SetCurrent(job.Progress.Processed)
		}

		if jobs.State(job.State).IsTerminal() {
			if bar != nil {
				bar.SetCurrent(job.Progress.Processed)
				bar.Finish()
				bar = nil
			}
			return printFinishedJob(cmd, job, jsonOut)
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(watchPollInterval):
		}
	}
}

func printFinishedJob(cmd *cobra.Command, job api.JobPayload, jsonOut bool) error {
	if jsonOut {
		return writeJSON(cmd, job)
	}
	out := cmd.OutOrStdout()
	switch jobs.State(job.State) {
	case jobs.StateDone:
		fmt.Fprintf(out, "Job %s finished\n", shortID(job.ID))
	case jobs.StateCancelled:
		fmt.Fprintf(out, "Job %s was cancelled after %s files\n", shortID(job.ID), formatProgress(job.Progress))
	default:
		fmt.Fprintf(out, "Job %s failed: %s\n", shortID(job.ID), job.ErrorMessage)
	}
	if job.Preview != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderPreviewTable(job.Preview))
	}
	if job.Report != nil {
		fmt.Fprintln(out)
		renderReport(cmd, job.Report)
	}
	return nil
}

func getStdoutFd(cmd *cobra.Command) uintptr {
	type fdWriter interface{ Fd() uintptr }
	if f, ok := cmd.OutOrStdout().(fdWriter); ok {
		return f.Fd()
	}
	return ^uintptr(0)
}
