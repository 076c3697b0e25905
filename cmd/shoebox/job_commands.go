package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shoebox/internal/api"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "preview <source>",
		Short: "Queue a dry-run job that reports the grouped layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient()
			if err != nil {
				return err
			}
			job, err := c.Submit(cmd.Context(), api.SubmitRequest{
				Kind:       "preview",
				SourceRoot: args[0],
			})
			if err != nil {
				return err
			}
			if watch {
				return watchJob(cmd, ctx, job.ID, jsonOut)
			}
			if jsonOut {
				return writeJSON(cmd, job)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued preview job %s\n", job.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Follow it with `shoebox watch %s`\n", job.ID)
			return nil
		},
	}

	addJSONFlag(cmd, &jsonOut)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Wait for the job and show progress")
	return cmd
}

func newCopyCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "copy <source> <destination>",
		Short: "Queue a job that copies files into the grouped layout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient()
			if err != nil {
				return err
			}
			job, err := c.Submit(cmd.Context(), api.SubmitRequest{
				Kind:       "copy",
				SourceRoot: args[0],
				DestRoot:   args[1],
			})
			if err != nil {
				return err
			}
			if watch {
				return watchJob(cmd, ctx, job.ID, jsonOut)
			}
			if jsonOut {
				return writeJSON(cmd, job)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued copy job %s\n", job.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Follow it with `shoebox watch %s`\n", job.ID)
			return nil
		},
	}

	addJSONFlag(cmd, &jsonOut)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Wait for the job and show progress")
	return cmd
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var states []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient()
			if err != nil {
				return err
			}
			list, err := c.Jobs(cmd.Context(), states...)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, api.JobList{Jobs: list})
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderJobTable(list))
			return nil
		},
	}

	addJSONFlag(cmd, &jsonOut)
	cmd.Flags().StringSliceVar(&states, "state", nil, "Filter by state (repeatable)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient()
			if err != nil {
				return err
			}
			job, err := c.Job(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, job)
			}
			renderJobDetail(cmd, job)
			return nil
		},
	}

	addJSONFlag(cmd, &jsonOut)
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Request cancellation of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := c.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			if resp.Cancelled {
				fmt.Fprintf(out, "Cancellation requested for job %s\n", resp.Job.ID)
			} else {
				fmt.Fprintf(out, "Job %s is already %s\n", resp.Job.ID, resp.Job.State)
			}
			return nil
		},
	}

	addJSONFlag(cmd, &jsonOut)
	return cmd
}
