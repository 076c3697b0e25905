package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon:  running (%s)\n", status.Version)
			fmt.Fprintf(out, "Queued:  %d\n", status.QueueSize)

			states := make([]string, 0, len(status.JobStats))
			for state := range status.JobStats {
				states = append(states, state)
			}
			sort.Strings(states)
			for _, state := range states {
				fmt.Fprintf(out, "  %-10s %d\n", state, status.JobStats[state])
			}
			return nil
		},
	}

	addJSONFlag(cmd, &jsonOut)
	return cmd
}
