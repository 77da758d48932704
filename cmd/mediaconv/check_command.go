package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediaconv/internal/deps"
	"mediaconv/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify folders and external tools without starting the watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failures := 0

			fmt.Fprintln(out, renderSectionHeader("Folders", colorize))
			for _, result := range preflight.RunAll(cfg) {
				if !result.Passed {
					failures++
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, passFail(result.Passed), result.Detail, colorize))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, renderSectionHeader(fmt.Sprintf("Tools (%s strategy)", cfg.StrategyKind()), colorize))
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				location := status.Resolved
				if !status.Available {
					location = status.Detail
					if !status.Optional {
						failures++
					}
				}
				rows = append(rows, []string{status.Name, status.Command, yesNo(status.Available), location})
			}
			fmt.Fprintln(out, renderTable([]string{"Tool", "Command", "Available", "Location"}, rows, nil))

			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}
