package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediaconv/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently finished conversion jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.HistoryPath()
			if path == "" {
				return fmt.Errorf("job history is disabled (set history.enabled = true)")
			}
			store, err := history.Open(path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No jobs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.Finished.Local().Format(time.DateTime),
					filepath.Base(entry.Source),
					outcomeLabel(entry.Outcome),
					entry.Duration.Round(time.Second).String(),
					sizeLabel(entry),
					detailLabel(entry),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Finished", "Source", "Outcome", "Duration", "Size", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))

			counts, err := store.Counts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, summarizeCounts(counts))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Maximum number of jobs to list")
	return cmd
}

var outcomeCaser = cases.Title(language.English)

func outcomeLabel(outcome string) string {
	return outcomeCaser.String(strings.ReplaceAll(outcome, "_", " "))
}

func sizeLabel(entry history.Entry) string {
	if !entry.Succeeded() || entry.OutputSize <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(entry.OutputSize))
}

func detailLabel(entry history.Entry) string {
	switch {
	case entry.Error != "":
		return entry.Error
	case entry.ArchiveError != "":
		return "archive: " + entry.ArchiveError
	default:
		return filepath.Base(entry.Dest)
	}
}

func summarizeCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	total := 0
	for key, n := range counts {
		keys = append(keys, key)
		total += n
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, outcomeLabel(key)+": "+strconv.Itoa(counts[key]))
	}
	return fmt.Sprintf("Total jobs: %d (%s)", total, strings.Join(parts, ", "))
}
