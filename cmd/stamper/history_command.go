package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stamper/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent folder processing outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Journal is disabled; enable [journal] in the config to record history")
				return nil
			}

			store, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			events, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No journal entries yet")
				return nil
			}

			rows := make([][]string, 0, len(events))
			for _, event := range events {
				rows = append(rows, []string{
					event.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					event.FolderName,
					string(event.Outcome),
					event.Detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]tableColumn{
					{Header: "Time"},
					{Header: "Folder"},
					{Header: "Outcome"},
					{Header: "Detail"},
				},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	return cmd
}
