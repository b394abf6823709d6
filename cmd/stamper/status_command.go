package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"stamper/internal/deps"
	"stamper/internal/journal"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report tool availability and journal totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, "External tools:")
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			statuses = append(statuses, deps.CheckFont(cfg.Overlay.FontPath))
			for _, status := range statuses {
				fmt.Fprintln(out, renderDependencyLine(status, colorize))
			}

			if err := cfg.ValidateRemote(); err != nil {
				fmt.Fprintf(out, "\nRemote store: not configured (%v)\n", err)
			} else {
				fmt.Fprintf(out, "\nRemote store: root folder %s\n", cfg.Drive.RootFolderID)
			}

			if !cfg.Journal.Enabled {
				fmt.Fprintln(out, "\nJournal: disabled")
				return nil
			}
			return printJournalTotals(cmd.Context(), out, cfg.JournalPath())
		},
	}
}

func renderDependencyLine(status deps.Status, colorize bool) string {
	label := "MISSING"
	color := ansiRed
	detail := status.Detail
	if status.Available {
		label = "OK"
		color = ansiGreen
		detail = status.Command
	} else if status.Optional {
		label = "SKIPPED"
		color = ansiYellow
	}
	line := fmt.Sprintf("  %-14s [%s] %s", status.Name, label, detail)
	if colorize {
		return color + line + ansiReset
	}
	return line
}

func printJournalTotals(ctx context.Context, out io.Writer, path string) error {
	store, err := journal.Open(path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	counts, err := store.CountByOutcome(ctx)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	rows := make([][]string, 0, len(counts))
	for _, outcome := range []journal.Outcome{
		journal.OutcomeProcessed,
		journal.OutcomeMissingInput,
		journal.OutcomeFailed,
		journal.OutcomeMarkerError,
	} {
		rows = append(rows, []string{string(outcome), strconv.Itoa(counts[outcome])})
	}

	fmt.Fprintln(out, "\nJournal totals:")
	fmt.Fprintln(out, renderTable(
		[]tableColumn{{Header: "Outcome"}, {Header: "Count", Numeric: true}},
		rows,
	))
	return nil
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
