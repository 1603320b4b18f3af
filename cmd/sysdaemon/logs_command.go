package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sysdaemon/internal/journal"
	"sysdaemon/internal/logging"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var plain bool
	var pruneDays int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent entries from the log journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			path := cfg.JournalPath()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if !cfg.Logging.Journal {
					fmt.Fprintln(stdout, "Log journal is disabled (set logging.journal = true).")
				} else {
					fmt.Fprintln(stdout, "Log journal is empty.")
				}
				return nil
			}

			j, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer j.Close()

			if pruneDays > 0 {
				removed, err := j.Prune(cmd.Context(), time.Now().AddDate(0, 0, -pruneDays))
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Pruned %d journal entries older than %d days.\n", removed, pruneDays)
			}

			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(stdout, "Log journal is empty.")
				return nil
			}

			if plain {
				for _, entry := range entries {
					fmt.Fprint(stdout, plainLine(entry))
				}
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(entry.ID, 10),
					entry.Time.Format(logging.TimeLayout),
					entry.Level,
					entry.Message,
				})
			}
			fmt.Fprintln(stdout, renderTable([]string{"ID", "Time", "Level", "Message"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "lines", "n", 50, "Number of entries to show")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print plain log lines instead of a table")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete entries older than this many days before listing")
	return cmd
}

// plainLine renders a journal entry exactly as the file sink writes lines.
func plainLine(entry journal.Entry) string {
	level, err := logging.ParseLevel(entry.Level)
	if err != nil {
		return fmt.Sprintf("%s %s: %s\n", entry.Time.Format(logging.TimeLayout), entry.Level, entry.Message)
	}
	return logging.FormatLine(entry.Time, level, entry.Message)
}
