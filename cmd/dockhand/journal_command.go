package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dockhand/internal/eventlog"
)

func newJournalCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var path string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List events recorded by `dockhand events --record`",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			target := strings.TrimSpace(path)
			if target == "" {
				target = cfg.Journal.Path
			}

			journal, err := eventlog.OpenReadOnly(target)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no journal at %s; record one with `dockhand events --record`", target)
				}
				return err
			}
			defer journal.Close()

			entries, err := journal.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Journal is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					fmt.Sprintf("%d", entry.ID),
					entry.Event.Timestamp().UTC().Format(time.RFC3339),
					titleLabel(entry.Event.Type),
					entry.Event.Action,
					entry.Event.Name(),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Time", "Type", "Action", "Actor"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent events to show (0 for all)")
	cmd.Flags().StringVar(&path, "journal", "", "Journal database to read (defaults to the configured path)")
	return cmd
}
