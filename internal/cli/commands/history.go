package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transpile calls from the audit log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)

			store, cleanup, err := openStore(cfg)
			defer cleanup()
			if err != nil {
				return err
			}

			records, err := store.RecentTranspiles(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transpile calls recorded yet.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Time", "Request", "Dialect", "OK", "Warnings", "ms", "SQL"})
			t.SetColumnConfigs([]table.ColumnConfig{
				{Name: "SQL", WidthMax: 60, WidthMaxEnforcer: text.Trim},
			})
			for _, rec := range records {
				t.AppendRow(table.Row{
					rec.CreatedAt.Format("2006-01-02 15:04:05"),
					shortID(rec.ID),
					rec.Dialect,
					rec.Success,
					rec.WarningCount,
					fmt.Sprintf("%.1f", rec.DurationMs),
					rec.OriginalSQL,
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to show")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
