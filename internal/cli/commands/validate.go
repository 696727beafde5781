package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlshift/internal/rulesource"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var fromFile string
	cmd := &cobra.Command{
		Use:   "validate [sql]",
		Short: "Check that a query parses in the configured dialect",
		Long: `Parse a query without transpiling it and report any syntax problems.
No rules are fetched and nothing is rewritten.`,
		Example: `  # Validate a query inline
  sqlshift validate "SELECT * FROM raw.events"

  # Validate a file
  sqlshift validate --file query.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)

			sqlText, err := readSQL(cmd, args, fromFile)
			if err != nil {
				return err
			}

			// Validation never fetches rules, so no source is opened.
			issues := newEngine(cfg, rulesource.NewMemorySource()).ValidateSQL(sqlText)
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintln(cmd.OutOrStdout(), issue)
			}
			return fmt.Errorf("validation found %d problem(s)", len(issues))
		},
	}

	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read SQL from a file")
	return cmd
}
