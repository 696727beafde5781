package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlshift/internal/state"
)

// TranspileOptions holds options for the transpile command.
type TranspileOptions struct {
	File  string // Read SQL from this file instead of the argument
	JSON  bool   // Emit the full result as JSON
	NoLog bool   // Skip the audit log
}

// NewTranspileCommand creates the transpile command.
func NewTranspileCommand() *cobra.Command {
	opts := &TranspileOptions{}
	cmd := &cobra.Command{
		Use:   "transpile [sql]",
		Short: "Rewrite logical table names and expand METRIC() macros",
		Long: `Transpile a query written against logical table names into one targeting
physical storage. Substitution rules and metric definitions come from the
configured rule source (a YAML rules file or the state database).

The transpiled SQL is printed to stdout; warnings go to stderr. Use --json
for the full result including applied rules and audit metadata.`,
		Example: `  # Transpile a query inline
  sqlshift transpile "SELECT * FROM raw.events"

  # Transpile a file against a rules file
  sqlshift transpile --file query.sql --rules-file rules.yaml

  # Read from stdin, emit the full result as JSON
  cat query.sql | sqlshift transpile --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranspile(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read SQL from a file")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Emit the full result as JSON")
	cmd.Flags().BoolVar(&opts.NoLog, "no-log", false, "Do not record the call in the audit log")

	return cmd
}

func runTranspile(cmd *cobra.Command, args []string, opts *TranspileOptions) error {
	cfg := getConfig(cmd)

	sqlText, err := readSQL(cmd, args, opts.File)
	if err != nil {
		return err
	}

	source, store, cleanup, err := openSource(cfg)
	defer cleanup()
	if err != nil {
		return err
	}

	engine := newEngine(cfg, source)
	result, err := engine.Transpile(cmd.Context(), sqlText)
	if err != nil {
		// Strict mode aborts with no partial result.
		return err
	}

	if store != nil && !opts.NoLog {
		if _, lerr := store.LogTranspile(cmd.Context(), state.TranspileRecord{
			ID:            result.Metadata.RequestID,
			Dialect:       result.Metadata.Dialect,
			Success:       result.Success,
			OriginalSQL:   result.Metadata.OriginalSQL,
			TranspiledSQL: result.SQL,
			Error:         result.Error,
			WarningCount:  len(result.Warnings),
			DurationMs:    result.Metadata.DurationMs,
		}); lerr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to record audit log: %v\n", lerr)
		}
	}

	if opts.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		for _, w := range result.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning [%s]: %s\n", w.Kind, w.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.SQL)
	}

	if !result.Success {
		return fmt.Errorf("transpile failed: %s", result.Error)
	}
	return nil
}
