package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlshift/internal/rulesource"
)

// NewMetricsCommand creates the metrics command group.
func NewMetricsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Manage metric definitions",
		Long: `List and edit the metric definitions that METRIC() macros expand to.

Listing works against any source. Adding and removing metrics requires the
SQLite state database; edit the YAML directly for file-backed sources.`,
	}
	cmd.AddCommand(newMetricsListCommand())
	cmd.AddCommand(newMetricsShowCommand())
	cmd.AddCommand(newMetricsAddCommand())
	cmd.AddCommand(newMetricsRemoveCommand())
	return cmd
}

func newMetricsListCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List metric definitions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)

			source, _, cleanup, err := openSource(cfg)
			defer cleanup()
			if err != nil {
				return err
			}

			names, err := source.ListMetricNames(cmd.Context())
			if err != nil {
				return err
			}

			var defs []rulesource.MetricDefinition
			for _, name := range names {
				def, err := source.GetMetric(cmd.Context(), name)
				if err != nil {
					return err
				}
				defs = append(defs, *def)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(defs)
			}

			if len(defs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No metrics registered.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Expression", "Source Table", "Description"})
			for _, def := range defs {
				t.AppendRow(table.Row{def.Name, def.Expression, def.SourceTable, def.Description})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit metrics as JSON")
	return cmd
}

func newMetricsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one metric definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)

			source, _, cleanup, err := openSource(cfg)
			defer cleanup()
			if err != nil {
				return err
			}

			def, err := source.GetMetric(cmd.Context(), args[0])
			if err != nil {
				var nf *rulesource.MetricNotFoundError
				if errors.As(err, &nf) && len(nf.Suggestions) > 0 {
					return fmt.Errorf("metric %q not found; did you mean: %s?",
						nf.Name, strings.Join(nf.Suggestions, ", "))
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:        %s\n", def.Name)
			fmt.Fprintf(out, "Expression:  %s\n", def.Expression)
			if def.SourceTable != "" {
				fmt.Fprintf(out, "Source:      %s\n", def.SourceTable)
			}
			if def.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", def.Description)
			}
			return nil
		},
	}
}

func newMetricsAddCommand() *cobra.Command {
	var def rulesource.MetricDefinition
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a metric definition",
		Example: `  # Register the revenue metric
  sqlshift metrics add --name revenue --expression "SUM(amount)" --source-table orders`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			if err := requireStateBacked(cfg, "metrics add"); err != nil {
				return err
			}

			store, cleanup, err := openStore(cfg)
			defer cleanup()
			if err != nil {
				return err
			}

			if err := store.SaveMetric(cmd.Context(), def); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved metric %s\n", def.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&def.Name, "name", "", "Metric name (required, case-sensitive)")
	cmd.Flags().StringVar(&def.Expression, "expression", "", "SQL expression (required)")
	cmd.Flags().StringVar(&def.SourceTable, "source-table", "", "Table the metric is defined against")
	cmd.Flags().StringVar(&def.Description, "description", "", "Human-readable description")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("expression")
	return cmd
}

func newMetricsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a metric definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			if err := requireStateBacked(cfg, "metrics rm"); err != nil {
				return err
			}

			store, cleanup, err := openStore(cfg)
			defer cleanup()
			if err != nil {
				return err
			}

			if err := store.DeleteMetric(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed metric %s\n", args[0])
			return nil
		},
	}
}
