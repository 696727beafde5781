package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlshift/internal/rulesource"
)

// NewRulesCommand creates the rules command group.
func NewRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage table substitution rules",
		Long: `List and edit the substitution rules served by the rule source.

Listing works against any source. Adding and removing rules requires the
SQLite state database; edit the YAML directly for file-backed sources.`,
	}
	cmd.AddCommand(newRulesListCommand())
	cmd.AddCommand(newRulesAddCommand())
	cmd.AddCommand(newRulesRemoveCommand())
	return cmd
}

func newRulesListCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List substitution rules",
		Example: `  # List rules from the state database
  sqlshift rules list

  # List rules from a YAML file
  sqlshift rules list --rules-file rules.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)

			source, _, cleanup, err := openSource(cfg)
			defer cleanup()
			if err != nil {
				return err
			}

			rules, err := source.GetRules(cmd.Context(), cfg.Scope)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rules)
			}

			if len(rules) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No rules configured.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Kind", "Source", "Target", "Enabled", "Description"})
			for _, rule := range rules {
				t.AppendRow(table.Row{rule.ID, rule.Kind, rule.Source, rule.Target, rule.Enabled, rule.Description})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit rules as JSON")
	return cmd
}

func newRulesAddCommand() *cobra.Command {
	var (
		rule     rulesource.Rule
		scope    string
		disabled bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a substitution rule",
		Example: `  # Map a logical table to its physical location
  sqlshift rules add --id raw-events --source raw.events --target warehouse.events_v2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			if err := requireStateBacked(cfg, "rules add"); err != nil {
				return err
			}

			store, cleanup, err := openStore(cfg)
			defer cleanup()
			if err != nil {
				return err
			}

			rule.Kind = rulesource.KindTableSubstitution
			rule.Enabled = !disabled
			if err := store.SaveRule(cmd.Context(), rule, scope); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved rule %s: %s -> %s\n", rule.ID, rule.Source, rule.Target)
			return nil
		},
	}

	cmd.Flags().StringVar(&rule.ID, "id", "", "Rule identifier (required)")
	cmd.Flags().StringVar(&rule.Source, "source", "", "Logical dotted table path (required)")
	cmd.Flags().StringVar(&rule.Target, "target", "", "Physical dotted table path (required)")
	cmd.Flags().StringVar(&rule.Description, "description", "", "Human-readable description")
	cmd.Flags().StringVar(&scope, "rule-scope", "", "Restrict the rule to one scope (empty = global)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Store the rule disabled")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newRulesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a substitution rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			if err := requireStateBacked(cfg, "rules rm"); err != nil {
				return err
			}

			store, cleanup, err := openStore(cfg)
			defer cleanup()
			if err != nil {
				return err
			}

			if err := store.DeleteRule(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed rule %s\n", args[0])
			return nil
		},
	}
}
