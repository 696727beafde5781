// Package cli provides the command-line interface for sqlshift.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlshift/internal/cli/commands"
	"github.com/leapstack-labs/sqlshift/internal/config"
	"github.com/leapstack-labs/sqlshift/pkg/dialect"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sqlshift",
		Short: "sqlshift - SQL Transpile Engine",
		Long: `sqlshift rewrites SQL queries by substituting logical table names with
their physical locations, expanding METRIC() macros, and flagging common
query anti-patterns along the way.

Rules come from a YAML file or the local SQLite state database.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			cmd.SetContext(commands.WithConfig(cmd.Context(), cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags. Flag names map to config keys with dashes
	// replaced by underscores, so --retry-count sets retry_count.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./sqlshift.yaml)")
	rootCmd.PersistentFlags().String("dialect", config.DefaultDialect, "SQL dialect for identifier quoting")
	rootCmd.PersistentFlags().Bool("strict-mode", false, "Fail on any rule fetch, metric, or parse error")
	rootCmd.PersistentFlags().Int("retry-count", config.DefaultRetryCount, "Retries after a failed rule fetch")
	rootCmd.PersistentFlags().Int("max-metrics", config.DefaultMaxMetrics, "Maximum METRIC() calls per query")
	rootCmd.PersistentFlags().String("scope", "", "Rule scope (empty = global rules only)")
	rootCmd.PersistentFlags().String("rules-file", "", "YAML rule file (overrides the state database)")
	rootCmd.PersistentFlags().String("rules-dsn", "", "Postgres rule registry DSN (overrides the state database)")
	rootCmd.PersistentFlags().String("state-path", config.DefaultStateFile, "Path to the SQLite state database")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	// Register completion for dialect flag
	_ = rootCmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return dialect.List(), cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewTranspileCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewRulesCommand())
	rootCmd.AddCommand(commands.NewMetricsCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewDialectsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for sqlshift.

To load completions:

Bash:
  $ source <(sqlshift completion bash)

Zsh:
  $ sqlshift completion zsh > "${fpath[1]}/_sqlshift"

Fish:
  $ sqlshift completion fish | source

PowerShell:
  PS> sqlshift completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
