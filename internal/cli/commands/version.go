package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Print the sqlshift version.`,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sqlshift v%s\n", version)
			fmt.Fprintln(cmd.OutOrStdout(), "SQL transpile engine for logical-to-physical table mapping")
		},
	}
}
