package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlshift/pkg/dialect"
)

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported SQL dialects",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range dialect.List() {
				marker := " "
				if name == dialect.DefaultName {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
		},
	}
}
