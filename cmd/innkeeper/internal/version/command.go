package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/innkeeper/cmd/innkeeper/internal"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the innkeeper version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), internal.GetVersion())
			return nil
		},
	}
}
