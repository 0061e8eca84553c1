// Package configcmd implements `innkeeper config`, validating and locating
// the HOCON config file without starting any connection.
package configcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/innkeeper/internal/config"
)

func NewConfigCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect innkeeper configuration",
	}
	cmd.PersistentFlags().StringVar(&path, "config", "", "path to innkeeper.conf (default: $INNKEEPER_CONFIG or ./innkeeper.conf)")

	cmd.AddCommand(
		newPathCommand(&path),
		newCheckCommand(&path),
	)
	return cmd
}

func newPathCommand(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path that would be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.ConfigPath(resolvedDefault(*path)))
			return nil
		},
	}
}

func newCheckCommand(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and validate the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.ConfigPath(resolvedDefault(*path)), func(warning string) {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", warning)
			})
			if err != nil {
				return err
			}
			if !config.HasRequiredFields(cfg) {
				return fmt.Errorf("config loaded but required fields are missing")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config OK: %d chat mapping(s), realm %q\n", len(cfg.Chat.Channels), cfg.Wow.Realm)
			return nil
		},
	}
}

func resolvedDefault(path string) string {
	if path != "" {
		return path
	}
	return "innkeeper.conf"
}
