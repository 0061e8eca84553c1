package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/innkeeper/cmd/innkeeper/internal"
	"github.com/tinyland-inc/innkeeper/cmd/innkeeper/internal/configcmd"
	"github.com/tinyland-inc/innkeeper/cmd/innkeeper/internal/run"
	"github.com/tinyland-inc/innkeeper/cmd/innkeeper/internal/version"
)

func NewInnkeeperCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "innkeeper",
		Short:   fmt.Sprintf("innkeeper %s - WoW guild chat <-> Discord bridge", internal.GetVersion()),
		Example: "innkeeper run --config innkeeper.conf",
	}

	cmd.AddCommand(
		run.NewRunCommand(),
		configcmd.NewConfigCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewInnkeeperCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
