// Package run implements `innkeeper run`: load config, connect to Discord,
// build the routing table once the guild is known, then hand the WoW-side
// connection lifecycle to the supervisor while the bridge orchestrator moves
// messages between the two conduits.
package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/innkeeper/internal/adapter/discord"
	"github.com/tinyland-inc/innkeeper/internal/bridge"
	"github.com/tinyland-inc/innkeeper/internal/bus"
	"github.com/tinyland-inc/innkeeper/internal/config"
	"github.com/tinyland-inc/innkeeper/internal/logging"
	"github.com/tinyland-inc/innkeeper/internal/resolver"
	"github.com/tinyland-inc/innkeeper/internal/supervisor"
)

const discordReadyTimeout = 30 * time.Second

func NewRunCommand() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the WoW-to-Discord bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBridge(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to innkeeper.conf (default: $INNKEEPER_CONFIG or ./innkeeper.conf)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	return cmd
}

func runBridge(parent context.Context, configPath string, debug bool) error {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := logging.New(level, isInteractive())

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithContext(ctx, logger)

	if configPath == "" {
		configPath = "innkeeper.conf"
	}
	cfg, err := config.Load(config.ConfigPath(configPath), func(warning string) {
		logger.Warn().Msg(warning)
	})
	if err != nil {
		return err
	}

	b := bus.New()
	defer b.Close()

	discordAdapter, err := discord.New(cfg.Discord.Token, b, cfg.Discord.EnableDotCommands, cfg.Discord.EnableCommandsChannels)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return discordAdapter.Start(gctx) })

	select {
	case <-discordAdapter.Ready():
	case <-time.After(discordReadyTimeout):
		return fmt.Errorf("discord gateway did not become ready within %s", discordReadyTimeout)
	case <-gctx.Done():
		return g.Wait()
	}

	res := resolver.New(cfg.Discord.EnableMarkdown)
	state, err := bridge.BuildState(cfg, discordAdapter.GuildID(), discordAdapter, func(warning string) {
		logger.Warn().Msg(warning)
	})
	if err != nil {
		return err
	}

	orchestrator := bridge.New(b, discordAdapter, res, state)
	sup := supervisor.New(cfg, b, discordAdapter)

	g.Go(func() error { return orchestrator.Run(gctx) })
	g.Go(func() error { return sup.Run(gctx) })

	err = g.Wait()
	if ctx.Err() != nil {
		// The signal context was canceled (SIGINT/SIGTERM or parent
		// cancellation); every goroutine above already returned once its own
		// ctx.Done() fired, so there is nothing left in flight to wait on.
		// gctx.Err() would also be non-nil here but is non-nil on ANY
		// goroutine error too, since errgroup cancels its own child context
		// on the first failure — checking the signal context instead is what
		// distinguishes a clean shutdown from a terminal error.
		return nil
	}
	return err
}

func isInteractive() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
