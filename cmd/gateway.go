package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/feynmanium/feynmanium/internal/channels"
	"github.com/feynmanium/feynmanium/internal/commands"
	"github.com/feynmanium/feynmanium/internal/container"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Connect to the enabled chat channels and answer commands",
	RunE:  runGateway,
}

func runGateway(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := container.New(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("%s Starting feynmanium gateway...\n", logo)

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	channelMgr := c.Channels()
	if enabled := channelMgr.EnabledChannels(); len(enabled) > 0 {
		fmt.Printf("✓ Channels enabled: %s\n", strings.Join(enabled, ", "))
	} else {
		fmt.Println("Warning: no channels enabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Router().Run(gctx) })
	g.Go(func() error { return c.Games().Run(gctx) })
	g.Go(func() error { return c.Presence().Start(gctx) })
	g.Go(func() error { return channelMgr.StartAll(gctx) })

	slog.Info("gateway: "+commands.Choice(cfg.Bot.ReadyMessages), "prefix", cfg.Bot.Prefix, "commands", len(c.Registry().All()))
	fmt.Printf("%s Gateway running. Press Ctrl+C to stop.\n", logo)

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, channels.ErrQuit) {
		fmt.Fprintf(os.Stderr, "gateway error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
