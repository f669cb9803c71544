package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/feynmanium/feynmanium/internal/container"
)

var runCmd = &cobra.Command{
	Use:   "run <command> [args...]",
	Short: "Run one bot command and print the reply",
	Example: `  feynmanium run roll 6 2
  feynmanium run diff "x*sin(x)"
  feynmanium run trans fr good morning`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Channels.CLI.Enabled = false
	c, err := container.New(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	replies := c.Router().ProcessDirect(ctx, strings.Join(args, " "))
	if len(replies) == 0 {
		fmt.Fprintln(os.Stderr, "no reply")
		return nil
	}
	out := cmd.OutOrStdout()
	for _, r := range replies {
		fmt.Fprintln(out, r)
	}
	return nil
}
