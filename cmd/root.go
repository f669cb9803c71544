// Package cmd implements the feynmanium CLI using cobra.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/feynmanium/feynmanium/internal/config"
)

const version = "0.1.0"
const logo = "∫"

var (
	cfgPath string
	verbose bool
	logFile string

	logCloser io.Closer
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "feynmanium",
	Short: logo + " feynmanium: dice, math, chess and translation bot",
	Long:  logo + " feynmanium is a chat bot for Discord, Telegram and Slack that rolls dice, does symbolic math, plays chess and translates",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		closer, err := setupLogging(verbose, logFile)
		if err != nil {
			return err
		}
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	SilenceUsage: true,
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (default "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write JSON logs to this file instead of stderr")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(channelsCmd)
}

// setupLogging installs the default slog handler: text on stderr, or JSON
// appended to path when one is given.
func setupLogging(debug bool, path string) (io.Closer, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if path == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, opts)))
	return f, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func configFile() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.ConfigPath()
}
