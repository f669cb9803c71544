package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/feynmanium/feynmanium/internal/config"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Manage chat channels",
}

func init() {
	channelsCmd.AddCommand(channelsStatusCmd)
}

type channelRow struct{ name, enabled, detail string }

func channelRows(cfg *config.Config) []channelRow {
	ch := cfg.Channels
	return []channelRow{
		{
			"Discord",
			mark(ch.Discord.Enabled),
			tokenHint(ch.Discord.Token),
		},
		{
			"Telegram",
			mark(ch.Telegram.Enabled),
			tokenHint(ch.Telegram.Token),
		},
		{
			"Slack",
			mark(ch.Slack.Enabled),
			func() string {
				if ch.Slack.AppToken != "" && ch.Slack.BotToken != "" {
					return "socket, groups " + ch.Slack.GroupPolicy
				}
				return "(not configured)"
			}(),
		},
		{
			"CLI",
			mark(ch.CLI.Enabled),
			fmt.Sprintf("prompt %q", ch.CLI.Prompt),
		},
	}
}

var channelsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show channel status",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("%-12s %-8s %s\n", "Channel", "Enabled", "Configuration")
		fmt.Println(strings.Repeat("-", 60))
		for _, r := range channelRows(cfg) {
			fmt.Printf("%-12s %-8s %s\n", r.name, r.enabled, r.detail)
		}
		return nil
	},
}

func tokenHint(s string) string {
	if s == "" {
		return "(not configured)"
	}
	if len(s) > 10 {
		return s[:10] + "..."
	}
	return s
}
