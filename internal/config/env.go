package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the settings that may come from the environment.
// Empty values leave the file configuration untouched.
type envOverrides struct {
	DiscordToken  string `env:"FEYNMANIUM_DISCORD_TOKEN"`
	TelegramToken string `env:"FEYNMANIUM_TELEGRAM_TOKEN"`
	SlackBotToken string `env:"FEYNMANIUM_SLACK_BOT_TOKEN"`
	SlackAppToken string `env:"FEYNMANIUM_SLACK_APP_TOKEN"`
	Stockfish     string `env:"FEYNMANIUM_STOCKFISH"`
	Prefix        string `env:"FEYNMANIUM_PREFIX"`
	StorePath     string `env:"FEYNMANIUM_STORE"`
}

// ApplyEnv overlays FEYNMANIUM_* environment variables onto cfg. A token
// supplied this way also enables its channel.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.DiscordToken != "" {
		cfg.Channels.Discord.Token = o.DiscordToken
		cfg.Channels.Discord.Enabled = true
	}
	if o.TelegramToken != "" {
		cfg.Channels.Telegram.Token = o.TelegramToken
		cfg.Channels.Telegram.Enabled = true
	}
	if o.SlackBotToken != "" {
		cfg.Channels.Slack.BotToken = o.SlackBotToken
	}
	if o.SlackAppToken != "" {
		cfg.Channels.Slack.AppToken = o.SlackAppToken
	}
	if cfg.Channels.Slack.BotToken != "" && cfg.Channels.Slack.AppToken != "" && (o.SlackBotToken != "" || o.SlackAppToken != "") {
		cfg.Channels.Slack.Enabled = true
	}
	if o.Stockfish != "" {
		cfg.Chess.Engine = o.Stockfish
	}
	if o.Prefix != "" {
		cfg.Bot.Prefix = o.Prefix
	}
	if o.StorePath != "" {
		cfg.Store.Path = o.StorePath
	}
	return nil
}
