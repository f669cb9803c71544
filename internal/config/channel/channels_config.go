package channel

// ChannelsConfig groups the per-platform settings.
type ChannelsConfig struct {
	Discord  DiscordConfig  `json:"discord" yaml:"discord"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Slack    SlackConfig    `json:"slack" yaml:"slack"`
	CLI      CLIConfig      `json:"cli" yaml:"cli"`
}

func DefaultChannelsConfig() ChannelsConfig {
	return ChannelsConfig{
		Discord:  DefaultDiscordConfig(),
		Telegram: DefaultTelegramConfig(),
		Slack:    DefaultSlackConfig(),
		CLI:      CLIConfig{Prompt: "> "},
	}
}

// CLIConfig configures the stdin channel.
type CLIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Prompt  string `json:"prompt" yaml:"prompt"`
}
