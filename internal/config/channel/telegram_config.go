package channel

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	Token          string   `json:"token" yaml:"token"`
	AllowFrom      []string `json:"allowFrom" yaml:"allowFrom"`
	ReplyToMessage bool     `json:"replyToMessage" yaml:"replyToMessage"`
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int `json:"pollTimeout" yaml:"pollTimeout"`
	// APIEndpoint is the Bot API URL pattern, with the token and method as
	// the two %s verbs.
	APIEndpoint string `json:"apiEndpoint" yaml:"apiEndpoint"`
}

func DefaultTelegramConfig() TelegramConfig {
	return TelegramConfig{
		AllowFrom:      []string{},
		ReplyToMessage: true,
		PollTimeout:    30,
		APIEndpoint:    "https://api.telegram.org/bot%s/%s",
	}
}
