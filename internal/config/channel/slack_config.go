package channel

// SlackDMConfig controls direct-message behaviour in Slack.
type SlackDMConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Policy    string   `json:"policy" yaml:"policy"` // "open" or "allowlist"
	AllowFrom []string `json:"allowFrom" yaml:"allowFrom"`
}

func DefaultSlackDMConfig() SlackDMConfig {
	return SlackDMConfig{Enabled: true, Policy: "open", AllowFrom: []string{}}
}

// SlackConfig configures the Slack channel. Only socket mode is supported.
type SlackConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled"`
	APIBase        string        `json:"apiBase" yaml:"apiBase"`
	BotToken       string        `json:"botToken" yaml:"botToken"`
	AppToken       string        `json:"appToken" yaml:"appToken"`
	ReplyInThread  bool          `json:"replyInThread" yaml:"replyInThread"`
	GroupPolicy    string        `json:"groupPolicy" yaml:"groupPolicy"` // "mention", "open" or "allowlist"
	GroupAllowFrom []string      `json:"groupAllowFrom" yaml:"groupAllowFrom"`
	DM             SlackDMConfig `json:"dm" yaml:"dm"`
}

func DefaultSlackConfig() SlackConfig {
	return SlackConfig{
		APIBase:        "https://slack.com/api/",
		ReplyInThread:  true,
		GroupPolicy:    "open",
		GroupAllowFrom: []string{},
		DM:             DefaultSlackDMConfig(),
	}
}
