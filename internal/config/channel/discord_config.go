package channel

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	Token      string   `json:"token" yaml:"token"`
	AllowFrom  []string `json:"allowFrom" yaml:"allowFrom"`
	GatewayURL string   `json:"gatewayUrl" yaml:"gatewayUrl"`
	APIBase    string   `json:"apiBase" yaml:"apiBase"`
	Intents    int      `json:"intents" yaml:"intents"`
	// GuildIDs limits slash command registration to these guilds. Empty
	// registers the commands globally.
	GuildIDs []string `json:"guildIds" yaml:"guildIds"`
}

func DefaultDiscordConfig() DiscordConfig {
	return DiscordConfig{
		GatewayURL: "wss://gateway.discord.gg/?v=10&encoding=json",
		APIBase:    "https://discord.com/api/v10",
		Intents:    37377, // GUILDS + GUILD_MESSAGES + DIRECT_MESSAGES + MESSAGE_CONTENT
		AllowFrom:  []string{},
		GuildIDs:   []string{},
	}
}
