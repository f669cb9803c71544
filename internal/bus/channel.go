package bus

import "strings"

// ChannelType names the chat platform a message came from or goes to.
type ChannelType string

const (
	ChannelDiscord  ChannelType = "discord"
	ChannelTelegram ChannelType = "telegram"
	ChannelSlack    ChannelType = "slack"
	ChannelCLI      ChannelType = "cli"
	ChannelSystem   ChannelType = "system"
)

func (c ChannelType) String() string { return string(c) }

// Title is the platform name as people write it: "Discord", "CLI".
func (c ChannelType) Title() string {
	switch c {
	case ChannelCLI:
		return "CLI"
	case "":
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}
