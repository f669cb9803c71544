// Package bus defines the message types that flow between channels and the
// command router.
package bus

import "time"

// Selection is a choice made in a select menu attached to an earlier reply.
type Selection struct {
	MenuID string
	Values []string
}

// InboundMessage is a message or UI interaction received from a chat channel.
type InboundMessage struct {
	channel    ChannelType
	senderID   string         // user identifier within the channel
	senderName string         // display name, used for game records
	chatID     string         // chat / channel / DM identifier
	content    string         // message text, already stripped of the command prefix
	timestamp  time.Time      // when the message was received
	selection  *Selection     // set for menu interactions
	metadata   map[string]any // channel-specific extra data (message_id, interaction token, …)
}

// NewInboundMessage creates an InboundMessage with Timestamp set to now.
func NewInboundMessage(channel ChannelType, senderID, chatID, content string) InboundMessage {
	return InboundMessage{
		channel:   channel,
		senderID:  senderID,
		chatID:    chatID,
		content:   content,
		timestamp: time.Now(),
	}
}

// NewSelectionMessage creates an InboundMessage for a select-menu choice.
func NewSelectionMessage(channel ChannelType, senderID, chatID string, sel Selection) InboundMessage {
	m := NewInboundMessage(channel, senderID, chatID, "")
	m.selection = &sel
	return m
}

func (m InboundMessage) Channel() ChannelType     { return m.channel }
func (m InboundMessage) SenderID() string         { return m.senderID }
func (m InboundMessage) ChatID() string           { return m.chatID }
func (m InboundMessage) Content() string          { return m.content }
func (m InboundMessage) Timestamp() time.Time     { return m.timestamp }
func (m InboundMessage) Selection() *Selection    { return m.selection }
func (m InboundMessage) Metadata() map[string]any { return m.metadata }

// SenderName returns the display name, falling back to the sender ID.
func (m InboundMessage) SenderName() string {
	if m.senderName == "" {
		return m.senderID
	}
	return m.senderName
}

func (m *InboundMessage) SetSenderName(name string)     { m.senderName = name }
func (m *InboundMessage) SetMetadata(md map[string]any) { m.metadata = md }

// Meta returns a string metadata value, or "" if absent.
func (m InboundMessage) Meta(key string) string {
	s, _ := m.metadata[key].(string)
	return s
}

// RoutingKey returns the conversation key "channel:chat_id".
func (m InboundMessage) RoutingKey() string {
	return RoutingKey(m.channel, m.chatID)
}

// Preview returns a short snippet of the message content for logging.
func (m InboundMessage) Preview() string {
	preview := m.content
	if len(preview) > 80 {
		preview = preview[:80] + "..."
	}
	return preview
}
