package bus

// File is an attachment sent with a reply.
type File struct {
	Name string
	Data []byte
}

// MenuOption is one entry of a select menu.
type MenuOption struct {
	Label       string
	Value       string
	Description string
	Default     bool
}

// Menu is a platform-neutral select menu. Channels render it with whatever
// component the platform offers.
type Menu struct {
	ID          string
	Placeholder string
	Options     []MenuOption
	Disabled    bool
}

// OutboundMessage is a reply to be sent back through a channel.
type OutboundMessage struct {
	channel   ChannelType
	chatID    string         // destination chat / channel / DM identifier
	content   string         // text to send
	replyTo   string         // original message ID to quote/reply to (optional)
	files     []File         // attachments (optional)
	menus     []Menu         // select menus (optional)
	ephemeral bool           // visible to the invoking user only, where supported
	update    bool           // edit the message the interaction came from
	metadata  map[string]any // channel-specific hints (interaction token, thread_ts, …)
	onSent    func(messageID string)
}

func NewOutboundMessage(channel ChannelType, chatID, content string) OutboundMessage {
	return OutboundMessage{
		channel: channel,
		chatID:  chatID,
		content: content,
	}
}

// NewReply addresses a reply to the conversation of in, carrying the inbound
// metadata over so that channels can answer interactions in place.
func NewReply(in InboundMessage, content string) OutboundMessage {
	out := NewOutboundMessage(in.channel, in.chatID, content)
	out.metadata = in.metadata
	if id := in.Meta(MetaMessageID); id != "" {
		out.replyTo = id
	}
	return out
}

func (m OutboundMessage) Channel() ChannelType     { return m.channel }
func (m OutboundMessage) ChatID() string           { return m.chatID }
func (m OutboundMessage) Content() string          { return m.content }
func (m OutboundMessage) ReplyTo() string          { return m.replyTo }
func (m OutboundMessage) Files() []File            { return m.files }
func (m OutboundMessage) Menus() []Menu            { return m.menus }
func (m OutboundMessage) Ephemeral() bool          { return m.ephemeral }
func (m OutboundMessage) Update() bool             { return m.update }
func (m OutboundMessage) Metadata() map[string]any { return m.metadata }

func (m *OutboundMessage) SetContent(content string)     { m.content = content }
func (m *OutboundMessage) SetReplyTo(id string)          { m.replyTo = id }
func (m *OutboundMessage) SetFiles(files []File)         { m.files = files }
func (m *OutboundMessage) SetMenus(menus []Menu)         { m.menus = menus }
func (m *OutboundMessage) SetEphemeral(ephemeral bool)   { m.ephemeral = ephemeral }
func (m *OutboundMessage) SetUpdate(update bool)         { m.update = update }
func (m *OutboundMessage) SetMetadata(md map[string]any) { m.metadata = md }

// SetOnSent registers fn to receive the platform id of the delivered message.
func (m *OutboundMessage) SetOnSent(fn func(messageID string)) { m.onSent = fn }

// Sent is called by channels once the message is delivered.
func (m OutboundMessage) Sent(messageID string) {
	if m.onSent != nil && messageID != "" {
		m.onSent(messageID)
	}
}

// Meta returns a string metadata value, or "" if absent.
func (m OutboundMessage) Meta(key string) string {
	s, _ := m.metadata[key].(string)
	return s
}
