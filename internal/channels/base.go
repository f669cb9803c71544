// Package channels provides chat-platform channel implementations.
package channels

import (
	"log/slog"
	"strings"

	"github.com/feynmanium/feynmanium/internal/bus"
)

// Base holds common state and helper methods shared by all channels.
type Base struct {
	channelName bus.ChannelType
	b           bus.Bus
	allowFrom   []string // empty = allow all
}

// NewBase creates a Base with the given channel name, bus, and allowlist.
func NewBase(name bus.ChannelType, b bus.Bus, allowFrom []string) Base {
	return Base{channelName: name, b: b, allowFrom: allowFrom}
}

// IsAllowed checks whether senderID is on the allowlist.
// senderID may be "id|username" (Telegram) or a plain string.
func (b *Base) IsAllowed(senderID string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}
	for _, part := range strings.Split(senderID, "|") {
		if part == "" {
			continue
		}
		for _, allowed := range b.allowFrom {
			if allowed == part || allowed == senderID {
				return true
			}
		}
	}
	return false
}

// HandleMessage verifies the sender is allowed, then pushes an InboundMessage to the bus.
func (b *Base) HandleMessage(senderID, senderName, chatID, content string, metadata map[string]any) {
	if !b.IsAllowed(senderID) {
		slog.Warn("access denied", "channel", b.channelName, "sender", senderID)
		return
	}
	msg := bus.NewInboundMessage(b.channelName, senderID, chatID, content)
	msg.SetSenderName(senderName)
	msg.SetMetadata(metadata)
	b.b.PublishInbound(msg)
}

// HandleSelection is HandleMessage for a select-menu choice.
func (b *Base) HandleSelection(senderID, senderName, chatID string, sel bus.Selection, metadata map[string]any) {
	if !b.IsAllowed(senderID) {
		slog.Warn("access denied", "channel", b.channelName, "sender", senderID)
		return
	}
	msg := bus.NewSelectionMessage(b.channelName, senderID, chatID, sel)
	msg.SetSenderName(senderName)
	msg.SetMetadata(metadata)
	b.b.PublishInbound(msg)
}

// splitMessage splits content into chunks that fit within maxLen,
// preferring newline breaks, then space breaks, then hard cut.
// A code block cut in two is closed and reopened across the chunks.
func splitMessage(content string, maxLen int) []string {
	const minCut = len("```\n")
	if len(content) <= maxLen {
		return []string{content}
	}
	var chunks []string
	reopen := ""
	for len(content) > 0 {
		content = reopen + content
		reopen = ""
		if len(content) <= maxLen {
			chunks = append(chunks, content)
			break
		}
		limit := maxLen
		fence := maxLen > 16
		if fence {
			limit -= len("\n```")
		}
		cut := content[:limit]
		pos := strings.LastIndex(cut, "\n")
		if pos <= minCut {
			pos = strings.LastIndex(cut, " ")
		}
		if pos <= minCut {
			pos = limit
		}
		chunk := content[:pos]
		if fence && strings.Count(chunk, "```")%2 == 1 {
			chunk += "\n```"
			reopen = "```\n"
		}
		chunks = append(chunks, chunk)
		content = strings.TrimLeft(content[pos:], " \t\n")
	}
	return chunks
}

// menuText renders menus as plain text for platforms without select menus.
// An option whose value differs from its label reads "label=value".
func menuText(menus []bus.Menu) string {
	var lines []string
	for _, m := range menus {
		if m.Disabled {
			continue
		}
		labels := make([]string, 0, len(m.Options))
		for _, o := range m.Options {
			l := o.Label
			if o.Value != "" && o.Value != l {
				l += "=" + o.Value
			}
			if o.Default {
				l = "[" + l + "]"
			}
			labels = append(labels, l)
		}
		lines = append(lines, m.ID+": "+strings.Join(labels, " "))
	}
	return strings.Join(lines, "\n")
}
