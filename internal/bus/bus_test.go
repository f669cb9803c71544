package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBusRoundTrip(t *testing.T) {
	b := NewMessageBus(4)

	in := NewInboundMessage(ChannelDiscord, "u1", "c1", "roll 6")
	in.SetMetadata(map[string]any{"message_id": "m1"})
	b.PublishInbound(in)
	assert.Equal(t, 1, b.InboundSize())

	got := <-b.InboundChan()
	assert.Equal(t, "roll 6", got.Content())
	assert.Equal(t, "discord:c1", got.RoutingKey())
	assert.Equal(t, "u1", got.SenderName())

	reply := NewReply(got, "You rolled 1d6")
	reply.SetEphemeral(true)
	b.PublishOutbound(reply)
	assert.Equal(t, 1, b.OutboundSize())

	out := <-b.OutboundChan()
	assert.Equal(t, ChannelDiscord, out.Channel())
	assert.Equal(t, "c1", out.ChatID())
	assert.Equal(t, "m1", out.ReplyTo())
	assert.True(t, out.Ephemeral())
}

func TestTryPublishOutboundHonoursContext(t *testing.T) {
	b := NewMessageBus(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, b.TryPublishOutbound(ctx, NewOutboundMessage(ChannelCLI, "direct", "x")))
}

func TestSelectionMessage(t *testing.T) {
	m := NewSelectionMessage(ChannelTelegram, "u", "c", Selection{MenuID: "chess:1:src", Values: []string{"e2"}})
	require.NotNil(t, m.Selection())
	assert.Equal(t, "chess:1:src", m.Selection().MenuID)
	assert.Empty(t, m.Content())
}

func TestChannelTitle(t *testing.T) {
	assert.Equal(t, "Discord", ChannelDiscord.Title())
	assert.Equal(t, "Telegram", ChannelTelegram.Title())
	assert.Equal(t, "CLI", ChannelCLI.Title())
	assert.Empty(t, ChannelType("").Title())
}
