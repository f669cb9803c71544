package channels

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/config/channel"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a channel.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCLIChannelReadsCommands(t *testing.T) {
	mb := bus.NewMessageBus(8)
	out := &syncBuffer{}
	in := strings.NewReader("roll 1d6\n\n!select chess:g:src e2\n!select bad\nexit\nnever read\n")
	c := NewCLIChannel(&channel.CLIConfig{Prompt: "> "}, mb, in, out)

	err := c.Start(context.Background())
	require.ErrorIs(t, err, ErrQuit)

	msg := receive(t, mb)
	assert.Equal(t, "roll 1d6", msg.Content())
	assert.Equal(t, bus.ChannelCLI, msg.Channel())
	assert.Equal(t, true, msg.Metadata()[bus.MetaDirect])

	sel := receive(t, mb)
	require.NotNil(t, sel.Selection())
	assert.Equal(t, "chess:g:src", sel.Selection().MenuID)
	assert.Equal(t, []string{"e2"}, sel.Selection().Values)
	assertNoInbound(t, mb)

	assert.Contains(t, out.String(), "usage: !select <menu> <value>")
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestCLIChannelQuitsAtEndOfInput(t *testing.T) {
	c := NewCLIChannel(&channel.CLIConfig{}, bus.NewMessageBus(1), strings.NewReader(""), &syncBuffer{})
	assert.ErrorIs(t, c.Start(context.Background()), ErrQuit)
}

func TestCLIChannelSend(t *testing.T) {
	mb := bus.NewMessageBus(8)
	out := &syncBuffer{}
	c := NewCLIChannel(&channel.CLIConfig{}, mb, strings.NewReader(""), out)

	msg := bus.NewOutboundMessage(bus.ChannelCLI, cliChat, "Your move")
	msg.SetFiles([]bus.File{{Name: "board.png", Data: []byte{1, 2, 3}}})
	msg.SetMenus([]bus.Menu{{ID: "dst", Options: []bus.MenuOption{{Label: "Nf3", Value: "g1f3"}}}})
	var sent string
	msg.SetOnSent(func(id string) { sent = id })
	require.NoError(t, c.Send(context.Background(), msg))

	assert.Equal(t, "\nYour move\n[attachment: board.png, 3 bytes]\ndst: Nf3=g1f3\n", out.String())
	assert.Equal(t, "1", sent)

	// Selections refer to the last printed message.
	c.handleLine("!select dst g1f3")
	sel := receive(t, mb)
	assert.Equal(t, "1", sel.Meta(bus.MetaMessageID))

	require.NoError(t, c.Send(context.Background(), bus.NewOutboundMessage(bus.ChannelCLI, cliChat, "")))
	assert.Equal(t, "1", c.lastID)
}
