package router

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/commands"
	"github.com/feynmanium/feynmanium/internal/game"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixedLatency time.Duration

func (l fixedLatency) Latency(bus.ChannelType) time.Duration { return time.Duration(l) }

type fakeSelections struct {
	render  *game.Render
	err     error
	seen    []string
	anchors []string
}

func (f *fakeSelections) HandleSelection(_ context.Context, in bus.InboundMessage) (*game.Render, error) {
	f.seen = append(f.seen, in.Selection().MenuID)
	return f.render, f.err
}

func (f *fakeSelections) Anchor(gameID, messageID string) {
	f.anchors = append(f.anchors, gameID+"="+messageID)
}

func newRouter(sel SelectionHandler) (*Router, *bus.MessageBus) {
	b := bus.NewMessageBus(16)
	reg := commands.NewRegistryBuilder().
		WithCommand(commands.NewPingCommand(), commands.NewEightBallCommand([]string{"Yes."})).
		WithCommand(commands.MathCommands()...).
		Build()
	return New(b, reg, sel, fixedLatency(3*time.Millisecond), Config{Prefix: "$", ErrorMessages: []string{"Oops."}}), b
}

func discordMessage(content string, md map[string]any) bus.InboundMessage {
	in := bus.NewInboundMessage(bus.ChannelDiscord, "u1", "c1", content)
	in.SetMetadata(md)
	return in
}

func TestProcessTextCommand(t *testing.T) {
	r, _ := newRouter(nil)

	out := r.Process(context.Background(), discordMessage("$ping", map[string]any{"message_id": "m9"}))
	require.Len(t, out, 1)
	assert.Equal(t, "Pong! The ping took 3 ms.", out[0].Content())
	assert.Equal(t, bus.ChannelDiscord, out[0].Channel())
	assert.Equal(t, "c1", out[0].ChatID())
	assert.Equal(t, "m9", out[0].ReplyTo())
	assert.False(t, out[0].Ephemeral())

	out = r.Process(context.Background(), discordMessage("<@42> 8ball", map[string]any{bus.MetaMentions: []string{"<@42>", "<@!42>"}}))
	require.Len(t, out, 1)
	assert.Equal(t, "> Is it?\nYes.", out[0].Content())
	assert.True(t, out[0].Ephemeral())

	assert.Empty(t, r.Process(context.Background(), discordMessage("just chatting", nil)))

	out = r.Process(context.Background(), discordMessage("ping", map[string]any{bus.MetaDirect: true}))
	require.Len(t, out, 1)
	assert.Equal(t, "Pong! The ping took 3 ms.", out[0].Content())
}

func TestProcessSlashCommand(t *testing.T) {
	r, _ := newRouter(nil)
	in := discordMessage("", map[string]any{
		bus.MetaCommand: "diff",
		bus.MetaOptions: map[string]any{"expr": "x**2"},
	})
	out := r.Process(context.Background(), in)
	require.Len(t, out, 1)
	assert.Equal(t, "```\nDerivative(x**2, x) = 2*x\n```", out[0].Content())
}

func TestProcessErrors(t *testing.T) {
	r, _ := newRouter(nil)
	tests := map[string]string{
		"$nope":        "Oops.\n```CommandNotFound: Command \"nope\" is not found```",
		"$expand":      "Oops.\n```MissingRequiredArgument: expr is a required argument that is missing.```",
		"$solve x > 1": "Oops.\n```BadArgument: solve expects an equation, use ineq for x > 1```",
	}
	for line, want := range tests {
		out := r.Process(context.Background(), discordMessage(line, nil))
		require.Len(t, out, 1, line)
		assert.Equal(t, want, out[0].Content(), line)
		assert.True(t, out[0].Ephemeral(), line)
	}
}

func TestProcessMarksFollowups(t *testing.T) {
	r, _ := newRouter(nil)
	md := map[string]any{"interaction_token": "tok"}
	out := r.Process(context.Background(), discordMessage("$roots x**2 - 1", md))
	require.Len(t, out, 3)
	assert.Nil(t, out[0].Metadata()[bus.MetaFollowup])
	assert.Equal(t, true, out[1].Metadata()[bus.MetaFollowup])
	assert.Equal(t, "tok", out[2].Meta("interaction_token"))
	assert.NotContains(t, md, bus.MetaFollowup)
}

func TestProcessSelection(t *testing.T) {
	sel := &fakeSelections{render: &game.Render{GameID: "g", Content: "`fen`", Menus: []bus.Menu{{ID: "chess:g:src"}}}}
	r, _ := newRouter(sel)

	in := bus.NewSelectionMessage(bus.ChannelDiscord, "u1", "c1", bus.Selection{MenuID: "chess:g:src", Values: []string{"e2"}})
	out := r.Process(context.Background(), in)
	require.Len(t, out, 1)
	assert.True(t, out[0].Update())
	assert.Equal(t, "`fen`", out[0].Content())
	assert.Nil(t, out[0].Files())
	assert.Equal(t, []string{"chess:g:src"}, sel.seen)
	out[0].Sent("m2")
	assert.Equal(t, []string{"g=m2"}, sel.anchors)

	sel.render = nil
	assert.Empty(t, r.Process(context.Background(), in))

	sel.err = errors.New("engine crashed")
	out = r.Process(context.Background(), in)
	require.Len(t, out, 1)
	assert.True(t, strings.HasSuffix(out[0].Content(), "```errorString: engine crashed```"))
}

func TestProcessDirect(t *testing.T) {
	r, _ := newRouter(nil)
	assert.Equal(t, []string{"```\n(x+1)**2 = x**2 + 2*x + 1\n```"}, r.ProcessDirect(context.Background(), "expand (x+1)**2"))
	assert.Equal(t, []string{"```\nx*x = x**2\n```"}, r.ProcessDirect(context.Background(), "$simplify x*x"))
}

func TestRunPublishesReplies(t *testing.T) {
	r, b := newRouter(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	b.PublishInbound(discordMessage("$ping", nil))
	select {
	case out := <-b.OutboundChan():
		assert.Equal(t, "Pong! The ping took 3 ms.", out.Content())
	case <-time.After(5 * time.Second):
		t.Fatal("no reply published")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
