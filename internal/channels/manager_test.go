package channels

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/config"
)

type fakeChannel struct {
	name    string
	start   func(ctx context.Context) error
	mu      sync.Mutex
	sent    []string
	status  string
	latency time.Duration
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Start(ctx context.Context) error {
	if f.start != nil {
		return f.start(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg.Content())
	return nil
}

func (f *fakeChannel) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// presenceChannel also shows a status and measures latency.
type presenceChannel struct{ fakeChannel }

func (p *presenceChannel) SetPresence(_ context.Context, status string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
	return nil
}

func (p *presenceChannel) Latency() time.Duration { return p.latency }

func TestNewManagerRegistersEnabledChannels(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Channels.CLI.Enabled = true
	cfg.Channels.Slack.Enabled = true
	m := NewManager(&cfg, bus.NewMessageBus(1), nil, &syncBuffer{})
	assert.Equal(t, []string{"cli", "slack"}, m.EnabledChannels())

	none := config.DefaultConfig()
	assert.Empty(t, NewManager(&none, bus.NewMessageBus(1), nil, nil).EnabledChannels())
}

func TestManagerDispatch(t *testing.T) {
	mb := bus.NewMessageBus(4)
	m := &Manager{channels: map[string]Channel{}, bus: mb}
	discord := &fakeChannel{name: "discord"}
	m.Register(discord)

	m.Dispatch(context.Background(), bus.NewOutboundMessage(bus.ChannelDiscord, "c", "hello"))
	m.Dispatch(context.Background(), bus.NewOutboundMessage(bus.ChannelTelegram, "c", "lost"))
	assert.Equal(t, []string{"hello"}, discord.messages())
}

func TestManagerStartAllRoutesOutbound(t *testing.T) {
	mb := bus.NewMessageBus(4)
	m := &Manager{channels: map[string]Channel{}, bus: mb}
	discord := &fakeChannel{name: "discord"}
	m.Register(discord)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.StartAll(ctx) }()

	mb.PublishOutbound(bus.NewOutboundMessage(bus.ChannelDiscord, "c", "hi"))
	require.Eventually(t, func() bool { return len(discord.messages()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("StartAll did not return")
	}
}

func TestManagerStartAllStopsWhenCLIQuits(t *testing.T) {
	m := &Manager{channels: map[string]Channel{}, bus: bus.NewMessageBus(1)}
	m.Register(&fakeChannel{name: "discord"})
	m.Register(&fakeChannel{name: "cli", start: func(context.Context) error { return ErrQuit }})
	m.Register(&fakeChannel{name: "slack", start: func(context.Context) error { return errors.New("no token") }})

	err := m.StartAll(context.Background())
	assert.ErrorIs(t, err, ErrQuit)
}

func TestManagerPresenceAndLatency(t *testing.T) {
	m := &Manager{channels: map[string]Channel{}, bus: bus.NewMessageBus(1)}
	discord := &presenceChannel{fakeChannel{name: "discord", latency: 42 * time.Millisecond}}
	m.Register(discord)
	m.Register(&fakeChannel{name: "cli"})

	m.SetPresence(context.Background(), "with integrals")
	assert.Equal(t, "with integrals", discord.status)

	assert.Equal(t, 42*time.Millisecond, m.Latency(bus.ChannelDiscord))
	assert.Zero(t, m.Latency(bus.ChannelCLI))
	assert.Zero(t, m.Latency(bus.ChannelSlack))
}
