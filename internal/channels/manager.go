package channels

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/commands"
	"github.com/feynmanium/feynmanium/internal/config"
)

// Manager owns all enabled channels and routes outbound messages.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
	bus      bus.Bus
}

// NewManager creates a Manager and initialises all enabled channels.
// descriptors are registered as Discord slash commands; console receives
// CLI output when the CLI channel is enabled.
func NewManager(cfg *config.Config, b bus.Bus, descriptors []commands.Descriptor, console io.Writer) *Manager {
	m := &Manager{channels: make(map[string]Channel), bus: b}

	if cfg.Channels.CLI.Enabled {
		m.Register(NewCLIChannel(&cfg.Channels.CLI, b, nil, console))
	}
	if cfg.Channels.Discord.Enabled {
		m.Register(NewDiscordChannel(&cfg.Channels.Discord, b, descriptors))
	}
	if cfg.Channels.Telegram.Enabled {
		m.Register(NewTelegramChannel(&cfg.Channels.Telegram, b))
	}
	if cfg.Channels.Slack.Enabled {
		m.Register(NewSlackChannel(&cfg.Channels.Slack, b))
	}
	return m
}

// Register adds ch, replacing any channel with the same name.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
	slog.Info("channel enabled", "name", ch.Name())
}

// EnabledChannels returns the names of all enabled channels, sorted.
func (m *Manager) EnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for n := range m.channels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// StartAll starts all channels concurrently and dispatches outbound messages.
// Blocks until ctx is cancelled and every channel has returned, or until
// the CLI channel quits, in which case it returns ErrQuit.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	chans := make(map[string]Channel, len(m.channels))
	for n, c := range m.channels {
		chans[n] = c
	}
	m.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m.dispatchOutbound(gctx)
		return nil
	})
	for name, ch := range chans {
		g.Go(func() error {
			slog.Info("starting channel", "name", name)
			err := ch.Start(gctx)
			switch {
			case errors.Is(err, ErrQuit):
				return err
			case err != nil && gctx.Err() == nil:
				slog.Error("channel exited with error", "name", name, "err", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// dispatchOutbound reads from the outbound bus and routes each message to
// the appropriate channel's Send method.
func (m *Manager) dispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg := <-m.bus.OutboundChan():
			m.Dispatch(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

// Dispatch sends one outbound message through its channel.
func (m *Manager) Dispatch(ctx context.Context, msg bus.OutboundMessage) {
	ch, ok := m.get(msg.Channel().String())
	if !ok {
		slog.Debug("unknown channel for outbound message", "channel", msg.Channel())
		return
	}
	if err := ch.Send(ctx, msg); err != nil {
		slog.Error("send error", "channel", msg.Channel(), "err", err)
	}
}

// SetPresence shows status on every channel that supports it.
func (m *Manager) SetPresence(ctx context.Context, status string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, ch := range m.channels {
		p, ok := ch.(PresenceChannel)
		if !ok {
			continue
		}
		if err := p.SetPresence(ctx, status); err != nil {
			slog.Debug("presence update failed", "channel", name, "err", err)
		}
	}
}

// Latency returns the heartbeat round trip of the named channel, or zero
// when it does not measure one.
func (m *Manager) Latency(name bus.ChannelType) time.Duration {
	ch, ok := m.get(name.String())
	if !ok {
		return 0
	}
	if l, ok := ch.(LatencyChannel); ok {
		return l.Latency()
	}
	return 0
}
