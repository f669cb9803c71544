package channels

import (
	"context"
	"time"

	"github.com/feynmanium/feynmanium/internal/bus"
)

// Channel is the interface every chat-platform adapter must implement.
type Channel interface {
	// Name returns the unique channel identifier (e.g. "telegram").
	Name() string
	// Start begins listening for incoming messages; it blocks until ctx is cancelled.
	Start(ctx context.Context) error
	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg bus.OutboundMessage) error
}

// PresenceChannel is a channel that can show a status text for the bot.
type PresenceChannel interface {
	Channel
	SetPresence(ctx context.Context, status string) error
}

// LatencyChannel is a channel that measures its heartbeat round trip.
type LatencyChannel interface {
	Channel
	Latency() time.Duration
}
