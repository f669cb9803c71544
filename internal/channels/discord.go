package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/commands"
	"github.com/feynmanium/feynmanium/internal/config/channel"
)

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opPresenceUpdate = 3
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// DiscordChannel connects to the Discord Gateway WebSocket and answers
// through the REST API.
type DiscordChannel struct {
	Base
	cfg        *channel.DiscordConfig
	httpClient *http.Client
	commands   []commands.Descriptor

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu       sync.Mutex
	seq      *int
	appID    string
	botID    string
	status   string
	beatSent time.Time
	latency  time.Duration
}

// NewDiscordChannel creates a DiscordChannel that registers descriptors as
// slash commands once the gateway is ready.
func NewDiscordChannel(cfg *channel.DiscordConfig, b bus.Bus, descriptors []commands.Descriptor) *DiscordChannel {
	return &DiscordChannel{
		Base:       NewBase(bus.ChannelDiscord, b, cfg.AllowFrom),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		commands:   descriptors,
	}
}

func (d *DiscordChannel) Name() string { return bus.ChannelDiscord.String() }

// Latency returns the round trip of the last acknowledged heartbeat.
func (d *DiscordChannel) Latency() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latency
}

func (d *DiscordChannel) Start(ctx context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: token not configured")
	}
	for {
		err := d.connect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("discord: gateway disconnected, reconnecting", "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

func (d *DiscordChannel) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.cfg.GatewayURL, nil)
	if err != nil {
		return err
	}
	d.writeMu.Lock()
	d.conn = conn
	d.writeMu.Unlock()

	done := make(chan struct{})
	defer func() {
		close(done)
		d.writeMu.Lock()
		d.conn = nil
		d.writeMu.Unlock()
		conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	slog.Info("discord: gateway connected")
	return d.gatewayLoop(ctx, conn)
}

type gatewayPayload struct {
	Op int             `json:"op"`
	S  *int            `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
	D  json.RawMessage `json:"d"`
}

func (d *DiscordChannel) gatewayLoop(ctx context.Context, conn *websocket.Conn) error {
	heartbeatStop := make(chan struct{})
	defer close(heartbeatStop)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var payload gatewayPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			continue
		}
		if payload.S != nil {
			d.mu.Lock()
			d.seq = payload.S
			d.mu.Unlock()
		}

		switch payload.Op {
		case opHello:
			var hello struct {
				HeartbeatInterval int `json:"heartbeat_interval"`
			}
			_ = json.Unmarshal(payload.D, &hello)
			interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
			if interval <= 0 {
				interval = 41250 * time.Millisecond
			}
			go d.heartbeatLoop(ctx, interval, heartbeatStop)
			if err := d.identify(); err != nil {
				return err
			}
		case opHeartbeat:
			_ = d.heartbeat()
		case opHeartbeatAck:
			d.mu.Lock()
			if !d.beatSent.IsZero() {
				d.latency = time.Since(d.beatSent)
			}
			d.mu.Unlock()
		case opDispatch:
			d.dispatch(ctx, payload.T, payload.D)
		case opReconnect, opInvalidSession:
			return fmt.Errorf("discord: gateway requested reconnect (op=%d)", payload.Op)
		}
	}
}

func (d *DiscordChannel) dispatch(ctx context.Context, event string, data json.RawMessage) {
	switch event {
	case "READY":
		var ready struct {
			User        discordUser `json:"user"`
			Application struct {
				ID string `json:"id"`
			} `json:"application"`
		}
		if err := json.Unmarshal(data, &ready); err != nil {
			slog.Error("discord: bad READY payload", "err", err)
			return
		}
		d.mu.Lock()
		d.botID = ready.User.ID
		d.appID = ready.Application.ID
		status := d.status
		d.mu.Unlock()
		slog.Info("discord: ready", "user", ready.User.Username, "application", ready.Application.ID)
		if status != "" {
			_ = d.SetPresence(ctx, status)
		}
		go d.registerCommands(ctx)
	case "MESSAGE_CREATE":
		go d.handleMessageCreate(data)
	case "INTERACTION_CREATE":
		go d.handleInteraction(ctx, data)
	}
}

func (d *DiscordChannel) heartbeatLoop(ctx context.Context, interval time.Duration, stop <-chan struct{}) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if err := d.heartbeat(); err != nil {
				slog.Debug("discord: heartbeat failed", "err", err)
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (d *DiscordChannel) heartbeat() error {
	d.mu.Lock()
	seq := d.seq
	d.beatSent = time.Now()
	d.mu.Unlock()
	return d.writeJSON(map[string]any{"op": opHeartbeat, "d": seq})
}

func (d *DiscordChannel) identify() error {
	return d.writeJSON(map[string]any{
		"op": opIdentify,
		"d": map[string]any{
			"token":   d.cfg.Token,
			"intents": d.cfg.Intents,
			"properties": map[string]any{
				"os": "feynmanium", "browser": "feynmanium", "device": "feynmanium",
			},
		},
	})
}

// writeJSON sends one gateway frame. gorilla/websocket allows a single
// concurrent writer.
func (d *DiscordChannel) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if d.conn == nil {
		return fmt.Errorf("discord: not connected")
	}
	return d.conn.WriteMessage(websocket.TextMessage, data)
}

// SetPresence shows status as the bot's game activity. The status is
// replayed after a reconnect.
func (d *DiscordChannel) SetPresence(_ context.Context, status string) error {
	d.mu.Lock()
	d.status = status
	d.mu.Unlock()
	return d.writeJSON(map[string]any{
		"op": opPresenceUpdate,
		"d": map[string]any{
			"since":      nil,
			"activities": []map[string]any{{"name": status, "type": 0}},
			"status":     "online",
			"afk":        false,
		},
	})
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Bot        bool   `json:"bot"`
}

func (u discordUser) displayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

type discordMessage struct {
	ID        string      `json:"id"`
	ChannelID string      `json:"channel_id"`
	GuildID   string      `json:"guild_id"`
	Content   string      `json:"content"`
	Author    discordUser `json:"author"`
}

func (d *DiscordChannel) handleMessageCreate(data json.RawMessage) {
	var msg discordMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Author.Bot || msg.Author.ID == "" || msg.ChannelID == "" || msg.Content == "" {
		return
	}

	d.mu.Lock()
	botID := d.botID
	d.mu.Unlock()

	md := map[string]any{
		bus.MetaMessageID: msg.ID,
		bus.MetaDirect:    msg.GuildID == "",
		"guild_id":        msg.GuildID,
	}
	if botID != "" {
		md[bus.MetaMentions] = []string{"<@" + botID + ">", "<@!" + botID + ">"}
	}
	d.HandleMessage(msg.Author.ID, msg.Author.displayName(), msg.ChannelID, msg.Content, md)
}
