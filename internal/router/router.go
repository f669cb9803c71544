// Package router turns inbound chat messages into command executions and
// publishes the replies.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/commands"
	"github.com/feynmanium/feynmanium/internal/game"
)

// SelectionHandler answers select-menu interactions. Anchor records the
// message that now shows the game.
type SelectionHandler interface {
	HandleSelection(ctx context.Context, in bus.InboundMessage) (*game.Render, error)
	Anchor(gameID, messageID string)
}

// LatencySource reports a channel's last heartbeat round trip.
type LatencySource interface {
	Latency(ch bus.ChannelType) time.Duration
}

// Router is the command processing loop.
//
// It reads InboundMessages from the bus, resolves them to commands or menu
// selections, and publishes OutboundMessages. Each inbound message is handled
// in its own goroutine.
type Router struct {
	bus        bus.Bus
	registry   *commands.Registry
	selections SelectionHandler
	latency    LatencySource
	prefix     string
	errorMsgs  []string

	wg sync.WaitGroup
}

// Config holds the text the router needs from the bot configuration.
type Config struct {
	Prefix        string
	ErrorMessages []string
}

// New creates a Router. selections and latency may be nil.
func New(b bus.Bus, registry *commands.Registry, selections SelectionHandler, latency LatencySource, cfg Config) *Router {
	return &Router{
		bus:        b,
		registry:   registry,
		selections: selections,
		latency:    latency,
		prefix:     cfg.Prefix,
		errorMsgs:  cfg.ErrorMessages,
	}
}

// Run reads from the inbound bus and processes each message in a goroutine.
// Blocks until ctx is cancelled, then waits for in-flight messages.
func (r *Router) Run(ctx context.Context) error {
	slog.Info("router: started", "commands", len(r.registry.All()))
	defer r.wg.Wait()

	for {
		select {
		case msg := <-r.bus.InboundChan():
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.handleMessage(ctx, msg)
			}()
		case <-ctx.Done():
			slog.Info("router: stopping")
			return ctx.Err()
		}
	}
}

// ProcessDirect runs one command line outside the bus and returns the reply
// texts. Errors are rendered the same way as in chat.
func (r *Router) ProcessDirect(ctx context.Context, line string) []string {
	in := bus.NewInboundMessage(bus.ChannelCLI, "user", "direct", line)
	var out []string
	for _, msg := range r.Process(ctx, in) {
		out = append(out, msg.Content())
	}
	return out
}

func (r *Router) handleMessage(ctx context.Context, in bus.InboundMessage) {
	for _, out := range r.Process(ctx, in) {
		r.publish(ctx, out)
	}
}

func (r *Router) publish(ctx context.Context, out bus.OutboundMessage) {
	if p, ok := r.bus.(interface {
		TryPublishOutbound(context.Context, bus.OutboundMessage) bool
	}); ok {
		if !p.TryPublishOutbound(ctx, out) {
			slog.Warn("router: reply dropped on shutdown", "channel", out.Channel(), "chat", out.ChatID())
		}
		return
	}
	r.bus.PublishOutbound(out)
}

// Process resolves in and returns the replies to publish. A message that is
// not addressed to the bot yields nothing.
func (r *Router) Process(ctx context.Context, in bus.InboundMessage) []bus.OutboundMessage {
	if in.Selection() != nil {
		return r.processSelection(ctx, in)
	}

	cmd, args, ok, err := r.resolve(in)
	if !ok {
		return nil
	}
	if err != nil {
		return []bus.OutboundMessage{r.errorReply(in, "", err)}
	}

	d := cmd.Descriptor()
	slog.Info("router: command", "chat", in.RoutingKey(), "sender", in.SenderID(), "command", d.Name)
	req := &commands.Request{
		Name:    d.Name,
		Args:    args,
		Channel: in.Channel(),
		ChatID:  in.ChatID(),
		UserID:  in.SenderID(),
		User:    in.SenderName(),
		Inbound: &in,
	}
	if r.latency != nil {
		req.Latency = r.latency.Latency(in.Channel())
	}
	replies, err := cmd.Execute(ctx, req)
	if err != nil {
		return []bus.OutboundMessage{r.errorReply(in, d.Name, err)}
	}

	out := make([]bus.OutboundMessage, 0, len(replies))
	for i, rep := range replies {
		msg := bus.NewReply(in, rep.Content)
		msg.SetFiles(rep.Files)
		msg.SetMenus(rep.Menus)
		msg.SetEphemeral(rep.Ephemeral || d.Ephemeral)
		msg.SetOnSent(rep.OnSent)
		if i > 0 {
			md := maps.Clone(in.Metadata())
			if md == nil {
				md = map[string]any{}
			}
			md[bus.MetaFollowup] = true
			msg.SetMetadata(md)
		}
		out = append(out, msg)
	}
	return out
}

// resolve finds the command addressed by in. ok is false when the message is
// not a command at all.
func (r *Router) resolve(in bus.InboundMessage) (commands.Command, commands.Args, bool, error) {
	if name := in.Meta(bus.MetaCommand); name != "" {
		c, found := r.registry.Get(name)
		if !found {
			return nil, nil, true, &commands.NotFoundError{Command: name}
		}
		values, _ := in.Metadata()[bus.MetaOptions].(map[string]any)
		args, err := commands.Bind(c.Descriptor(), values)
		return c, args, true, err
	}

	content := in.Content()
	direct, _ := in.Metadata()[bus.MetaDirect].(bool)
	if (direct || in.Channel() == bus.ChannelCLI) && !strings.HasPrefix(strings.TrimSpace(content), r.prefix) {
		content = r.prefix + strings.TrimSpace(content)
	}
	mentions, _ := in.Metadata()[bus.MetaMentions].([]string)
	inv, ok := commands.Split(content, r.prefix, mentions...)
	if !ok {
		return nil, nil, false, nil
	}
	c, args, err := r.registry.Resolve(inv)
	return c, args, true, err
}

func (r *Router) processSelection(ctx context.Context, in bus.InboundMessage) []bus.OutboundMessage {
	if r.selections == nil {
		return nil
	}
	render, err := r.selections.HandleSelection(ctx, in)
	if err != nil {
		return []bus.OutboundMessage{r.errorReply(in, "chess", err)}
	}
	if render == nil {
		return nil
	}
	msg := bus.NewReply(in, render.Content)
	msg.SetUpdate(true)
	msg.SetMenus(render.Menus)
	msg.SetFiles(render.Files)
	if render.GameID != "" {
		gameID := render.GameID
		msg.SetOnSent(func(id string) { r.selections.Anchor(gameID, id) })
	}
	return []bus.OutboundMessage{msg}
}

// errorReply renders err as "<random error message>\n```Type: message```".
func (r *Router) errorReply(in bus.InboundMessage, command string, err error) bus.OutboundMessage {
	name := commands.ErrorName(err)
	slog.Warn("router: command failed", "channel", in.Channel(), "command", command, "type", name, "err", err)
	content := fmt.Sprintf("%s\n```%s: %s```", commands.Choice(r.errorMsgs), name, err)
	msg := bus.NewReply(in, strings.TrimPrefix(content, "\n"))
	msg.SetEphemeral(true)
	return msg
}
