package channels

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	slackgo "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/config/channel"
)

const (
	slackMaxMsgLen  = 3000
	slackMaxOptions = 100
)

// SlackChannel implements Slack via Socket Mode.
type SlackChannel struct {
	Base
	cfg        *channel.SlackConfig
	httpClient *http.Client
	web        *slackgo.Client
	sm         *socketmode.Client
	botUserID  string
}

func NewSlackChannel(cfg *channel.SlackConfig, b bus.Bus) *SlackChannel {
	return &SlackChannel{
		Base:       NewBase(bus.ChannelSlack, b, nil), // Slack uses its own allow logic
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SlackChannel) Name() string { return bus.ChannelSlack.String() }

func (s *SlackChannel) apiBase() string {
	base := s.cfg.APIBase
	if base == "" {
		base = slackgo.APIURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

func (s *SlackChannel) connect(ctx context.Context) error {
	if s.cfg.BotToken == "" || s.cfg.AppToken == "" {
		return fmt.Errorf("slack: bot/app token not configured")
	}
	s.web = slackgo.New(s.cfg.BotToken,
		slackgo.OptionAppLevelToken(s.cfg.AppToken),
		slackgo.OptionAPIURL(s.apiBase()),
		slackgo.OptionHTTPClient(s.httpClient))

	resp, err := s.web.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	s.botUserID = resp.UserID
	slog.Info("slack: connected", "bot_user_id", s.botUserID)
	return nil
}

func (s *SlackChannel) Start(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return err
	}
	s.sm = socketmode.New(s.web)

	go func() {
		if err := s.sm.RunContext(ctx); err != nil && ctx.Err() == nil {
			slog.Error("slack: socket mode stopped", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-s.sm.Events:
			if !ok {
				return nil
			}
			s.handleEvent(evt)
		}
	}
}

func (s *SlackChannel) handleEvent(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeEventsAPI:
		s.ack(evt)
		cb, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if cb.InnerEvent.Type != "message" && cb.InnerEvent.Type != "app_mention" {
			return
		}
		s.handleInnerEvent(cb.InnerEvent)
	case socketmode.EventTypeInteractive:
		s.ack(evt)
		cb, ok := evt.Data.(slackgo.InteractionCallback)
		if !ok {
			return
		}
		s.handleInteraction(cb)
	case socketmode.EventTypeConnectionError:
		slog.Warn("slack: connection error", "data", evt.Data)
	}
}

func (s *SlackChannel) ack(evt socketmode.Event) {
	if evt.Request != nil {
		s.sm.Ack(*evt.Request)
	}
}

func (s *SlackChannel) mention() string { return "<@" + s.botUserID + ">" }

func (s *SlackChannel) handleInnerEvent(ev slackevents.EventsAPIInnerEvent) {
	data, ok := ev.Data.(map[string]interface{})
	if !ok {
		return
	}
	userID, _ := data["user"].(string)
	chat, _ := data["channel"].(string)
	text, _ := data["text"].(string)
	subtype, _ := data["subtype"].(string)
	channelType, _ := data["channel_type"].(string)
	ts, _ := data["ts"].(string)
	threadTS, _ := data["thread_ts"].(string)

	if subtype != "" || userID == "" || chat == "" || userID == s.botUserID {
		return
	}
	// Mentions arrive twice, once as app_mention.
	if ev.Type == "message" && s.botUserID != "" && strings.Contains(text, s.mention()) {
		return
	}
	if !s.isAllowedSlack(userID, chat, channelType) {
		return
	}
	if channelType != "im" && !s.shouldRespond(ev.Type, text, chat) {
		return
	}
	if s.cfg.ReplyInThread && threadTS == "" {
		threadTS = ts
	}

	meta := map[string]any{
		bus.MetaMessageID: ts,
		bus.MetaDirect:    channelType == "im",
		"slack": map[string]any{
			"thread_ts":    threadTS,
			"channel_type": channelType,
			"user_id":      userID,
		},
	}
	if s.botUserID != "" {
		meta[bus.MetaMentions] = []string{s.mention()}
	}
	s.HandleMessage(userID, userID, chat, slackUnescape(text), meta)
}

// handleInteraction turns static_select choices into selections.
func (s *SlackChannel) handleInteraction(cb slackgo.InteractionCallback) {
	if cb.Type != slackgo.InteractionTypeBlockActions {
		return
	}
	userID, chat := cb.User.ID, cb.Channel.ID
	if chat == "" {
		chat = cb.Container.ChannelID
	}
	channelType := "channel"
	if strings.HasPrefix(chat, "D") {
		channelType = "im"
	}
	if !s.isAllowedSlack(userID, chat, channelType) {
		return
	}
	for _, a := range cb.ActionCallback.BlockActions {
		if a == nil || a.SelectedOption.Value == "" {
			continue
		}
		sel := bus.Selection{MenuID: a.ActionID, Values: []string{a.SelectedOption.Value}}
		s.HandleSelection(userID, cb.User.Name, chat, sel, map[string]any{
			bus.MetaMessageID: cb.Container.MessageTs,
			"slack": map[string]any{
				"thread_ts":    cb.Container.ThreadTs,
				"channel_type": channelType,
				"user_id":      userID,
			},
		})
	}
}

func (s *SlackChannel) isAllowedSlack(user, chat, channelType string) bool {
	if channelType == "im" {
		if !s.cfg.DM.Enabled {
			return false
		}
		if s.cfg.DM.Policy == "allowlist" {
			for _, a := range s.cfg.DM.AllowFrom {
				if a == user {
					return true
				}
			}
			return false
		}
		return true
	}
	if s.cfg.GroupPolicy == "allowlist" {
		for _, a := range s.cfg.GroupAllowFrom {
			if a == chat {
				return true
			}
		}
		return false
	}
	return true
}

func (s *SlackChannel) shouldRespond(evType, text, chat string) bool {
	switch s.cfg.GroupPolicy {
	case "", "open":
		return true
	case "mention":
		if evType == "app_mention" {
			return true
		}
		return s.botUserID != "" && strings.Contains(text, s.mention())
	case "allowlist":
		for _, a := range s.cfg.GroupAllowFrom {
			if a == chat {
				return true
			}
		}
		return false
	}
	return false
}

var slackEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")

// slackUnescape undoes Slack's escaping of message text.
func slackUnescape(text string) string { return slackEntities.Replace(text) }

var (
	reSlackBold = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reSlackLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// markdownToMrkdwn converts the Markdown subset replies use into Slack mrkdwn.
func markdownToMrkdwn(text string) string {
	text = reSlackBold.ReplaceAllString(text, "*$1*")
	return reSlackLink.ReplaceAllString(text, "<$2|$1>")
}

// blocks renders the reply text followed by one static_select per menu.
func blocks(text string, menus []bus.Menu) []slackgo.Block {
	var out []slackgo.Block
	if text != "" {
		out = append(out, slackgo.NewSectionBlock(
			slackgo.NewTextBlockObject(slackgo.MarkdownType, text, false, false), nil, nil))
	}
	var elements []slackgo.BlockElement
	for _, m := range menus {
		if m.Disabled || len(m.Options) == 0 {
			continue
		}
		var (
			options []*slackgo.OptionBlockObject
			initial *slackgo.OptionBlockObject
		)
		for i, o := range m.Options {
			if i == slackMaxOptions {
				break
			}
			var desc *slackgo.TextBlockObject
			if o.Description != "" {
				desc = slackgo.NewTextBlockObject(slackgo.PlainTextType, clip(o.Description, "", 75), false, false)
			}
			opt := slackgo.NewOptionBlockObject(o.Value,
				slackgo.NewTextBlockObject(slackgo.PlainTextType, clip(o.Label, o.Value, 75), false, false), desc)
			options = append(options, opt)
			if o.Default {
				initial = opt
			}
		}
		sel := slackgo.NewOptionsSelectBlockElement(slackgo.OptTypeStatic,
			slackgo.NewTextBlockObject(slackgo.PlainTextType, clip(m.Placeholder, m.ID, 150), false, false),
			m.ID, options...)
		sel.InitialOption = initial
		elements = append(elements, sel)
	}
	// An actions block holds at most 25 elements.
	for len(elements) > 0 {
		n := min(len(elements), 25)
		out = append(out, slackgo.NewActionBlock("", elements[:n]...))
		elements = elements[n:]
	}
	return out
}

func (s *SlackChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if s.web == nil {
		return fmt.Errorf("slack: client not running")
	}
	meta, _ := msg.Metadata()["slack"].(map[string]any)
	threadTS, _ := meta["thread_ts"].(string)
	channelType, _ := meta["channel_type"].(string)
	userID, _ := meta["user_id"].(string)
	if channelType == "im" {
		threadTS = ""
	}

	text := markdownToMrkdwn(msg.Content())
	menus := msg.Menus()

	if msg.Ephemeral() && userID != "" && len(msg.Files()) == 0 {
		var lastTS string
		for _, chunk := range splitMessage(text, slackMaxMsgLen) {
			opts := []slackgo.MsgOption{slackgo.MsgOptionText(chunk, false)}
			if threadTS != "" {
				opts = append(opts, slackgo.MsgOptionTS(threadTS))
			}
			ts, err := s.web.PostEphemeralContext(ctx, msg.ChatID(), userID, opts...)
			if err != nil {
				return fmt.Errorf("slack: post ephemeral: %w", err)
			}
			lastTS = ts
		}
		msg.Sent(lastTS)
		return nil
	}

	if msg.Update() && len(msg.Files()) == 0 && msg.Meta(bus.MetaMessageID) != "" {
		text = clip(text, "", slackMaxMsgLen)
		_, ts, _, err := s.web.UpdateMessageContext(ctx, msg.ChatID(), msg.Meta(bus.MetaMessageID),
			slackgo.MsgOptionText(text, false),
			slackgo.MsgOptionBlocks(blocks(text, menus)...))
		if err != nil {
			return fmt.Errorf("slack: update message: %w", err)
		}
		msg.Sent(ts)
		return nil
	}

	for _, f := range msg.Files() {
		if err := s.upload(ctx, msg.ChatID(), threadTS, f); err != nil {
			return err
		}
	}
	if text == "" && len(menus) == 0 {
		return nil
	}

	chunks := splitMessage(text, slackMaxMsgLen)
	var lastTS string
	for i, chunk := range chunks {
		opts := []slackgo.MsgOption{slackgo.MsgOptionText(chunk, false)}
		if i == len(chunks)-1 && len(menus) > 0 {
			opts = append(opts, slackgo.MsgOptionBlocks(blocks(chunk, menus)...))
		}
		if threadTS != "" {
			opts = append(opts, slackgo.MsgOptionTS(threadTS))
		}
		_, ts, err := s.web.PostMessageContext(ctx, msg.ChatID(), opts...)
		if err != nil {
			return fmt.Errorf("slack: post message: %w", err)
		}
		lastTS = ts
	}
	msg.Sent(lastTS)
	return nil
}

// upload shares f in chat through the external upload flow.
func (s *SlackChannel) upload(ctx context.Context, chat, threadTS string, f bus.File) error {
	_, err := s.web.UploadFileContext(ctx, slackgo.UploadFileParameters{
		Reader:          bytes.NewReader(f.Data),
		FileSize:        len(f.Data),
		Filename:        f.Name,
		Title:           f.Name,
		Channel:         chat,
		ThreadTimestamp: threadTS,
	})
	if err != nil {
		return fmt.Errorf("slack: upload %s: %w", f.Name, err)
	}
	return nil
}
