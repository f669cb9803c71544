package channels

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	slackgo "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/config/channel"
)

func TestMarkdownToMrkdwn(t *testing.T) {
	assert.Equal(t, "*Title*\n<http://x.io|link>", markdownToMrkdwn("**Title**\n[link](http://x.io)"))
	assert.Equal(t, "<@U1> $roll", slackUnescape("&lt;@U1&gt; $roll"))
}

func TestSlackBlocks(t *testing.T) {
	got := blocks("pick", []bus.Menu{
		{ID: "src", Placeholder: "Piece", Options: []bus.MenuOption{
			{Label: "e2", Value: "e2", Description: "Pawn", Default: true},
			{Label: "g1", Value: "g1"},
		}},
		{ID: "off", Disabled: true, Options: []bus.MenuOption{{Label: "x", Value: "x"}}},
	})
	require.Len(t, got, 2)

	data, err := json.Marshal(got[1])
	require.NoError(t, err)
	var action struct {
		Type     string `json:"type"`
		Elements []struct {
			Type          string `json:"type"`
			ActionID      string `json:"action_id"`
			InitialOption struct {
				Value string `json:"value"`
			} `json:"initial_option"`
			Options []json.RawMessage `json:"options"`
		} `json:"elements"`
	}
	require.NoError(t, json.Unmarshal(data, &action))
	assert.Equal(t, "actions", action.Type)
	require.Len(t, action.Elements, 1)
	assert.Equal(t, "static_select", action.Elements[0].Type)
	assert.Equal(t, "src", action.Elements[0].ActionID)
	assert.Equal(t, "e2", action.Elements[0].InitialOption.Value)
	assert.Len(t, action.Elements[0].Options, 2)

	assert.Empty(t, blocks("", nil))
}

func TestSlackHandleInnerEvent(t *testing.T) {
	event := func(typ string, data map[string]any) slackevents.EventsAPIInnerEvent {
		return slackevents.EventsAPIInnerEvent{Type: typ, Data: data}
	}
	newSlack := func(policy string) (*SlackChannel, *bus.MessageBus) {
		mb := bus.NewMessageBus(4)
		cfg := channel.DefaultSlackConfig()
		cfg.GroupPolicy = policy
		cfg.GroupAllowFrom = []string{"C2"}
		s := NewSlackChannel(&cfg, mb)
		s.botUserID = "UBOT"
		return s, mb
	}

	t.Run("open channel message", func(t *testing.T) {
		s, mb := newSlack("open")
		s.handleInnerEvent(event("message", map[string]any{
			"user": "U1", "channel": "C1", "text": "$roll 1d6", "channel_type": "channel", "ts": "1.5",
		}))
		msg := receive(t, mb)
		assert.Equal(t, "$roll 1d6", msg.Content())
		assert.Equal(t, "1.5", msg.Meta(bus.MetaMessageID))
		assert.Equal(t, []string{"<@UBOT>"}, msg.Metadata()[bus.MetaMentions])
		meta := msg.Metadata()["slack"].(map[string]any)
		assert.Equal(t, "1.5", meta["thread_ts"])
		assert.Equal(t, "U1", meta["user_id"])
	})

	t.Run("mentions are only handled once", func(t *testing.T) {
		s, mb := newSlack("mention")
		data := map[string]any{"user": "U1", "channel": "C1", "text": "<@UBOT> ping", "channel_type": "channel", "ts": "2"}
		s.handleInnerEvent(event("message", data))
		assertNoInbound(t, mb)
		s.handleInnerEvent(event("app_mention", data))
		assert.Equal(t, "<@UBOT> ping", receive(t, mb).Content())

		s.handleInnerEvent(event("message", map[string]any{"user": "U1", "channel": "C1", "text": "$ping", "channel_type": "channel"}))
		assertNoInbound(t, mb)
	})

	t.Run("direct messages", func(t *testing.T) {
		s, mb := newSlack("allowlist")
		s.handleInnerEvent(event("message", map[string]any{"user": "U1", "channel": "D1", "text": "ping", "channel_type": "im"}))
		msg := receive(t, mb)
		assert.Equal(t, true, msg.Metadata()[bus.MetaDirect])

		s.cfg.DM.Enabled = false
		s.handleInnerEvent(event("message", map[string]any{"user": "U1", "channel": "D1", "text": "ping", "channel_type": "im"}))
		assertNoInbound(t, mb)
	})

	t.Run("allowlisted channels", func(t *testing.T) {
		s, mb := newSlack("allowlist")
		s.handleInnerEvent(event("message", map[string]any{"user": "U1", "channel": "C1", "text": "$ping", "channel_type": "channel"}))
		assertNoInbound(t, mb)
		s.handleInnerEvent(event("message", map[string]any{"user": "U1", "channel": "C2", "text": "$ping", "channel_type": "channel"}))
		assert.Equal(t, "C2", receive(t, mb).ChatID())
	})

	t.Run("ignores bots and edits", func(t *testing.T) {
		s, mb := newSlack("open")
		s.handleInnerEvent(event("message", map[string]any{"user": "UBOT", "channel": "C1", "text": "$ping"}))
		s.handleInnerEvent(event("message", map[string]any{"user": "U1", "channel": "C1", "text": "$ping", "subtype": "message_changed"}))
		assertNoInbound(t, mb)
	})
}

func TestSlackHandleInteraction(t *testing.T) {
	mb := bus.NewMessageBus(4)
	cfg := channel.DefaultSlackConfig()
	s := NewSlackChannel(&cfg, mb)

	var cb slackgo.InteractionCallback
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "block_actions",
		"user": {"id": "U1", "name": "ann"},
		"channel": {"id": "C1"},
		"container": {"message_ts": "3.1", "channel_id": "C1"},
		"actions": [{"block_id": "menus0", "action_id": "chess:g:src", "type": "static_select", "selected_option": {"value": "e2"}}]
	}`), &cb))
	s.handleInteraction(cb)

	msg := receive(t, mb)
	require.NotNil(t, msg.Selection())
	assert.Equal(t, "chess:g:src", msg.Selection().MenuID)
	assert.Equal(t, []string{"e2"}, msg.Selection().Values)
	assert.Equal(t, "3.1", msg.Meta(bus.MetaMessageID))
	assert.Equal(t, "C1", msg.ChatID())
}

// fakeSlack serves the Web API methods the channel calls.
type fakeSlack struct {
	mu    sync.Mutex
	calls []string
	forms []map[string]string
	srv   *httptest.Server
}

func newFakeSlack(t *testing.T) *fakeSlack {
	f := &fakeSlack{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.TrimPrefix(r.URL.Path, "/api/")
		form := map[string]string{}
		if method == "/upload" {
			_ = r.ParseMultipartForm(1 << 20)
			if file, header, err := r.FormFile("file"); err == nil {
				data, _ := io.ReadAll(file)
				form[header.Filename] = string(data)
			}
		} else {
			_ = r.ParseForm()
			for k := range r.PostForm {
				form[k] = r.PostForm.Get(k)
			}
		}
		f.mu.Lock()
		f.calls = append(f.calls, method)
		f.forms = append(f.forms, form)
		f.mu.Unlock()

		switch method {
		case "auth.test":
			_, _ = io.WriteString(w, `{"ok":true,"user_id":"UBOT"}`)
		case "chat.postMessage", "chat.update":
			_, _ = io.WriteString(w, `{"ok":true,"channel":"C1","ts":"9.9"}`)
		case "chat.postEphemeral":
			_, _ = io.WriteString(w, `{"ok":true,"message_ts":"8.8"}`)
		case "files.getUploadURLExternal":
			_, _ = io.WriteString(w, `{"ok":true,"upload_url":"`+f.srv.URL+`/upload","file_id":"F1"}`)
		case "/upload":
			_, _ = io.WriteString(w, "OK")
		case "files.completeUploadExternal":
			_, _ = io.WriteString(w, `{"ok":true,"files":[{"id":"F1","title":"board.png"}]}`)
		default:
			_, _ = io.WriteString(w, `{"ok":false,"error":"unknown_method"}`)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSlack) recorded() ([]string, []map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...), append([]map[string]string(nil), f.forms...)
}

func newTestSlack(t *testing.T) (*SlackChannel, *fakeSlack) {
	f := newFakeSlack(t)
	cfg := channel.DefaultSlackConfig()
	cfg.BotToken, cfg.AppToken = "xoxb", "xapp"
	cfg.APIBase = f.srv.URL + "/api/"
	s := NewSlackChannel(&cfg, nil)
	require.NoError(t, s.connect(context.Background()))
	assert.Equal(t, "UBOT", s.botUserID)
	return s, f
}

func TestSlackSend(t *testing.T) {
	ctx := context.Background()
	threaded := map[string]any{"slack": map[string]any{"thread_ts": "1.0", "channel_type": "channel", "user_id": "U1"}}

	t.Run("reply in thread", func(t *testing.T) {
		s, f := newTestSlack(t)
		msg := bus.NewOutboundMessage(bus.ChannelSlack, "C1", "**hi**")
		msg.SetMetadata(threaded)
		var sent string
		msg.SetOnSent(func(id string) { sent = id })
		require.NoError(t, s.Send(ctx, msg))

		calls, forms := f.recorded()
		assert.Equal(t, []string{"auth.test", "chat.postMessage"}, calls)
		assert.Equal(t, "*hi*", forms[1]["text"])
		assert.Equal(t, "1.0", forms[1]["thread_ts"])
		assert.Equal(t, "9.9", sent)
	})

	t.Run("ephemeral", func(t *testing.T) {
		s, f := newTestSlack(t)
		msg := bus.NewOutboundMessage(bus.ChannelSlack, "C1", "only you")
		msg.SetMetadata(threaded)
		msg.SetEphemeral(true)
		require.NoError(t, s.Send(ctx, msg))

		calls, forms := f.recorded()
		assert.Equal(t, []string{"auth.test", "chat.postEphemeral"}, calls)
		assert.Equal(t, "U1", forms[1]["user"])
	})

	t.Run("update", func(t *testing.T) {
		s, f := newTestSlack(t)
		msg := bus.NewOutboundMessage(bus.ChannelSlack, "C1", "moved")
		msg.SetMetadata(map[string]any{bus.MetaMessageID: "5.5"})
		msg.SetUpdate(true)
		msg.SetMenus([]bus.Menu{{ID: "src", Options: []bus.MenuOption{{Label: "e2", Value: "e2"}}}})
		require.NoError(t, s.Send(ctx, msg))

		calls, forms := f.recorded()
		assert.Equal(t, []string{"auth.test", "chat.update"}, calls)
		assert.Equal(t, "5.5", forms[1]["ts"])
		assert.Contains(t, forms[1]["blocks"], "static_select")
	})

	t.Run("files", func(t *testing.T) {
		s, f := newTestSlack(t)
		msg := bus.NewOutboundMessage(bus.ChannelSlack, "C1", "board")
		msg.SetFiles([]bus.File{{Name: "board.png", Data: []byte{1, 2}}})
		require.NoError(t, s.Send(ctx, msg))

		calls, forms := f.recorded()
		assert.Equal(t, []string{"auth.test", "files.getUploadURLExternal", "/upload", "files.completeUploadExternal", "chat.postMessage"}, calls)
		assert.Equal(t, "2", forms[1]["length"])
		assert.Equal(t, "board.png", forms[1]["filename"])
		assert.Equal(t, "\x01\x02", forms[2]["board.png"])
		assert.Equal(t, "C1", forms[3]["channel_id"])
		assert.Contains(t, forms[3]["files"], `"F1"`)
	})
}
