package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/commands"
	"github.com/feynmanium/feynmanium/internal/config/channel"
)

type apiCall struct {
	Method string
	Path   string
	Body   map[string]any
	Files  []string
}

// fakeDiscord records REST calls and answers each with a new message id.
type fakeDiscord struct {
	mu      sync.Mutex
	calls   []apiCall
	limited int
	srv     *httptest.Server
}

func newFakeDiscord(t *testing.T) *fakeDiscord {
	f := &fakeDiscord{}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeDiscord) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limited > 0 {
		f.limited--
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"retry_after": 0.01}`)
		return
	}
	call := apiCall{Method: r.Method, Path: r.URL.Path}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			_ = json.Unmarshal([]byte(r.FormValue("payload_json")), &call.Body)
			for name := range r.MultipartForm.File {
				call.Files = append(call.Files, name)
			}
		}
	case "application/json":
		_ = json.NewDecoder(r.Body).Decode(&call.Body)
	}
	f.calls = append(f.calls, call)
	_, _ = fmt.Fprintf(w, `{"id": "m%d"}`, len(f.calls))
}

func (f *fakeDiscord) recorded() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

func newTestDiscord(t *testing.T, b bus.Bus, allow []string) (*DiscordChannel, *fakeDiscord) {
	f := newFakeDiscord(t)
	d := NewDiscordChannel(&channel.DiscordConfig{Token: "tok", APIBase: f.srv.URL, AllowFrom: allow}, b, []commands.Descriptor{
		{Name: "roll", Ephemeral: false},
		{Name: "help", Ephemeral: true},
	})
	d.appID = "app"
	d.botID = "bot"
	return d, f
}

func TestDiscordSendSplitsLongReplies(t *testing.T) {
	d, f := newTestDiscord(t, nil, nil)

	msg := bus.NewOutboundMessage(bus.ChannelDiscord, "c1", strings.Repeat("word ", 500))
	msg.SetReplyTo("orig")
	var sent string
	msg.SetOnSent(func(id string) { sent = id })
	require.NoError(t, d.Send(context.Background(), msg))

	calls := f.recorded()
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.Equal(t, http.MethodPost, c.Method)
		assert.Equal(t, "/channels/c1/messages", c.Path)
		assert.LessOrEqual(t, len(c.Body["content"].(string)), discordMaxMsgLen)
	}
	ref, ok := calls[0].Body["message_reference"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "orig", ref["message_id"])
	assert.NotContains(t, calls[1].Body, "message_reference")
	assert.Equal(t, "m2", sent)
}

func TestDiscordSendAttachesMenusAndFiles(t *testing.T) {
	d, f := newTestDiscord(t, nil, nil)

	msg := bus.NewOutboundMessage(bus.ChannelDiscord, "c1", "Your move")
	msg.SetFiles([]bus.File{{Name: "board.png", Data: []byte{1, 2, 3}}})
	msg.SetMenus([]bus.Menu{{ID: "chess:g:src", Placeholder: "Piece", Options: []bus.MenuOption{
		{Label: "e2", Value: "e2", Description: "Pawn", Default: true},
	}}})
	require.NoError(t, d.Send(context.Background(), msg))

	calls := f.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"files[0]"}, calls[0].Files)

	rows := calls[0].Body["components"].([]any)
	require.Len(t, rows, 1)
	sel := rows[0].(map[string]any)["components"].([]any)[0].(map[string]any)
	assert.Equal(t, "chess:g:src", sel["custom_id"])
	assert.Equal(t, float64(3), sel["type"])
	opt := sel["options"].([]any)[0].(map[string]any)
	assert.Equal(t, "Pawn", opt["description"])
	assert.Equal(t, true, opt["default"])

	attachments := calls[0].Body["attachments"].([]any)
	assert.Equal(t, "board.png", attachments[0].(map[string]any)["filename"])
}

func TestDiscordSendUpdateEditsMessage(t *testing.T) {
	d, f := newTestDiscord(t, nil, nil)

	msg := bus.NewOutboundMessage(bus.ChannelDiscord, "c1", "board")
	msg.SetUpdate(true)
	msg.SetMetadata(map[string]any{bus.MetaMessageID: "m9"})
	require.NoError(t, d.Send(context.Background(), msg))

	calls := f.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPatch, calls[0].Method)
	assert.Equal(t, "/channels/c1/messages/m9", calls[0].Path)
	assert.Contains(t, calls[0].Body, "components")

	bad := bus.NewOutboundMessage(bus.ChannelDiscord, "c1", "board")
	bad.SetUpdate(true)
	assert.Error(t, d.Send(context.Background(), bad))
}

func TestDiscordSendInteraction(t *testing.T) {
	interaction := func(kind string, deferredEphemeral bool) map[string]any {
		return map[string]any{
			metaInteractionToken:  "itok",
			metaInteractionKind:   kind,
			metaDeferredEphemeral: deferredEphemeral,
		}
	}
	original := "/webhooks/app/itok/messages/@original"
	followup := "/webhooks/app/itok"

	tests := []struct {
		name      string
		meta      map[string]any
		ephemeral bool
		want      []string
	}{
		{"first reply edits the deferred response", interaction("command", false), false,
			[]string{"PATCH " + original}},
		{"ephemeral reply after a public defer", interaction("command", false), true,
			[]string{"DELETE " + original, "POST " + followup}},
		{"ephemeral reply after an ephemeral defer", interaction("command", true), true,
			[]string{"PATCH " + original}},
		{"component errors are followups", interaction("component", false), true,
			[]string{"POST " + followup}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, f := newTestDiscord(t, nil, nil)
			msg := bus.NewOutboundMessage(bus.ChannelDiscord, "c1", "hello")
			msg.SetMetadata(tt.meta)
			msg.SetEphemeral(tt.ephemeral)
			require.NoError(t, d.Send(context.Background(), msg))

			var got []string
			for _, c := range f.recorded() {
				got = append(got, c.Method+" "+c.Path)
				if c.Method == http.MethodPost {
					assert.Equal(t, float64(discordEphemeral), c.Body["flags"])
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("later replies are followups", func(t *testing.T) {
		d, f := newTestDiscord(t, nil, nil)
		meta := interaction("command", false)
		meta[bus.MetaFollowup] = true
		msg := bus.NewOutboundMessage(bus.ChannelDiscord, "c1", "second")
		msg.SetMetadata(meta)
		require.NoError(t, d.Send(context.Background(), msg))

		calls := f.recorded()
		require.Len(t, calls, 1)
		assert.Equal(t, followup, calls[0].Path)
		assert.NotContains(t, calls[0].Body, "flags")
	})

	t.Run("updates edit the component message", func(t *testing.T) {
		d, f := newTestDiscord(t, nil, nil)
		msg := bus.NewOutboundMessage(bus.ChannelDiscord, "c1", "board")
		msg.SetMetadata(interaction("component", false))
		msg.SetUpdate(true)
		require.NoError(t, d.Send(context.Background(), msg))

		calls := f.recorded()
		require.Len(t, calls, 1)
		assert.Equal(t, http.MethodPatch, calls[0].Method)
		assert.Equal(t, original, calls[0].Path)
	})
}

func TestDiscordRetriesWhenRateLimited(t *testing.T) {
	d, f := newTestDiscord(t, nil, nil)
	f.limited = 1

	msg := bus.NewOutboundMessage(bus.ChannelDiscord, "c1", "hi")
	var sent string
	msg.SetOnSent(func(id string) { sent = id })
	require.NoError(t, d.Send(context.Background(), msg))
	assert.Len(t, f.recorded(), 1)
	assert.Equal(t, "m1", sent)

	f.limited = discordRetries
	assert.Error(t, d.Send(context.Background(), msg))
}

func TestDiscordHandleInteraction(t *testing.T) {
	mb := bus.NewMessageBus(4)
	d, f := newTestDiscord(t, mb, []string{"u1"})
	ctx := context.Background()

	d.handleInteraction(ctx, json.RawMessage(`{
		"id": "i1", "type": 2, "token": "itok", "channel_id": "c1", "guild_id": "g1",
		"member": {"user": {"id": "u1", "username": "ann", "global_name": "Ann"}},
		"data": {"name": "help", "options": [{"name": "command", "type": 3, "value": "roll"}]}
	}`))
	msg := receive(t, mb)
	assert.Equal(t, "u1", msg.SenderID())
	assert.Equal(t, "Ann", msg.SenderName())
	assert.Equal(t, "help", msg.Meta(bus.MetaCommand))
	assert.Equal(t, map[string]any{"command": "roll"}, msg.Metadata()[bus.MetaOptions])
	assert.Equal(t, true, msg.Metadata()[metaDeferredEphemeral])

	calls := f.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "/interactions/i1/itok/callback", calls[0].Path)
	assert.Equal(t, float64(responseDeferredMessage), calls[0].Body["type"])
	assert.Equal(t, float64(discordEphemeral), calls[0].Body["data"].(map[string]any)["flags"])

	d.handleInteraction(ctx, json.RawMessage(`{
		"id": "i2", "type": 3, "token": "t2", "channel_id": "c1",
		"user": {"id": "u1", "username": "ann"},
		"message": {"id": "m7"},
		"data": {"custom_id": "chess:g:src", "values": ["e2"]}
	}`))
	sel := receive(t, mb)
	require.NotNil(t, sel.Selection())
	assert.Equal(t, []string{"e2"}, sel.Selection().Values)
	assert.Equal(t, "m7", sel.Meta(bus.MetaMessageID))
	assert.Equal(t, "component", sel.Meta(metaInteractionKind))
	assert.Equal(t, float64(responseDeferredUpdate), f.recorded()[1].Body["type"])

	d.handleInteraction(ctx, json.RawMessage(`{
		"id": "i3", "type": 2, "token": "t3", "channel_id": "c1",
		"user": {"id": "u2", "username": "eve"},
		"data": {"name": "roll"}
	}`))
	assertNoInbound(t, mb)
	denied := f.recorded()[2]
	assert.Equal(t, float64(responseMessage), denied.Body["type"])
}

func TestDiscordHandleMessageCreate(t *testing.T) {
	mb := bus.NewMessageBus(4)
	d, _ := newTestDiscord(t, mb, nil)

	d.handleMessageCreate(json.RawMessage(`{"id": "1", "channel_id": "c", "content": "hi", "author": {"id": "b", "bot": true}}`))
	assertNoInbound(t, mb)

	d.handleMessageCreate(json.RawMessage(`{"id": "2", "channel_id": "c", "content": "<@bot> roll", "author": {"id": "u", "username": "ann"}}`))
	msg := receive(t, mb)
	assert.Equal(t, "2", msg.Meta(bus.MetaMessageID))
	assert.Equal(t, true, msg.Metadata()[bus.MetaDirect])
	assert.Equal(t, []string{"<@bot>", "<@!bot>"}, msg.Metadata()[bus.MetaMentions])

	d.handleMessageCreate(json.RawMessage(`{"id": "3", "channel_id": "c", "guild_id": "g", "content": "$roll", "author": {"id": "u"}}`))
	msg = receive(t, mb)
	assert.Equal(t, false, msg.Metadata()[bus.MetaDirect])
}

func TestSlashCommands(t *testing.T) {
	got := slashCommands([]commands.Descriptor{
		{Name: "Roll", Description: "Roll dice", Options: []commands.Option{
			{Name: "sides", Kind: commands.KindInteger, HasRange: true, Min: 1, Max: 1000},
			{Name: "count", Kind: commands.KindInteger, Required: true},
		}},
		{Name: "secret", Hidden: true},
		{Name: "flip", Description: strings.Repeat("d", 150)},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "roll", got[0]["name"])

	opts := got[0]["options"].([]map[string]any)
	assert.Equal(t, "count", opts[0]["name"])
	assert.Equal(t, "sides", opts[1]["name"])
	assert.Equal(t, 4, opts[1]["type"])
	assert.Equal(t, int64(1000), opts[1]["max_value"])

	assert.Len(t, []rune(got[1]["description"].(string)), 100)
}
