package channels

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/config/channel"
)

func TestMarkdownToTelegramHTML(t *testing.T) {
	tests := map[string]string{
		"**English**:\n> hola": "<b>English</b>:\n<blockquote>hola</blockquote>",
		"> one\n> two":         "<blockquote>one\ntwo</blockquote>",
		"a < b & c":            "a &lt; b &amp; c",
		"`x<1`":                "<code>x&lt;1</code>",
		"```\nx**2```":         "<pre><code>x**2</code></pre>",
		"[docs](http://x.io)":  `<a href="http://x.io">docs</a>`,
		"~~old~~":              "<s>old</s>",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, markdownToTelegramHTML(in))
		})
	}
}

func TestKeyboard(t *testing.T) {
	menus := []bus.Menu{
		{ID: "src", Options: []bus.MenuOption{
			{Label: "a2", Value: "a2"}, {Label: "b2", Value: "b2"}, {Label: "c2", Value: "c2"},
			{Label: "d2", Value: "d2"}, {Label: "e2", Value: "e2", Default: true},
		}},
		{ID: "off", Disabled: true, Options: []bus.MenuOption{{Label: "x", Value: "x"}}},
	}
	kb := keyboard(menus)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Len(t, kb.InlineKeyboard[0], telegramRowWidth)

	last := kb.InlineKeyboard[1][0]
	assert.Equal(t, "• e2", last.Text)
	require.NotNil(t, last.CallbackData)
	assert.Equal(t, "src|e2", *last.CallbackData)
}

func TestParseCallbackData(t *testing.T) {
	sel, ok := parseCallbackData(callbackData("chess:g1:dst:0", "g1f3"))
	require.True(t, ok)
	assert.Equal(t, "chess:g1:dst:0", sel.MenuID)
	assert.Equal(t, []string{"g1f3"}, sel.Values)

	for _, bad := range []string{"", "novalue|", "|nomenu", "plain"} {
		_, ok := parseCallbackData(bad)
		assert.False(t, ok, bad)
	}
}

// fakeTelegram answers Bot API calls the way the real API does for the
// handful of methods the channel uses.
type fakeTelegram struct {
	mu      sync.Mutex
	methods []string
	texts   []string
	srv     *httptest.Server
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	f := &fakeTelegram{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		_ = r.ParseMultipartForm(1 << 20)

		f.mu.Lock()
		f.methods = append(f.methods, method)
		f.texts = append(f.texts, r.FormValue("text")+r.FormValue("caption"))
		n := len(f.methods)
		f.mu.Unlock()

		switch method {
		case "getMe":
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Feyn","username":"feynbot"}}`)
		case "editMessageCaption":
			_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: there is no caption in the message to edit"}`)
		case "editMessageText", "editMessageReplyMarkup":
			_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
		default:
			_, _ = fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":0,"chat":{"id":5,"type":"private"}}}`, 100+n)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTelegram) calls() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...), append([]string(nil), f.texts...)
}

func newTestTelegram(t *testing.T, b bus.Bus) (*TelegramChannel, *fakeTelegram) {
	f := newFakeTelegram(t)
	tg := NewTelegramChannel(&channel.TelegramConfig{
		Token:          "tok",
		ReplyToMessage: true,
		APIEndpoint:    f.srv.URL + "/bot%s/%s",
	}, b)
	require.NoError(t, tg.connect())
	return tg, f
}

func TestTelegramSend(t *testing.T) {
	tg, f := newTestTelegram(t, nil)
	assert.Equal(t, "feynbot", tg.bot.Self.UserName)

	msg := bus.NewOutboundMessage(bus.ChannelTelegram, "5", "**Spanish**:\n> hola")
	msg.SetReplyTo("9")
	msg.SetMenus([]bus.Menu{{ID: "m", Options: []bus.MenuOption{{Label: "a", Value: "a"}}}})
	var sent string
	msg.SetOnSent(func(id string) { sent = id })
	require.NoError(t, tg.Send(context.Background(), msg))

	methods, texts := f.calls()
	assert.Equal(t, []string{"getMe", "sendMessage"}, methods)
	assert.Equal(t, "<b>Spanish</b>:\n<blockquote>hola</blockquote>", texts[1])
	assert.Equal(t, "102", sent)
}

func TestTelegramSendPhotoWithCaption(t *testing.T) {
	tg, f := newTestTelegram(t, nil)

	msg := bus.NewOutboundMessage(bus.ChannelTelegram, "5", "Your move")
	msg.SetFiles([]bus.File{{Name: "board.png", Data: []byte{1}}, {Name: "game.pgn", Data: []byte("1. e4")}})
	var sent string
	msg.SetOnSent(func(id string) { sent = id })
	require.NoError(t, tg.Send(context.Background(), msg))

	methods, texts := f.calls()
	assert.Equal(t, []string{"getMe", "sendPhoto", "sendDocument"}, methods)
	assert.Equal(t, "Your move", texts[1])
	assert.Equal(t, "102", sent)
}

func TestTelegramUpdateFallsBackToTextEdit(t *testing.T) {
	tg, f := newTestTelegram(t, nil)

	msg := bus.NewOutboundMessage(bus.ChannelTelegram, "5", "moved")
	msg.SetUpdate(true)
	msg.SetMetadata(map[string]any{bus.MetaMessageID: "42"})
	require.NoError(t, tg.Send(context.Background(), msg))

	methods, _ := f.calls()
	assert.Equal(t, []string{"getMe", "editMessageCaption", "editMessageText"}, methods)

	bad := bus.NewOutboundMessage(bus.ChannelTelegram, "5", "moved")
	bad.SetUpdate(true)
	assert.Error(t, tg.Send(context.Background(), bad))
	assert.Error(t, tg.Send(context.Background(), bus.NewOutboundMessage(bus.ChannelTelegram, "chat", "x")))
}

func TestTelegramHandleUpdate(t *testing.T) {
	mb := bus.NewMessageBus(4)
	tg := NewTelegramChannel(&channel.TelegramConfig{}, mb)
	tg.bot = &tgbotapi.BotAPI{Self: tgbotapi.User{UserName: "feynbot"}}

	from := &tgbotapi.User{ID: 7, UserName: "ann", FirstName: "Ann", LastName: "Lee"}
	tg.handleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 3,
		From:      from,
		Chat:      &tgbotapi.Chat{ID: 5, Type: "group"},
		Text:      "/roll@feynbot 2d6",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 13}},
	}})
	msg := receive(t, mb)
	assert.Equal(t, "@feynbot roll 2d6", msg.Content())
	assert.Equal(t, "7|ann", msg.SenderID())
	assert.Equal(t, "Ann Lee", msg.SenderName())
	assert.Equal(t, "3", msg.Meta(bus.MetaMessageID))
	assert.Equal(t, false, msg.Metadata()[bus.MetaDirect])

	tg.handleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 4,
		From:      from,
		Chat:      &tgbotapi.Chat{ID: 7, Type: "private"},
		Text:      "dice",
	}})
	msg = receive(t, mb)
	assert.Equal(t, "dice", msg.Content())
	assert.Equal(t, true, msg.Metadata()[bus.MetaDirect])
}
