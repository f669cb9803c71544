package channels

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/config/channel"
)

const (
	telegramMaxMsgLen  = 4000
	telegramMaxCaption = 1024
	telegramRowWidth   = 4
)

// TelegramChannel implements the Telegram bot via long polling.
type TelegramChannel struct {
	Base
	cfg *channel.TelegramConfig
	bot *tgbotapi.BotAPI
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(cfg *channel.TelegramConfig, b bus.Bus) *TelegramChannel {
	return &TelegramChannel{
		Base: NewBase(bus.ChannelTelegram, b, cfg.AllowFrom),
		cfg:  cfg,
	}
}

func (t *TelegramChannel) Name() string { return bus.ChannelTelegram.String() }

func (t *TelegramChannel) connect() error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}
	endpoint := t.cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(t.cfg.Token, endpoint)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	t.bot = bot
	slog.Info("telegram: connected", "username", bot.Self.UserName)
	return nil
}

func (t *TelegramChannel) Start(ctx context.Context) error {
	if err := t.connect(); err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.cfg.PollTimeout
	updates := t.bot.GetUpdatesChan(u)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go t.handleUpdate(update)
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func senderOf(u *tgbotapi.User) (id, name string) {
	id = strconv.FormatInt(u.ID, 10)
	if u.UserName != "" {
		id += "|" + u.UserName
	}
	name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return id, name
}

func (t *TelegramChannel) handleUpdate(update tgbotapi.Update) {
	if cb := update.CallbackQuery; cb != nil {
		t.handleCallback(cb)
		return
	}
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}

	senderID, name := senderOf(msg.From)
	mention := "@" + t.bot.Self.UserName
	content := msg.Text
	if msg.IsCommand() {
		// "/roll@bot 6" reads as "@bot roll 6".
		content = strings.TrimSpace(mention + " " + msg.Command() + " " + msg.CommandArguments())
	}

	t.HandleMessage(senderID, name, strconv.FormatInt(msg.Chat.ID, 10), content, map[string]any{
		bus.MetaMessageID: strconv.Itoa(msg.MessageID),
		bus.MetaMentions:  []string{mention},
		bus.MetaDirect:    msg.Chat.IsPrivate(),
	})
}

func (t *TelegramChannel) handleCallback(cb *tgbotapi.CallbackQuery) {
	if _, err := t.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		slog.Debug("telegram: answer callback failed", "err", err)
	}
	if cb.From == nil || cb.Message == nil {
		return
	}
	sel, ok := parseCallbackData(cb.Data)
	if !ok {
		return
	}
	senderID, name := senderOf(cb.From)
	t.HandleSelection(senderID, name, strconv.FormatInt(cb.Message.Chat.ID, 10), sel, map[string]any{
		bus.MetaMessageID: strconv.Itoa(cb.Message.MessageID),
	})
}

// callbackData packs a menu choice into a button's callback data.
func callbackData(menuID, value string) string { return menuID + "|" + value }

func parseCallbackData(data string) (bus.Selection, bool) {
	i := strings.LastIndex(data, "|")
	if i <= 0 || i == len(data)-1 {
		return bus.Selection{}, false
	}
	return bus.Selection{MenuID: data[:i], Values: []string{data[i+1:]}}, true
}

// keyboard renders the enabled menus as inline keyboard rows.
func keyboard(menus []bus.Menu) *tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, m := range menus {
		if m.Disabled {
			continue
		}
		var row []tgbotapi.InlineKeyboardButton
		for _, o := range m.Options {
			label := o.Label
			if o.Default {
				label = "• " + label
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callbackData(m.ID, o.Value)))
			if len(row) == telegramRowWidth {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return &tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat_id: %s", s)
	}
	return id, nil
}

func ignoreNotModified(err error) error {
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (t *TelegramChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	if t.bot == nil {
		return fmt.Errorf("telegram: bot not running")
	}
	chatID, err := parseChatID(msg.ChatID())
	if err != nil {
		return err
	}

	if msg.Update() {
		id, err := strconv.Atoi(msg.Meta(bus.MetaMessageID))
		if err != nil {
			return fmt.Errorf("telegram: update without message id")
		}
		if msg.Files() == nil {
			return t.edit(chatID, id, msg)
		}
		// Attachments cannot be replaced in place: retire the old keyboard
		// and post the new state.
		strip := tgbotapi.NewEditMessageReplyMarkup(chatID, id, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
		if _, err := t.bot.Request(strip); ignoreNotModified(err) != nil {
			slog.Debug("telegram: strip keyboard failed", "err", err)
		}
	}

	replyTo := 0
	if t.cfg.ReplyToMessage && !msg.Update() {
		replyTo, _ = strconv.Atoi(msg.ReplyTo())
	}
	id, err := t.post(chatID, replyTo, msg)
	if err != nil {
		return err
	}
	msg.Sent(strconv.Itoa(id))
	return nil
}

// edit replaces the text or caption and keyboard of message id.
func (t *TelegramChannel) edit(chatID int64, id int, msg bus.OutboundMessage) error {
	html := markdownToTelegramHTML(msg.Content())
	kb := keyboard(msg.Menus())

	caption := tgbotapi.NewEditMessageCaption(chatID, id, html)
	caption.ParseMode = tgbotapi.ModeHTML
	caption.ReplyMarkup = kb
	_, err := t.bot.Request(caption)
	if ignoreNotModified(err) == nil {
		return nil
	}
	text := tgbotapi.NewEditMessageTextAndMarkup(chatID, id, html, *kb)
	text.ParseMode = tgbotapi.ModeHTML
	_, err = t.bot.Request(text)
	return ignoreNotModified(err)
}

// post sends msg as new messages and returns the id of the one carrying the
// keyboard.
func (t *TelegramChannel) post(chatID int64, replyTo int, msg bus.OutboundMessage) (int, error) {
	var images, docs []bus.File
	for _, f := range msg.Files() {
		if isImage(f.Name) && len(images) == 0 {
			images = append(images, f)
		} else {
			docs = append(docs, f)
		}
	}
	kb := keyboard(msg.Menus())
	content := msg.Content()
	anchor := 0

	if len(images) > 0 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: images[0].Name, Bytes: images[0].Data})
		photo.ReplyToMessageID = replyTo
		if len(msg.Menus()) > 0 {
			photo.ReplyMarkup = kb
		}
		if len(content) <= telegramMaxCaption {
			photo.Caption = markdownToTelegramHTML(content)
			photo.ParseMode = tgbotapi.ModeHTML
			content = ""
		}
		sent, err := t.bot.Send(photo)
		if err != nil {
			return 0, fmt.Errorf("telegram: send photo: %w", err)
		}
		anchor = sent.MessageID
		replyTo = 0
	}

	if content != "" {
		chunks := splitMessage(content, telegramMaxMsgLen)
		for i, chunk := range chunks {
			m := tgbotapi.NewMessage(chatID, markdownToTelegramHTML(chunk))
			m.ParseMode = tgbotapi.ModeHTML
			if i == 0 {
				m.ReplyToMessageID = replyTo
			}
			if i == len(chunks)-1 && anchor == 0 && len(msg.Menus()) > 0 {
				m.ReplyMarkup = kb
			}
			sent, err := t.bot.Send(m)
			if err != nil {
				// Fall back to plain text.
				m.Text = chunk
				m.ParseMode = ""
				if sent, err = t.bot.Send(m); err != nil {
					return 0, fmt.Errorf("telegram: send message: %w", err)
				}
			}
			if anchor == 0 && i == len(chunks)-1 {
				anchor = sent.MessageID
			}
		}
	}

	for _, f := range docs {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: f.Name, Bytes: f.Data})
		if _, err := t.bot.Send(doc); err != nil {
			slog.Error("telegram: send document failed", "file", f.Name, "err", err)
		}
	}
	return anchor, nil
}

var (
	reTGCodeBlock  = regexp.MustCompile("(?s)```[\\w]*\\n?([\\s\\S]*?)```")
	reTGInlineCode = regexp.MustCompile("`([^`]+)`")
	reTGHeader     = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	reTGBlockquote = regexp.MustCompile(`(?m)^>\s*(.*)$`)
	reTGLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	reTGBold1      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reTGBold2      = regexp.MustCompile(`__(.+?)__`)
	reTGItalic     = regexp.MustCompile(`(?:^|[^a-zA-Z0-9])_([^_]+)_(?:[^a-zA-Z0-9]|$)`)
	reTGStrike     = regexp.MustCompile(`~~(.+?)~~`)
	reTGBullet     = regexp.MustCompile(`(?m)^[-*]\s+`)
)

// markdownToTelegramHTML converts the Markdown subset replies use into
// Telegram's HTML parse mode.
func markdownToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	// 1. Extract code blocks.
	var codeBlocks []string
	text = reTGCodeBlock.ReplaceAllStringFunc(text, func(m string) string {
		groups := reTGCodeBlock.FindStringSubmatch(m)
		codeBlocks = append(codeBlocks, groups[1])
		return fmt.Sprintf("\x00CB%d\x00", len(codeBlocks)-1)
	})

	// 2. Extract inline code.
	var inlineCodes []string
	text = reTGInlineCode.ReplaceAllStringFunc(text, func(m string) string {
		groups := reTGInlineCode.FindStringSubmatch(m)
		inlineCodes = append(inlineCodes, groups[1])
		return fmt.Sprintf("\x00IC%d\x00", len(inlineCodes)-1)
	})

	// 3. Strip headers.
	text = reTGHeader.ReplaceAllString(text, "$1")
	// 4. Mark quoted lines before escaping hides the marker.
	text = reTGBlockquote.ReplaceAllString(text, "\x00BQ$1\x00EQ")

	// 5. HTML escape.
	text = htmlEscape(text)
	text = strings.ReplaceAll(text, "\x00BQ", "<blockquote>")
	text = strings.ReplaceAll(text, "\x00EQ", "</blockquote>")
	text = strings.ReplaceAll(text, "</blockquote>\n<blockquote>", "\n")

	// 6. Links.
	text = reTGLink.ReplaceAllString(text, `<a href="$2">$1</a>`)
	// 7. Bold.
	text = reTGBold1.ReplaceAllString(text, "<b>$1</b>")
	text = reTGBold2.ReplaceAllString(text, "<b>$1</b>")
	// 8. Italic.
	text = reTGItalic.ReplaceAllString(text, "<i>$1</i>")
	// 9. Strikethrough.
	text = reTGStrike.ReplaceAllString(text, "<s>$1</s>")
	// 10. Bullet lists.
	text = reTGBullet.ReplaceAllString(text, "• ")

	// 11. Restore inline code.
	for i, code := range inlineCodes {
		escaped := htmlEscape(code)
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00IC%d\x00", i),
			"<code>"+escaped+"</code>")
	}
	// 12. Restore code blocks.
	for i, code := range codeBlocks {
		escaped := htmlEscape(code)
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00CB%d\x00", i),
			"<pre><code>"+escaped+"</code></pre>")
	}
	return text
}

func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
