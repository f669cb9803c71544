package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/feynmanium/feynmanium/internal/bus"
)

const (
	discordAPI       = "https://discord.com/api/v10"
	discordMaxMsgLen = 2000
	discordEphemeral = 1 << 6
	discordMaxRows   = 5
	discordRetries   = 3
)

func (d *DiscordChannel) api(format string, args ...any) string {
	base := strings.TrimRight(d.cfg.APIBase, "/")
	if base == "" {
		base = discordAPI
	}
	return base + fmt.Sprintf(format, args...)
}

func (d *DiscordChannel) applicationID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.appID
}

// request performs one REST call, retrying when rate limited. files turn the
// body into multipart form data with the payload under payload_json.
func (d *DiscordChannel) request(ctx context.Context, method, url string, payload any, files []bus.File) ([]byte, error) {
	var (
		data        []byte
		contentType string
	)
	switch {
	case len(files) > 0:
		var err error
		if data, contentType, err = multipartBody(payload, files); err != nil {
			return nil, err
		}
	case payload != nil:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return nil, err
		}
		contentType = "application/json"
	}

	for attempt := 0; attempt < discordRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bot "+d.cfg.Token)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := d.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err := sleepCtx(ctx, time.Second); err != nil {
				return nil, err
			}
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			var rate struct {
				RetryAfter float64 `json:"retry_after"`
			}
			_ = json.Unmarshal(body, &rate)
			wait := time.Duration(rate.RetryAfter * float64(time.Second))
			if wait <= 0 {
				wait = time.Second
			}
			slog.Debug("discord: rate limited", "url", url, "retry_after", wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("discord: %s %s: HTTP %d: %s", method, url, resp.StatusCode, string(body))
		}
		return body, nil
	}
	return nil, fmt.Errorf("discord: max retries exceeded")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func multipartBody(payload any, files []bus.File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	pj, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("payload_json", string(pj)); err != nil {
		return nil, "", err
	}
	for i, f := range files {
		fw, err := w.CreateFormFile(fmt.Sprintf("files[%d]", i), f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func messageID(body []byte) string {
	var m struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &m)
	return m.ID
}

// components renders menus as action rows holding one select menu each.
func components(menus []bus.Menu) []map[string]any {
	rows := make([]map[string]any, 0, len(menus))
	for i, m := range menus {
		if i == discordMaxRows {
			slog.Warn("discord: too many menus, dropping the rest", "menus", len(menus))
			break
		}
		options := make([]map[string]any, 0, len(m.Options))
		for _, o := range m.Options {
			opt := map[string]any{"label": o.Label, "value": o.Value, "default": o.Default}
			if o.Description != "" {
				opt["description"] = o.Description
			}
			options = append(options, opt)
		}
		rows = append(rows, map[string]any{
			"type": 1,
			"components": []map[string]any{{
				"type":        3,
				"custom_id":   m.ID,
				"placeholder": m.Placeholder,
				"options":     options,
				"disabled":    m.Disabled,
				"min_values":  1,
				"max_values":  1,
			}},
		})
	}
	return rows
}

// part is one message of a possibly split reply.
type part struct {
	payload map[string]any
	files   []bus.File
}

// parts splits msg into messages. The last one carries the menus and files.
func parts(msg bus.OutboundMessage) []part {
	chunks := splitMessage(msg.Content(), discordMaxMsgLen)
	out := make([]part, len(chunks))
	for i, chunk := range chunks {
		p := map[string]any{"content": chunk}
		if i == len(chunks)-1 {
			if len(msg.Menus()) > 0 || msg.Update() {
				p["components"] = components(msg.Menus())
			}
			if msg.Files() != nil {
				attachments := make([]map[string]any, len(msg.Files()))
				for j, f := range msg.Files() {
					attachments[j] = map[string]any{"id": j, "filename": f.Name}
				}
				p["attachments"] = attachments
				out[i].files = msg.Files()
			}
		}
		out[i].payload = p
	}
	return out
}

func (d *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if msg.Content() == "" && len(msg.Files()) == 0 && len(msg.Menus()) == 0 && !msg.Update() {
		return nil
	}
	if token := msg.Meta(metaInteractionToken); token != "" {
		return d.sendInteraction(ctx, token, msg)
	}
	if msg.Update() {
		id := msg.Meta(bus.MetaMessageID)
		if id == "" {
			return fmt.Errorf("discord: update without message id")
		}
		p := parts(msg)[0]
		body, err := d.request(ctx, http.MethodPatch, d.api("/channels/%s/messages/%s", msg.ChatID(), id), p.payload, p.files)
		if err != nil {
			return err
		}
		msg.Sent(messageID(body))
		return nil
	}

	url := d.api("/channels/%s/messages", msg.ChatID())
	ps := parts(msg)
	var last string
	for i, p := range ps {
		if i == 0 && msg.ReplyTo() != "" {
			p.payload["message_reference"] = map[string]any{"message_id": msg.ReplyTo(), "fail_if_not_exists": false}
			p.payload["allowed_mentions"] = map[string]any{"replied_user": false}
		}
		body, err := d.request(ctx, http.MethodPost, url, p.payload, p.files)
		if err != nil {
			return err
		}
		last = messageID(body)
	}
	msg.Sent(last)
	return nil
}

// sendInteraction answers through the interaction webhook. The first reply
// replaces the deferred response; later ones are followups.
func (d *DiscordChannel) sendInteraction(ctx context.Context, token string, msg bus.OutboundMessage) error {
	appID := d.applicationID()
	original := d.api("/webhooks/%s/%s/messages/@original", appID, token)
	followupURL := d.api("/webhooks/%s/%s", appID, token)

	followup, _ := msg.Metadata()[bus.MetaFollowup].(bool)
	deferredEphemeral, _ := msg.Metadata()[metaDeferredEphemeral].(bool)
	component := msg.Meta(metaInteractionKind) == "component"

	ps := parts(msg)
	editFirst := true
	switch {
	case msg.Update():
	case followup || component:
		editFirst = false
	case msg.Ephemeral() && !deferredEphemeral:
		// A public "thinking" message cannot turn ephemeral.
		if _, err := d.request(ctx, http.MethodDelete, original, nil, nil); err != nil {
			slog.Debug("discord: delete deferred response failed", "err", err)
		}
		editFirst = false
	}

	var last string
	for i, p := range ps {
		var (
			body []byte
			err  error
		)
		if i == 0 && editFirst {
			body, err = d.request(ctx, http.MethodPatch, original, p.payload, p.files)
		} else {
			if msg.Ephemeral() {
				p.payload["flags"] = discordEphemeral
			}
			body, err = d.request(ctx, http.MethodPost, followupURL, p.payload, p.files)
		}
		if err != nil {
			return err
		}
		last = messageID(body)
	}
	msg.Sent(last)
	return nil
}
