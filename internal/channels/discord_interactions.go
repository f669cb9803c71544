package channels

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/commands"
)

// Interaction and callback types.
const (
	interactionCommand   = 2
	interactionComponent = 3

	responseMessage         = 4
	responseDeferredMessage = 5
	responseDeferredUpdate  = 6
)

// Metadata keys private to the Discord channel.
const (
	metaInteractionToken  = "interaction_token"
	metaInteractionKind   = "interaction_kind"
	metaDeferredEphemeral = "deferred_ephemeral"
)

type discordOption struct {
	Name  string `json:"name"`
	Type  int    `json:"type"`
	Value any    `json:"value"`
}

type discordInteraction struct {
	ID        string `json:"id"`
	Type      int    `json:"type"`
	Token     string `json:"token"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Member    *struct {
		User discordUser `json:"user"`
	} `json:"member"`
	User *discordUser `json:"user"`
	Data struct {
		Name     string          `json:"name"`
		Options  []discordOption `json:"options"`
		CustomID string          `json:"custom_id"`
		Values   []string        `json:"values"`
	} `json:"data"`
	Message *struct {
		ID string `json:"id"`
	} `json:"message"`
}

func (in discordInteraction) user() discordUser {
	if in.Member != nil {
		return in.Member.User
	}
	if in.User != nil {
		return *in.User
	}
	return discordUser{}
}

func (d *DiscordChannel) descriptor(name string) (commands.Descriptor, bool) {
	for _, c := range d.commands {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return commands.Descriptor{}, false
}

// handleInteraction acknowledges an interaction within Discord's three
// second window and hands it to the router.
func (d *DiscordChannel) handleInteraction(ctx context.Context, data json.RawMessage) {
	var in discordInteraction
	if err := json.Unmarshal(data, &in); err != nil {
		slog.Error("discord: bad interaction payload", "err", err)
		return
	}
	user := in.user()
	if !d.IsAllowed(user.ID) {
		_ = d.respond(ctx, in, map[string]any{
			"type": responseMessage,
			"data": map[string]any{"content": "You are not allowed to use this bot.", "flags": discordEphemeral},
		})
		return
	}

	switch in.Type {
	case interactionCommand:
		desc, _ := d.descriptor(in.Data.Name)
		resp := map[string]any{"type": responseDeferredMessage}
		if desc.Ephemeral {
			resp["data"] = map[string]any{"flags": discordEphemeral}
		}
		if err := d.respond(ctx, in, resp); err != nil {
			slog.Error("discord: defer failed", "command", in.Data.Name, "err", err)
			return
		}
		options := make(map[string]any, len(in.Data.Options))
		for _, o := range in.Data.Options {
			options[o.Name] = o.Value
		}
		d.HandleMessage(user.ID, user.displayName(), in.ChannelID, "", map[string]any{
			metaInteractionToken:  in.Token,
			metaInteractionKind:   "command",
			metaDeferredEphemeral: desc.Ephemeral,
			bus.MetaCommand:       in.Data.Name,
			bus.MetaOptions:       options,
			"guild_id":            in.GuildID,
		})
	case interactionComponent:
		if err := d.respond(ctx, in, map[string]any{"type": responseDeferredUpdate}); err != nil {
			slog.Error("discord: defer update failed", "component", in.Data.CustomID, "err", err)
			return
		}
		md := map[string]any{
			metaInteractionToken: in.Token,
			metaInteractionKind:  "component",
		}
		if in.Message != nil {
			md[bus.MetaMessageID] = in.Message.ID
		}
		sel := bus.Selection{MenuID: in.Data.CustomID, Values: in.Data.Values}
		d.HandleSelection(user.ID, user.displayName(), in.ChannelID, sel, md)
	}
}

func (d *DiscordChannel) respond(ctx context.Context, in discordInteraction, payload any) error {
	_, err := d.request(ctx, http.MethodPost, d.api("/interactions/%s/%s/callback", in.ID, in.Token), payload, nil)
	return err
}

// registerCommands bulk-overwrites the application's slash commands,
// globally or in each configured guild.
func (d *DiscordChannel) registerCommands(ctx context.Context) {
	appID := d.applicationID()
	if appID == "" || len(d.commands) == 0 {
		return
	}
	payload := slashCommands(d.commands)
	if len(d.cfg.GuildIDs) == 0 {
		if _, err := d.request(ctx, http.MethodPut, d.api("/applications/%s/commands", appID), payload, nil); err != nil {
			slog.Error("discord: command registration failed", "err", err)
			return
		}
		slog.Info("discord: slash commands registered", "count", len(payload))
		return
	}
	for _, guild := range d.cfg.GuildIDs {
		if _, err := d.request(ctx, http.MethodPut, d.api("/applications/%s/guilds/%s/commands", appID, guild), payload, nil); err != nil {
			slog.Error("discord: command registration failed", "guild", guild, "err", err)
			continue
		}
		slog.Info("discord: slash commands registered", "guild", guild, "count", len(payload))
	}
}

// slashCommands converts descriptors to application command payloads.
// Discord requires required options before optional ones.
func slashCommands(ds []commands.Descriptor) []map[string]any {
	out := make([]map[string]any, 0, len(ds))
	for _, d := range ds {
		if d.Hidden {
			continue
		}
		opts := append([]commands.Option(nil), d.Options...)
		sort.SliceStable(opts, func(i, j int) bool { return opts[i].Required && !opts[j].Required })

		options := make([]map[string]any, 0, len(opts))
		for _, o := range opts {
			opt := map[string]any{
				"type":        optionType(o.Kind),
				"name":        strings.ToLower(o.Name),
				"description": clip(o.Description, o.Name, 100),
				"required":    o.Required,
			}
			if o.HasRange {
				opt["min_value"] = o.Min
				opt["max_value"] = o.Max
			}
			options = append(options, opt)
		}
		out = append(out, map[string]any{
			"type":        1,
			"name":        strings.ToLower(d.Name),
			"description": clip(d.Description, d.Name, 100),
			"options":     options,
		})
	}
	return out
}

func optionType(k commands.OptionKind) int {
	switch k {
	case commands.KindInteger:
		return 4
	case commands.KindBoolean:
		return 5
	}
	return 3
}

// clip returns s cut to n runes, or fallback when s is empty.
func clip(s, fallback string, n int) string {
	if s == "" {
		s = fallback
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
