package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	require.NoError(t, err)
	def := DefaultConfig()
	assert.Equal(t, def.Bot.Prefix, cfg.Bot.Prefix)
	assert.Equal(t, def.Chess.PlayDepth, cfg.Chess.PlayDepth)
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), map[string]any{
		"bot": map[string]any{
			"prefix":         "!",
			"statusInterval": "30s",
		},
		"chess": map[string]any{
			"engine":    "/usr/games/stockfish",
			"playDepth": 12,
		},
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.Bot.Prefix)
	assert.Equal(t, 30*time.Second, cfg.Bot.StatusInterval.Std())
	assert.Equal(t, "/usr/games/stockfish", cfg.Chess.Engine)
	assert.Equal(t, 12, cfg.Chess.PlayDepth)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	src := "bot:\n  prefix: \"?\"\nchess:\n  timeout: 2m\nchannels:\n  discord:\n    enabled: true\n    guildIds: [\"42\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "?", cfg.Bot.Prefix)
	assert.Equal(t, 2*time.Minute, cfg.Chess.Timeout.Std())
	assert.True(t, cfg.Channels.Discord.Enabled)
	assert.Equal(t, []string{"42"}, cfg.Channels.Discord.GuildIDs)
	assert.Equal(t, DefaultConfig().Chess.AnalyseDepth, cfg.Chess.AnalyseDepth)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err, "invalid JSON falls back to defaults")
	assert.Equal(t, DefaultConfig().Bot.Prefix, cfg.Bot.Prefix)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FEYNMANIUM_DISCORD_TOKEN", "discord-secret")
	t.Setenv("FEYNMANIUM_STOCKFISH", "/opt/sf")
	t.Setenv("FEYNMANIUM_SLACK_BOT_TOKEN", "xoxb-1")
	t.Setenv("FEYNMANIUM_SLACK_APP_TOKEN", "xapp-1")

	cfg, err := Load("/nonexistent/path/config.json")
	require.NoError(t, err)
	assert.Equal(t, "discord-secret", cfg.Channels.Discord.Token)
	assert.True(t, cfg.Channels.Discord.Enabled)
	assert.Equal(t, "/opt/sf", cfg.Chess.Engine)
	assert.True(t, cfg.Channels.Slack.Enabled)
	assert.False(t, cfg.Channels.Telegram.Enabled)
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			original := DefaultConfig()
			original.Bot.Prefix = "%"
			original.Chess.Timeout = Duration(90 * time.Second)
			original.Translate.Endpoint = "http://localhost:9999/translate"
			require.NoError(t, Save(&original, path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, original.Bot, loaded.Bot)
			assert.Equal(t, original.Chess, loaded.Chess)
			assert.Equal(t, original.Translate, loaded.Translate)
		})
	}
}

func TestSave_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	require.NoError(t, Save(&cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSave_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.json")

	cfg := DefaultConfig()
	require.NoError(t, Save(&cfg, path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestLoad_PartialConfig_UsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), map[string]any{
		"translate": map[string]any{"endpoint": "http://example.test/t"},
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	def := DefaultConfig()
	assert.Equal(t, "http://example.test/t", cfg.Translate.Endpoint)
	assert.Equal(t, def.Translate.Timeout, cfg.Translate.Timeout)
	assert.Equal(t, def.Chess.Cards, cfg.Chess.Cards)
	assert.Len(t, cfg.Bot.EightBall, len(def.Bot.EightBall))
}

func TestChessCard(t *testing.T) {
	c := DefaultConfig().Chess
	assert.Equal(t, "Random Mover", c.Card(0))
	assert.Equal(t, "Stockfish Level 20", c.Card(MaxLevel))
	assert.Equal(t, "Level 99", c.Card(99))
}
