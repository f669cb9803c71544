// Package config defines the configuration schema for feynmanium.
//
// JSON keys use camelCase. The same struct tags are read from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/feynmanium/feynmanium/internal/config/channel"
)

// Duration is a time.Duration that reads and writes as a Go duration string
// ("10s", "5m").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// BotConfig holds the behaviour shared by every channel.
type BotConfig struct {
	Prefix         string   `json:"prefix" yaml:"prefix"`
	Description    string   `json:"description" yaml:"description"`
	StatusInterval Duration `json:"statusInterval" yaml:"statusInterval"`
	Statuses       []string `json:"statuses" yaml:"statuses"`
	ReadyMessages  []string `json:"readyMessages" yaml:"readyMessages"`
	ErrorMessages  []string `json:"errorMessages" yaml:"errorMessages"`
	EightBall      []string `json:"eightBall" yaml:"eightBall"`
}

func defaultBotConfig() BotConfig {
	return BotConfig{
		Prefix:         "$",
		Description:    "A bot for dice, math, chess and translation.",
		StatusInterval: Duration(10 * time.Second),
		Statuses: []string{
			"with integrals",
			"chess against myself",
			"$help",
			"with prime numbers",
			"dice",
		},
		ReadyMessages: []string{
			"Ready to compute.",
			"All systems nominal.",
		},
		ErrorMessages: []string{
			"Oops, something went wrong.",
			"That did not work.",
			"I could not do that.",
			"Something broke.",
		},
		EightBall: []string{
			"It is certain.",
			"It is decidedly so.",
			"Without a doubt.",
			"Yes, definitely.",
			"You may rely on it.",
			"As I see it, yes.",
			"Most likely.",
			"Outlook good.",
			"Yes.",
			"Signs point to yes.",
			"Reply hazy, try again.",
			"Ask again later.",
			"Better not tell you now.",
			"Cannot predict now.",
			"Concentrate and ask again.",
			"Don't count on it.",
			"My reply is no.",
			"My sources say no.",
			"Outlook not so good.",
			"Very doubtful.",
		},
	}
}

// MaxLevel is the strongest chess opponent level.
const MaxLevel = 21

// ChessConfig configures the chess engine and games.
type ChessConfig struct {
	Engine        string   `json:"engine" yaml:"engine"`
	PlayDepth     int      `json:"playDepth" yaml:"playDepth"`
	AnalyseDepth  int      `json:"analyseDepth" yaml:"analyseDepth"`
	Timeout       Duration `json:"timeout" yaml:"timeout"`
	EngineTimeout Duration `json:"engineTimeout" yaml:"engineTimeout"`
	// Cards names the opponent shown in PGN headers, indexed by level.
	Cards []string `json:"cards" yaml:"cards"`
}

func defaultChessConfig() ChessConfig {
	cards := make([]string, MaxLevel+1)
	cards[0] = "Random Mover"
	for lvl := 1; lvl <= MaxLevel; lvl++ {
		cards[lvl] = fmt.Sprintf("Stockfish Level %d", lvl-1)
	}
	return ChessConfig{
		Engine:        "stockfish",
		PlayDepth:     16,
		AnalyseDepth:  20,
		Timeout:       Duration(300 * time.Second),
		EngineTimeout: Duration(60 * time.Second),
		Cards:         cards,
	}
}

// Card returns the opponent name for level.
func (c ChessConfig) Card(level int) string {
	if level >= 0 && level < len(c.Cards) && c.Cards[level] != "" {
		return c.Cards[level]
	}
	return fmt.Sprintf("Level %d", level)
}

// TranslateConfig configures the translation backend.
type TranslateConfig struct {
	Endpoint string   `json:"endpoint" yaml:"endpoint"`
	Timeout  Duration `json:"timeout" yaml:"timeout"`
	// MaxPageChars bounds how much of a fetched page is translated.
	MaxPageChars int `json:"maxPageChars" yaml:"maxPageChars"`
}

func defaultTranslateConfig() TranslateConfig {
	return TranslateConfig{
		Endpoint:     "https://translate.googleapis.com/translate_a/single",
		Timeout:      Duration(15 * time.Second),
		MaxPageChars: 1500,
	}
}

// StoreConfig configures the game archive.
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// Config is the root configuration.
type Config struct {
	Bot       BotConfig              `json:"bot" yaml:"bot"`
	Channels  channel.ChannelsConfig `json:"channels" yaml:"channels"`
	Chess     ChessConfig            `json:"chess" yaml:"chess"`
	Translate TranslateConfig        `json:"translate" yaml:"translate"`
	Store     StoreConfig            `json:"store" yaml:"store"`
}

// DefaultConfig returns a Config populated with all defaults.
func DefaultConfig() Config {
	return Config{
		Bot:       defaultBotConfig(),
		Channels:  channel.DefaultChannelsConfig(),
		Chess:     defaultChessConfig(),
		Translate: defaultTranslateConfig(),
		Store:     StoreConfig{Path: "~/.feynmanium/games.db"},
	}
}

// StorePath returns the expanded path to the game archive.
func (c *Config) StorePath() string {
	p := c.Store.Path
	if p == "" {
		return filepath.Join(DataDir(), "games.db")
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return p
}
