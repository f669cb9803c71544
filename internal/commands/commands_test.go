package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/notnil/chess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/game"
	"github.com/feynmanium/feynmanium/internal/store"
	"github.com/feynmanium/feynmanium/internal/translate"
)

func run(t *testing.T, r *Registry, line string) ([]Reply, error) {
	t.Helper()
	inv, ok := Split(line, "$")
	require.True(t, ok, line)
	c, args, err := r.Resolve(inv)
	if err != nil {
		return nil, err
	}
	return c.Execute(context.Background(), &Request{Name: c.Descriptor().Name, Args: args, UserID: "u1", User: "alice", Channel: bus.ChannelCLI, ChatID: "c1"})
}

func content(t *testing.T, r *Registry, line string) string {
	t.Helper()
	replies, err := run(t, r, line)
	require.NoError(t, err, line)
	require.Len(t, replies, 1)
	return replies[0].Content
}

func TestSplit(t *testing.T) {
	tests := []struct {
		text     string
		mentions []string
		want     Invocation
		ok       bool
	}{
		{"$roll 6 2", nil, Invocation{Name: "roll", Args: "6 2"}, true},
		{"  $help", nil, Invocation{Name: "help"}, true},
		{"<@42> ping", []string{"<@42>"}, Invocation{Name: "ping"}, true},
		{"hello there", nil, Invocation{}, false},
		{"$", nil, Invocation{}, false},
	}
	for _, tt := range tests {
		got, ok := Split(tt.text, "$", tt.mentions...)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestParseText(t *testing.T) {
	d := Descriptor{Name: "diff", Options: []Option{varOption, exprOption}}

	args, err := ParseText(d, "x**2 + 1")
	require.NoError(t, err)
	assert.Equal(t, "x", args.String("var"))
	assert.Equal(t, "x**2 + 1", args.String("expr"))

	args, err = ParseText(d, "y y**2")
	require.NoError(t, err)
	assert.Equal(t, "y", args.String("var"))
	assert.Equal(t, "y**2", args.String("expr"))

	for _, line := range []string{"x + 1", "x*y", "x > 0", "x**2", "x ^ 2"} {
		args, err = ParseText(d, line)
		require.NoError(t, err, line)
		assert.Equal(t, "x", args.String("var"), line)
		assert.Equal(t, line, args.String("expr"), line)
	}

	args, err = ParseText(d, "t")
	require.NoError(t, err)
	assert.Equal(t, "x", args.String("var"))
	assert.Equal(t, "t", args.String("expr"))

	_, err = ParseText(d, "")
	var ue *UsageError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, MissingArgument, ue.Kind)
}

func TestParseTextErrors(t *testing.T) {
	roll := NewRollCommand().Descriptor()
	tests := map[string]string{
		"1":       RangeError,
		"6 401":   RangeError,
		"six":     BadArgument,
		"6 2 1":   TooManyArgs,
		"":        MissingArgument,
		"1000 0":  RangeError,
		"6 two 1": BadArgument,
	}
	for in, kind := range tests {
		_, err := ParseText(roll, in)
		assert.Equal(t, kind, ErrorName(err), in)
	}
}

func TestBind(t *testing.T) {
	d := NewRollCommand().Descriptor()
	args, err := Bind(d, map[string]any{"siz": float64(20)})
	require.NoError(t, err)
	assert.Equal(t, int64(20), args.Int("siz"))
	assert.Equal(t, int64(1), args.Int("cnt"))

	_, err = Bind(d, map[string]any{"siz": float64(2000)})
	assert.Equal(t, RangeError, ErrorName(err))

	b, err := ParseText(Descriptor{Name: "b", Options: []Option{{Name: "on", Kind: KindBoolean, Required: true}}}, "yes")
	require.NoError(t, err)
	assert.True(t, b.Bool("on"))
}

func TestErrorName(t *testing.T) {
	assert.Equal(t, "CommandNotFound", ErrorName(&NotFoundError{Command: "x"}))
	assert.Equal(t, "errorString", ErrorName(fmt.Errorf("wrap: %w", errors.New("inner"))))
	assert.Equal(t, "BadArgument", ErrorName(fmt.Errorf("wrap: %w", usageErrorf(BadArgument, "c", "m"))))
}

func TestRegistry(t *testing.T) {
	r := NewRegistryBuilder().WithCommand(NewRollCommand(), NewEightBallCommand([]string{"Yes."})).WithCommand(MathCommands()...).Build()

	c, ok := r.Get("EIGHTBALL")
	require.True(t, ok)
	assert.Equal(t, "8ball", c.Descriptor().Name)

	c, ok = r.Get("adiff")
	require.True(t, ok)
	assert.Equal(t, "integrate", c.Descriptor().Name)

	_, err := run(t, r, "$nope")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, `Command "nope" is not found`, err.Error())

	names := make([]string, 0)
	for _, d := range r.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, "help", names[len(names)-1])
	assert.Contains(t, names, "roots")
}

func TestHelp(t *testing.T) {
	r := NewRegistryBuilder().WithCommand(NewRollCommand(), NewPingCommand()).WithCommand(MathCommands()...).Build()

	out := content(t, r, "$help")
	assert.True(t, strings.HasPrefix(out, "```\nMiscellaneous:\n"))
	assert.Contains(t, out, "Math:\n")
	assert.Contains(t, out, "Help:\n")
	assert.Less(t, strings.Index(out, "Miscellaneous"), strings.Index(out, "Math"))

	out = content(t, r, "$help roll")
	assert.Contains(t, out, "roll <siz> [cnt=1]")
	assert.Contains(t, out, "(2 to 1000)")

	_, err := run(t, r, "$help missing")
	assert.Equal(t, "CommandNotFound", ErrorName(err))
}

func TestMiscCommands(t *testing.T) {
	r := NewRegistryBuilder().WithCommand(NewRollCommand(), NewEightBallCommand([]string{"Very doubtful."}), NewPingCommand()).Build()

	replies, err := run(t, r, "$roll 6 3")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Ephemeral)
	assert.Regexp(t, "^You rolled 3d6 and get a ([3-9]|1[0-8])!\n```\n[1-6], [1-6], [1-6]\n```$", replies[0].Content)

	for _, n := range RollDice(2, 400) {
		assert.True(t, n == 1 || n == 2)
	}

	assert.Equal(t, "> Is it?\nVery doubtful.", content(t, r, "$8ball"))
	assert.Equal(t, "> Will it rain today?\nVery doubtful.", content(t, r, "$eightball Will it rain today?"))

	c, _ := r.Get("ping")
	replies, err = c.Execute(context.Background(), &Request{Latency: 41200 * time.Microsecond})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "Pong! The ping took 42 ms.", replies[0].Content)

	assert.Empty(t, Choice(nil))
}

func TestMathCommands(t *testing.T) {
	r := NewRegistryBuilder().WithCommand(MathCommands()...).Build()
	tests := map[string]string{
		"$expand (x+1)**2":                "```\n(x+1)**2 = x**2 + 2*x + 1\n```",
		"$fact x**2 - 1":                  "```\nx**2 - 1 = (x - 1)*(x + 1)\n```",
		"$simplify `x + x`":               "```\nx + x = 2*x\n```",
		"$diff x**3":                      "```\nDerivative(x**3, x) = 3*x**2\n```",
		"$adiff t cos(t)":                 "```\nIntegral(cos(t), t) = sin(t)\n```",
		"$limit 0 sin(x)/x":               "```\nLimit(sin(x)/x, x, 0) = 1\n```",
		"$solve x**2 - 4":                 "```\nConditionSet(x, Eq(x**2 - 4, 0)) = {-2, 2}\n```",
		"$solve Eq(x**2, 4)":              "```\nConditionSet(x, Eq(x**2, 4)) = {-2, 2}\n```",
		"$ineq x**2 - 1 <= 0":             "```\nConditionSet(x, x**2 - 1 <= 0, Reals) = Interval(-1, 1)\n```",
		"$apart 1/(x**2 - 1)":             "```\n1/(x**2 - 1) = -1/(2*(x + 1)) + 1/(2*(x - 1))\n```",
		"$roots x x**5 - x - 1":           "Cannot find roots of `x` on `x**5 - x - 1`",
		"$expand \\frac":                  "```\nfrac = frac\n```",
		"$diff x + y":                     "```\nDerivative(x + y, x) = 1\n```",
		"$diff y x + y":                   "```\nDerivative(x + y, y) = 1\n```",
		"$solve x - 2":                    "```\nConditionSet(x, Eq(x - 2, 0)) = {2}\n```",
		"$ineq x > 1":                     "```\nConditionSet(x, x > 1, Reals) = Interval.open(1, oo)\n```",
		"$dsolve D(f(x), x) - f(x)":       "Solving for `f(x)` in `D(f(x), x) - f(x)` gives\n```\nf(x) = C1*exp(x)\n```",
		"$dsolv g(t) D(g(t), t) - 2*g(t)": "Solving for `g(t)` in `D(g(t), t) - 2*g(t)` gives\n```\ng(t) = C1*exp(2*t)\n```",
		"$dsolve f(x) + D(f(x), x, 2)":    "Solving for `f(x)` in `f(x) + D(f(x), x, 2)` gives\n```\nf(x) = C1*sin(x) + C2*cos(x)\n```",
	}
	for line, want := range tests {
		t.Run(line, func(t *testing.T) {
			assert.Equal(t, want, content(t, r, line))
		})
	}

	replies, err := run(t, r, "$roots x**2 - 1")
	require.NoError(t, err)
	require.Len(t, replies, 3)
	assert.Equal(t, "The roots of `x` on `x**2 - 1` are", replies[0].Content)

	_, err = run(t, r, "$solve x > 1")
	assert.Equal(t, BadArgument, ErrorName(err))

	_, err = run(t, r, "$expand x +")
	assert.Equal(t, "SympifyError", ErrorName(err))

	_, err = run(t, r, "$dsolve D(f(x), x) - f(x)**2")
	assert.Equal(t, "NotImplementedError", ErrorName(err))
}

type fakeTranslator struct {
	calls []string
}

func (f *fakeTranslator) Translate(_ context.Context, text, dest, src string) (translate.Result, error) {
	f.calls = append(f.calls, dest+"|"+src+"|"+text)
	if src == "auto" {
		src = "en"
	}
	return translate.Result{Src: src, Dest: dest, Origin: text, Text: "[" + dest + "] " + text}, nil
}

func (f *fakeTranslator) Detect(context.Context, string) (string, error) { return "fr", nil }

type fakePages struct{}

func (fakePages) Fetch(context.Context, string) (translate.Article, error) {
	return translate.Article{Title: "News", Text: "First sentence. Second sentence is much longer than the limit."}, nil
}

func TestTranslateCommands(t *testing.T) {
	tr := &fakeTranslator{}
	r := NewRegistryBuilder().WithCommand(TranslateCommands(tr, fakePages{}, 20)...).Build()

	replies, err := run(t, r, "$trans de Hello world")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Ephemeral)
	assert.Equal(t, "English:\n> Hello world\nGerman:\n> [de] Hello world", replies[0].Content)

	assert.Equal(t, "French:\n> Salut\nGerman:\n> [de] Salut", content(t, r, "$trans de fr Salut"))
	assert.Equal(t, "French:\n> Bonjour", content(t, r, "$lang Bonjour"))

	codes := content(t, r, "$code")
	assert.True(t, strings.HasPrefix(codes, "Available language codes:\naf - Afrikaans, sq - Albanian"))
	assert.Contains(t, codes, "zh-cn - Chinese (Simplified)")

	page := content(t, r, "$transpage es https://example.com/news")
	assert.Equal(t, "**News**\nEnglish → Spanish:\n> [es] First sentence.", page)

	_, err = run(t, r, "$transpage klingon https://example.com")
	assert.Equal(t, BadArgument, ErrorName(err))
}

type stubEngine struct{}

func (stubEngine) BestMove(_ context.Context, pos *chess.Position, _ int) (*chess.Move, error) {
	return pos.ValidMoves()[0], nil
}

func (stubEngine) Analyse(context.Context, *chess.Position) (game.Score, error) {
	return game.Score{CP: 20}, nil
}

type stubLister struct{ games []store.Game }

func (s stubLister) ListGames(_ context.Context, _ string, limit int) ([]store.Game, error) {
	return s.games[:min(limit, len(s.games))], nil
}

func TestChessCommands(t *testing.T) {
	m := game.NewManager(stubEngine{}, nil, nil, game.ManagerConfig{})
	when := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	lister := stubLister{games: []store.Game{
		{ID: "0123456789", Color: "white", Level: 3, Result: "1-0", UpdatedAt: when},
		{ID: "abc", Color: "black", Level: 0, Result: "*", UpdatedAt: when},
	}}
	r := NewRegistryBuilder().WithCommand(NewChessCommand(m), NewAnalyseCommand(m), NewGamesCommand(lister)).Build()

	replies, err := run(t, r, "$chess 0 yes")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "`rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1`", replies[0].Content)
	require.Len(t, replies[0].Files, 2)
	assert.Equal(t, "game.pgn", replies[0].Files[1].Name)
	assert.NotEmpty(t, replies[0].Menus)
	require.NotNil(t, replies[0].OnSent)
	replies[0].OnSent("m1")
	assert.Equal(t, 1, m.Active())

	_, err = run(t, r, "$chess 22")
	assert.Equal(t, RangeError, ErrorName(err))

	out := content(t, r, "$anlys `rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1`")
	assert.Equal(t, "White has an advantage of 20cp, which is a 51.8% probability of winning.", out)

	list := content(t, r, "$games 1")
	assert.Equal(t, "```\n2024-03-01 12:30  white  level 3   1-0      01234567\n```", list)
}
