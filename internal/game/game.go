// Package game implements chess games against a UCI engine: the game model,
// the select-menu view driving it, board rendering and the manager that
// owns live games.
package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/notnil/chess"

	"github.com/feynmanium/feynmanium/internal/bus"
)

// Game is one chess game between a user and the engine.
type Game struct {
	ID       string
	UserID   string
	UserName string
	// Site is the platform the game is played on, used in the PGN headers.
	Site     string
	Color    chess.Color
	Level    int
	Opponent string
	Created  time.Time

	board *chess.Game
}

// NewGame starts a game from the initial position.
func NewGame(id, userID, userName, site string, color chess.Color, level int, opponent string) *Game {
	return &Game{
		ID:       id,
		UserID:   userID,
		UserName: userName,
		Site:     site,
		Color:    color,
		Level:    level,
		Opponent: opponent,
		Created:  time.Now(),
		board:    chess.NewGame(),
	}
}

func (g *Game) Position() *chess.Position { return g.board.Position() }

func (g *Game) FEN() string { return g.board.Position().String() }

// Over reports whether the game has finished.
func (g *Game) Over() bool { return g.board.Outcome() != chess.NoOutcome }

// Result is the PGN result token: 1-0, 0-1, 1/2-1/2 or *.
func (g *Game) Result() string { return string(g.board.Outcome()) }

// UserToMove reports whether it is the user's turn in an unfinished game.
func (g *Game) UserToMove() bool {
	return !g.Over() && g.board.Position().Turn() == g.Color
}

// LastMove returns the most recent move, or nil.
func (g *Game) LastMove() *chess.Move {
	moves := g.board.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

// Play makes move, which must be legal in the current position.
func (g *Game) Play(m *chess.Move) error {
	if err := g.board.Move(m); err != nil {
		return fmt.Errorf("play %s: %w", m, err)
	}
	return nil
}

// PlayUCI makes the move given in UCI notation (e2e4, e7e8q).
func (g *Game) PlayUCI(s string) error {
	m, err := chess.UCINotation{}.Decode(g.board.Position(), s)
	if err != nil {
		return fmt.Errorf("decode move %q: %w", s, err)
	}
	return g.Play(m)
}

// PGN exports the game with its headers.
func (g *Game) PGN() string {
	white, black := g.UserName, g.Opponent
	if g.Color == chess.Black {
		white, black = black, white
	}
	headers := [][2]string{
		{"Event", "Live Chess"},
		{"Site", bus.ChannelType(g.Site).Title()},
		{"Date", g.Created.Format("2006.01.02")},
		{"Round", "-"},
		{"White", white},
		{"Black", black},
		{"Result", g.Result()},
	}
	var sb strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&sb, "[%s %q]\n", h[0], h[1])
	}
	sb.WriteString("\n")
	sb.WriteString(g.movetext())
	sb.WriteString("\n")
	return sb.String()
}

// movetext is the SAN move list followed by the result.
func (g *Game) movetext() string {
	moves := g.board.Moves()
	positions := g.board.Positions()
	var parts []string
	for i, m := range moves {
		san := chess.AlgebraicNotation{}.Encode(positions[i], m)
		if i%2 == 0 {
			parts = append(parts, fmt.Sprintf("%d. %s", i/2+1, san))
		} else {
			parts = append(parts, san)
		}
	}
	parts = append(parts, g.Result())
	return strings.Join(parts, " ")
}

// ColorName returns "white" or "black".
func ColorName(c chess.Color) string {
	if c == chess.Black {
		return "black"
	}
	return "white"
}

// PieceName names a piece type in lower case.
func PieceName(t chess.PieceType) string {
	switch t {
	case chess.King:
		return "king"
	case chess.Queen:
		return "queen"
	case chess.Rook:
		return "rook"
	case chess.Bishop:
		return "bishop"
	case chess.Knight:
		return "knight"
	case chess.Pawn:
		return "pawn"
	}
	return ""
}
