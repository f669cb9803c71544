package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
)

// ErrNoMove is returned when the engine has no move to offer.
var ErrNoMove = errors.New("engine returned no move")

// Score is an evaluation from the point of view of the side to move.
// A mate score with Mate 0 is a finished game; Won tells whether the
// evaluated side delivered it.
type Score struct {
	CP     int
	Mate   int
	IsMate bool
	Won    bool
}

// Engine plays and evaluates positions.
type Engine interface {
	BestMove(ctx context.Context, pos *chess.Position, level int) (*chess.Move, error)
	Analyse(ctx context.Context, pos *chess.Position) (Score, error)
}

// RandomMove returns a uniformly random legal move.
func RandomMove(pos *chess.Position) (*chess.Move, error) {
	moves := pos.ValidMoves()
	if len(moves) == 0 {
		return nil, ErrNoMove
	}
	return moves[rand.IntN(len(moves))], nil
}

// UCIEngine launches a UCI engine binary for every request.
type UCIEngine struct {
	path         string
	playDepth    int
	analyseDepth int
}

// NewUCIEngine returns an engine running the binary at path.
func NewUCIEngine(path string, playDepth, analyseDepth int) *UCIEngine {
	return &UCIEngine{path: path, playDepth: playDepth, analyseDepth: analyseDepth}
}

// BestMove plays at the given level. Level 0 picks a random legal move
// without starting the engine; level n sets the skill level to n-1.
func (e *UCIEngine) BestMove(ctx context.Context, pos *chess.Position, level int) (*chess.Move, error) {
	if level <= 0 {
		return RandomMove(pos)
	}
	res, err := e.search(ctx, pos, e.playDepth, uci.CmdSetOption{Name: "Skill Level", Value: strconv.Itoa(level - 1)})
	if err != nil {
		return nil, err
	}
	if res.BestMove == nil {
		return nil, ErrNoMove
	}
	return res.BestMove, nil
}

// Analyse evaluates pos to the analysis depth.
func (e *UCIEngine) Analyse(ctx context.Context, pos *chess.Position) (Score, error) {
	res, err := e.search(ctx, pos, e.analyseDepth)
	if err != nil {
		return Score{}, err
	}
	s := res.Info.Score
	return Score{CP: s.CP, Mate: s.Mate, IsMate: s.Mate != 0}, nil
}

func (e *UCIEngine) search(ctx context.Context, pos *chess.Position, depth int, opts ...uci.Cmd) (uci.SearchResults, error) {
	eng, err := uci.New(e.path)
	if err != nil {
		return uci.SearchResults{}, fmt.Errorf("start engine %s: %w", e.path, err)
	}
	var closeOnce sync.Once
	closeEngine := func() {
		closeOnce.Do(func() {
			if err := eng.Close(); err != nil {
				slog.Debug("chess: engine close", "err", err)
			}
		})
	}
	defer closeEngine()

	cmds := append([]uci.Cmd{uci.CmdUCI, uci.CmdIsReady}, opts...)
	cmds = append(cmds, uci.CmdUCINewGame, uci.CmdPosition{Position: pos}, uci.CmdGo{Depth: depth})

	done := make(chan error, 1)
	go func() { done <- eng.Run(cmds...) }()
	select {
	case err := <-done:
		if err != nil {
			return uci.SearchResults{}, fmt.Errorf("engine search: %w", err)
		}
		return eng.SearchResults(), nil
	case <-ctx.Done():
		closeEngine()
		return uci.SearchResults{}, ctx.Err()
	}
}
