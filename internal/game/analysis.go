package game

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/notnil/chess"
)

// WhiteScore converts a side-to-move score to White's point of view.
func WhiteScore(pos *chess.Position, s Score) Score {
	if pos.Turn() == chess.Black {
		s.CP, s.Mate = -s.CP, -s.Mate
	}
	return s
}

// FormatScore renders a White-relative score: "#" for a mated position,
// "#N" or "#-N" for a forced mate, and "Ncp" otherwise.
func FormatScore(s Score) string {
	if s.IsMate {
		if s.Mate == 0 {
			return "#"
		}
		return "#" + strconv.Itoa(s.Mate)
	}
	return strconv.Itoa(s.CP) + "cp"
}

// WinProbability is White's expected score in percent under the lichess
// win-rate model, rounded to two decimals.
func WinProbability(s Score) float64 {
	var wins float64
	switch {
	case s.IsMate && (s.Mate > 0 || s.Mate == 0 && s.Won):
		wins = 1000
	case s.IsMate:
		wins = 0
	default:
		cp := min(max(s.CP, -1000), 1000)
		wins = math.Round(1000 / (1 + math.Exp(-0.00368208*float64(cp))))
	}
	return math.Round(wins/1000*100*100) / 100
}

// formatPercent prints p the way a float is printed in the reply, without
// trailing zeros beyond one decimal.
func formatPercent(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if math.Trunc(p) == p {
		s += ".0"
	}
	return s
}

// Evaluate scores pos from White's side. Finished positions are scored
// without the engine.
func Evaluate(ctx context.Context, eng Engine, pos *chess.Position) (Score, error) {
	switch pos.Status() {
	case chess.Checkmate:
		// The side to move is mated.
		return Score{IsMate: true, Won: pos.Turn() == chess.Black}, nil
	case chess.Stalemate:
		return Score{}, nil
	}
	s, err := eng.Analyse(ctx, pos)
	if err != nil {
		return Score{}, err
	}
	return WhiteScore(pos, s), nil
}

// AnalysisText is the reply for an analysed position.
func AnalysisText(s Score) string {
	return fmt.Sprintf("White has an advantage of %s, which is a %s%% probability of winning.",
		FormatScore(s), formatPercent(WinProbability(s)))
}
