package game

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/notnil/chess"
	chessimage "github.com/notnil/chess/image"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/feynmanium/feynmanium/internal/bus"
)

const boardSize = 360

var (
	lightSquare = color.RGBA{0xf0, 0xd9, 0xb5, 0xff}
	darkSquare  = color.RGBA{0xb5, 0x88, 0x63, 0xff}
	lastMove    = color.RGBA{0xcd, 0xd2, 0x6a, 0xaa}
	checkSquare = color.RGBA{0xe6, 0x49, 0x49, 0xcc}
)

// BoardSVG draws pos from the perspective of persp, highlighting the last
// move and the king of the side to move when it is in check.
func BoardSVG(pos *chess.Position, persp chess.Color, last *chess.Move) ([]byte, error) {
	opts := options(
		chessimage.SquareColors(lightSquare, darkSquare),
		chessimage.Perspective(persp),
	)
	if last != nil {
		opts = append(opts, chessimage.MarkSquares(lastMove, last.S1(), last.S2()))
	}
	if sq, ok := checkedKing(pos, last); ok {
		opts = append(opts, chessimage.MarkSquares(checkSquare, sq))
	}
	var buf bytes.Buffer
	if err := chessimage.SVG(&buf, pos.Board(), opts...); err != nil {
		return nil, fmt.Errorf("draw board: %w", err)
	}
	return buf.Bytes(), nil
}

// options collects encoder options, whose type the image package keeps
// unexported.
func options[T any](opts ...T) []T { return opts }

// checkedKing finds the king of the side to move if it is in check. The
// last move carries a check tag; a position loaded from FEN without history
// is scanned for attackers instead.
func checkedKing(pos *chess.Position, last *chess.Move) (chess.Square, bool) {
	pieces := pos.Board().SquareMap()
	us := pos.Turn()
	king := chess.NoSquare
	for sq, p := range pieces {
		if p.Type() == chess.King && p.Color() == us {
			king = sq
		}
	}
	if king == chess.NoSquare {
		return chess.NoSquare, false
	}
	if last != nil {
		return king, last.HasTag(chess.Check)
	}
	return king, attacked(pieces, king, us.Other())
}

var (
	knightSteps = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookRays    = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopRays  = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// attacked reports whether a piece of colour by attacks sq.
func attacked(pieces map[chess.Square]chess.Piece, sq chess.Square, by chess.Color) bool {
	file, rank := int(sq)%8, int(sq)/8
	at := func(f, r int) (chess.Piece, bool) {
		if f < 0 || f > 7 || r < 0 || r > 7 {
			return chess.NoPiece, false
		}
		p, ok := pieces[chess.Square(r*8+f)]
		return p, ok
	}
	is := func(p chess.Piece, types ...chess.PieceType) bool {
		if p.Color() != by {
			return false
		}
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
		return false
	}
	for _, d := range knightSteps {
		if p, ok := at(file+d[0], rank+d[1]); ok && is(p, chess.Knight) {
			return true
		}
	}
	for _, d := range kingSteps {
		if p, ok := at(file+d[0], rank+d[1]); ok && is(p, chess.King) {
			return true
		}
	}
	// Pawns attack towards the opposite side.
	dir := -1
	if by == chess.Black {
		dir = 1
	}
	for _, df := range []int{-1, 1} {
		if p, ok := at(file+df, rank+dir); ok && is(p, chess.Pawn) {
			return true
		}
	}
	slide := func(rays [][2]int, types ...chess.PieceType) bool {
		for _, d := range rays {
			for f, r := file+d[0], rank+d[1]; f >= 0 && f <= 7 && r >= 0 && r <= 7; f, r = f+d[0], r+d[1] {
				if p, ok := at(f, r); ok {
					if is(p, types...) {
						return true
					}
					break
				}
			}
		}
		return false
	}
	return slide(rookRays, chess.Rook, chess.Queen) || slide(bishopRays, chess.Bishop, chess.Queen)
}

// SVGToPNG rasterises an SVG document.
func SVGToPNG(svg []byte) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("read svg: %w", err)
	}
	w, h := int(icon.ViewBox.W), int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		w, h = boardSize, boardSize
	}
	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// BoardFile renders the board as board.png, or board.svg when rasterising
// fails.
func BoardFile(pos *chess.Position, persp chess.Color, last *chess.Move) (bus.File, error) {
	svg, err := BoardSVG(pos, persp, last)
	if err != nil {
		return bus.File{}, err
	}
	data, err := SVGToPNG(svg)
	if err != nil {
		return bus.File{Name: "board.svg", Data: svg}, nil
	}
	return bus.File{Name: "board.png", Data: data}, nil
}
