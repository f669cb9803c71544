package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/notnil/chess"

	"github.com/feynmanium/feynmanium/internal/bus"
)

const (
	// MenuPrefix starts the id of every menu owned by a chess view.
	MenuPrefix = "chess:"
	// maxMenuOptions is the most options a select menu can hold.
	maxMenuOptions = 25

	srcPlaceholder  = "Select the source square"
	destPlaceholder = "Select the target square"
)

// placeholder is the single option of a menu with nothing to offer.
var placeholder = []bus.MenuOption{{Label: "none", Value: "none"}}

// MenuKind tells the source menu from the destination menus.
type MenuKind string

const (
	MenuSource MenuKind = "src"
	MenuDest   MenuKind = "dest"
)

// MenuID is the id of a view menu: chess:<game>:src or chess:<game>:dest:<n>.
func MenuID(gameID string, kind MenuKind, n int) string {
	if kind == MenuSource {
		return MenuPrefix + gameID + ":" + string(kind)
	}
	return fmt.Sprintf("%s%s:%s:%d", MenuPrefix, gameID, kind, n)
}

// ParseMenuID splits a menu id into game id and kind.
func ParseMenuID(id string) (string, MenuKind, bool) {
	rest, ok := strings.CutPrefix(id, MenuPrefix)
	if !ok {
		return "", "", false
	}
	parts := strings.Split(rest, ":")
	if len(parts) < 2 || parts[0] == "" {
		return "", "", false
	}
	switch MenuKind(parts[1]) {
	case MenuSource:
		return parts[0], MenuSource, len(parts) == 2
	case MenuDest:
		return parts[0], MenuDest, len(parts) == 3
	}
	return "", "", false
}

// View is the select-menu state of a game: which source square is selected
// and whether the menus are still live.
type View struct {
	game     *Game
	selected chess.Square
	disabled bool
}

func NewView(g *Game) *View {
	return &View{game: g, selected: chess.NoSquare}
}

func (v *View) Game() *Game { return v.game }

// Disable freezes every menu.
func (v *View) Disable() { v.disabled = true }

func (v *View) Disabled() bool { return v.disabled }

// Reset clears the source selection.
func (v *View) Reset() { v.selected = chess.NoSquare }

// SelectSource selects the origin square named sq.
func (v *View) SelectSource(sq string) error {
	for _, s := range v.sources() {
		if s.String() == sq {
			v.selected = s
			return nil
		}
	}
	return fmt.Errorf("no legal move from %q", sq)
}

// Selected returns the selected square name, or "".
func (v *View) Selected() string {
	if v.selected == chess.NoSquare {
		return ""
	}
	return v.selected.String()
}

// sources lists the distinct origin squares of the legal moves in board
// order.
func (v *View) sources() []chess.Square {
	seen := map[chess.Square]bool{}
	var out []chess.Square
	for _, m := range v.game.Position().ValidMoves() {
		if !seen[m.S1()] {
			seen[m.S1()] = true
			out = append(out, m.S1())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Menus renders the source menu followed by one or more destination menus.
func (v *View) Menus() []bus.Menu {
	id := v.game.ID
	src := bus.Menu{ID: MenuID(id, MenuSource, 0), Placeholder: srcPlaceholder}
	if v.disabled || !v.game.UserToMove() {
		src.Options, src.Disabled = placeholder, true
	} else {
		board := v.game.Position().Board()
		for _, sq := range v.sources() {
			src.Options = append(src.Options, bus.MenuOption{
				Label:       sq.String(),
				Value:       sq.String(),
				Description: PieceName(board.Piece(sq).Type()),
				Default:     sq == v.selected,
			})
		}
		if len(src.Options) == 0 {
			src.Options, src.Disabled = placeholder, true
		}
	}

	dests := v.destinations()
	if v.disabled || len(dests) == 0 {
		return []bus.Menu{src, {ID: MenuID(id, MenuDest, 0), Placeholder: destPlaceholder, Options: placeholder, Disabled: true}}
	}
	menus := []bus.Menu{src}
	for n := 0; n*maxMenuOptions < len(dests); n++ {
		end := min((n+1)*maxMenuOptions, len(dests))
		menus = append(menus, bus.Menu{
			ID:          MenuID(id, MenuDest, n),
			Placeholder: destPlaceholder,
			Options:     dests[n*maxMenuOptions : end],
		})
	}
	return menus
}

func (v *View) destinations() []bus.MenuOption {
	if v.selected == chess.NoSquare || !v.game.UserToMove() {
		return nil
	}
	pos := v.game.Position()
	var out []bus.MenuOption
	for _, m := range pos.ValidMoves() {
		if m.S1() != v.selected {
			continue
		}
		out = append(out, bus.MenuOption{
			Label:       chess.AlgebraicNotation{}.Encode(pos, m),
			Description: chess.LongAlgebraicNotation{}.Encode(pos, m),
			Value:       chess.UCINotation{}.Encode(pos, m),
		})
	}
	return out
}
