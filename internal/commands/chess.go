package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/feynmanium/feynmanium/internal/config"
	"github.com/feynmanium/feynmanium/internal/game"
	"github.com/feynmanium/feynmanium/internal/store"
)

const gameGroup = "Games"

// GameLister lists a user's archived games.
type GameLister interface {
	ListGames(ctx context.Context, userID string, limit int) ([]store.Game, error)
}

// NewChessCommand starts games through m.
func NewChessCommand(m *game.Manager) Command {
	return Func{
		Desc: Descriptor{
			Name:        "chess",
			Group:       gameGroup,
			Description: "Play chess against the engine.",
			Options: []Option{
				{Name: "lvl", Description: "Opponent level, 0 plays random moves", Kind: KindInteger, Required: true, HasRange: true, Min: 0, Max: config.MaxLevel},
				{Name: "fst", Description: "Whether you play white", Kind: KindBoolean},
			},
		},
		Run: func(ctx context.Context, req *Request) ([]Reply, error) {
			start := game.StartRequest{
				UserID:   req.UserID,
				UserName: req.User,
				Channel:  req.Channel,
				ChatID:   req.ChatID,
				Level:    int(req.Args.Int("lvl")),
			}
			if req.Args.Has("fst") {
				white := req.Args.Bool("fst")
				start.White = &white
			}
			r, err := m.Start(ctx, start)
			if err != nil {
				return nil, err
			}
			return []Reply{{
				Content: r.Content,
				Files:   r.Files,
				Menus:   r.Menus,
				OnSent:  func(id string) { m.Anchor(r.GameID, id) },
			}}, nil
		},
	}
}

// NewAnalyseCommand evaluates positions through m.
func NewAnalyseCommand(m *game.Manager) Command {
	return Func{
		Desc: Descriptor{
			Name:        "analyse",
			Aliases:     []string{"anlys", "analyze"},
			Group:       gameGroup,
			Description: "Evaluate a chess position.",
			Options: []Option{
				{Name: "fen", Description: "Position in FEN", Kind: KindString, Required: true, Rest: true},
			},
		},
		Run: func(ctx context.Context, req *Request) ([]Reply, error) {
			r, err := m.Analyse(ctx, strings.Trim(strings.TrimSpace(req.Args.String("fen")), "`"))
			if err != nil {
				return nil, err
			}
			return []Reply{{Content: r.Content, Files: r.Files}}, nil
		},
	}
}

// NewGamesCommand lists the caller's recent games.
func NewGamesCommand(games GameLister) Command {
	return Func{
		Desc: Descriptor{
			Name:        "games",
			Group:       gameGroup,
			Description: "List your recent chess games.",
			Options: []Option{
				{Name: "n", Description: "How many games to list", Kind: KindInteger, HasRange: true, Min: 1, Max: 25, Default: int64(5)},
			},
			Ephemeral: true,
		},
		Run: func(ctx context.Context, req *Request) ([]Reply, error) {
			list, err := games.ListGames(ctx, req.UserID, int(req.Args.Int("n")))
			if err != nil {
				return nil, err
			}
			if len(list) == 0 {
				return []Reply{{Content: "You have not played any games yet.", Ephemeral: true}}, nil
			}
			var sb strings.Builder
			sb.WriteString("```\n")
			for _, g := range list {
				fmt.Fprintf(&sb, "%s  %-5s  level %-2d  %-7s  %s\n",
					g.UpdatedAt.Format("2006-01-02 15:04"), g.Color, g.Level, g.Result, g.ID[:min(8, len(g.ID))])
			}
			sb.WriteString("```")
			return []Reply{{Content: sb.String(), Ephemeral: true}}, nil
		},
	}
}
