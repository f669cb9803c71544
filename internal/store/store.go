// Package store archives chess games in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Game is one archived game.
type Game struct {
	ID        string
	UserID    string
	UserName  string
	Channel   string
	Color     string
	Level     int
	PGN       string
	FEN       string
	Result    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists games in SQLite.
type Store struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// Open opens the database at path, creating it and its schema if needed.
// The path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		clean := filepath.Clean(path)
		if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		dsn = clean + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveGame inserts g or updates the stored copy.
func (s *Store) SaveGame(ctx context.Context, g Game) error {
	if g.ID == "" {
		return fmt.Errorf("game id is required")
	}
	now := time.Now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, user_id, user_name, channel, color, level, pgn, fen, result, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   user_name = excluded.user_name,
		   pgn = excluded.pgn,
		   fen = excluded.fen,
		   result = excluded.result,
		   updated_at = excluded.updated_at`,
		g.ID, g.UserID, g.UserName, g.Channel, g.Color, g.Level, g.PGN, g.FEN, g.Result,
		toMillis(g.CreatedAt), toMillis(g.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", g.ID, err)
	}
	return nil
}

// GetGame returns one game, or sql.ErrNoRows.
func (s *Store) GetGame(ctx context.Context, id string) (Game, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, user_name, channel, color, level, pgn, fen, result, created_at, updated_at
		 FROM games WHERE id = ?`, id)
	g, err := scanGame(row)
	if err != nil {
		return Game{}, fmt.Errorf("get game %s: %w", id, err)
	}
	return g, nil
}

// ListGames returns the user's games, most recently updated first.
func (s *Store) ListGames(ctx context.Context, userID string, limit int) ([]Game, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, user_name, channel, color, level, pgn, fen, result, created_at, updated_at
		 FROM games WHERE user_id = ? ORDER BY updated_at DESC, id LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (Game, error) {
	var (
		g                Game
		created, updated int64
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.UserName, &g.Channel, &g.Color, &g.Level,
		&g.PGN, &g.FEN, &g.Result, &created, &updated); err != nil {
		return Game{}, err
	}
	g.CreatedAt, g.UpdatedAt = fromMillis(created), fromMillis(updated)
	return g, nil
}
