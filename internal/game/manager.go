package game

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/notnil/chess"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/store"
)

// ErrUnknownGame is returned for selections on a game that is no longer live.
var ErrUnknownGame = errors.New("game is no longer active")

// Archive persists game snapshots.
type Archive interface {
	SaveGame(ctx context.Context, g store.Game) error
}

// Publisher delivers messages produced outside a request, such as the edit
// that freezes a timed-out game.
type Publisher interface {
	PublishOutbound(msg bus.OutboundMessage)
}

// Render is the message showing a game: the FEN as content, the board and
// PGN as attachments, and the view's menus. Files is nil when only the
// menus changed.
type Render struct {
	GameID  string
	Content string
	Files   []bus.File
	Menus   []bus.Menu
}

// StartRequest describes a new game.
type StartRequest struct {
	UserID   string
	UserName string
	Channel  bus.ChannelType
	ChatID   string
	Level    int
	// White is the user's colour; nil picks one at random.
	White *bool
}

// ManagerConfig tunes a Manager.
type ManagerConfig struct {
	// Timeout is how long a view stays live without interaction.
	Timeout time.Duration
	// EngineTimeout bounds a single engine call.
	EngineTimeout time.Duration
	// Card names the opponent for a level.
	Card func(level int) string
	// SweepInterval is how often Run looks for timed-out views.
	SweepInterval time.Duration
}

type session struct {
	mu       sync.Mutex
	view     *View
	channel  bus.ChannelType
	chatID   string
	anchor   string
	deadline time.Time
}

// Manager owns the live games. It is safe for concurrent use; calls on
// different games run in parallel, calls on one game are serialised.
type Manager struct {
	engine    Engine
	archive   Archive
	publisher Publisher
	cfg       ManagerConfig
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager returns a Manager. archive and publisher may be nil.
func NewManager(engine Engine, archive Archive, publisher Publisher, cfg ManagerConfig) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.EngineTimeout <= 0 {
		cfg.EngineTimeout = time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Second
	}
	if cfg.Card == nil {
		cfg.Card = func(level int) string { return fmt.Sprintf("Level %d", level) }
	}
	return &Manager{
		engine:    engine,
		archive:   archive,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
}

// Active returns the number of live games.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Start creates a game and lets the engine open when the user plays black.
func (m *Manager) Start(ctx context.Context, req StartRequest) (Render, error) {
	white := false
	if req.White != nil {
		white = *req.White
	} else {
		n, err := rand.Int(rand.Reader, big.NewInt(2))
		if err != nil {
			return Render{}, fmt.Errorf("pick colour: %w", err)
		}
		white = n.Int64() == 1
	}
	color := chess.Black
	if white {
		color = chess.White
	}

	g := NewGame(uuid.NewString(), req.UserID, req.UserName, req.Channel.String(), color, req.Level, m.cfg.Card(req.Level))
	if err := m.engineMove(ctx, g); err != nil {
		return Render{}, err
	}
	s := &session{
		view:     NewView(g),
		channel:  req.Channel,
		chatID:   req.ChatID,
		deadline: m.now().Add(m.cfg.Timeout),
	}
	m.mu.Lock()
	m.sessions[g.ID] = s
	m.mu.Unlock()

	m.persist(ctx, g)
	slog.Info("chess: game started", "game", g.ID, "user", req.UserID, "level", req.Level, "color", ColorName(color))
	return m.render(s.view, true)
}

// Anchor records the platform message id showing the game, so that a
// timeout can edit it.
func (m *Manager) Anchor(gameID, messageID string) {
	if s := m.session(gameID); s != nil {
		s.mu.Lock()
		s.anchor = messageID
		s.mu.Unlock()
	}
}

func (m *Manager) session(id string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// HandleSelection applies a menu selection. It returns nil when the
// selection is not for a chess view or comes from someone other than the
// game's user, which are ignored silently.
func (m *Manager) HandleSelection(ctx context.Context, in bus.InboundMessage) (*Render, error) {
	sel := in.Selection()
	if sel == nil || len(sel.Values) == 0 {
		return nil, nil
	}
	id, kind, ok := ParseMenuID(sel.MenuID)
	if !ok {
		return nil, nil
	}
	s := m.session(id)
	if s == nil {
		return nil, ErrUnknownGame
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.view.Game()
	if in.SenderID() != g.UserID || s.view.Disabled() {
		return nil, nil
	}
	s.deadline = m.now().Add(m.cfg.Timeout)
	if id := in.Meta(bus.MetaMessageID); id != "" {
		s.anchor = id
	}

	// A failed engine call leaves the engine to move; retry before anything else.
	if !g.Over() && !g.UserToMove() {
		if err := m.engineMove(ctx, g); err != nil {
			return nil, err
		}
	}

	value := sel.Values[0]
	switch kind {
	case MenuSource:
		if err := s.view.SelectSource(value); err != nil {
			return nil, err
		}
		r, err := m.render(s.view, false)
		return &r, err
	case MenuDest:
		if err := g.PlayUCI(value); err != nil {
			return nil, err
		}
		s.view.Reset()
		if err := m.engineMove(ctx, g); err != nil {
			m.persist(ctx, g)
			return nil, err
		}
		m.persist(ctx, g)
		if g.Over() {
			slog.Info("chess: game over", "game", g.ID, "result", g.Result())
		}
		r, err := m.render(s.view, true)
		return &r, err
	}
	return nil, nil
}

// engineMove lets the engine reply when it is its turn.
func (m *Manager) engineMove(ctx context.Context, g *Game) error {
	if g.Over() || g.UserToMove() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.EngineTimeout)
	defer cancel()
	mv, err := m.engine.BestMove(ctx, g.Position(), g.Level)
	if err != nil {
		return fmt.Errorf("engine move: %w", err)
	}
	return g.Play(mv)
}

func (m *Manager) render(v *View, withFiles bool) (Render, error) {
	g := v.Game()
	r := Render{GameID: g.ID, Content: "`" + g.FEN() + "`", Menus: v.Menus()}
	if !withFiles {
		return r, nil
	}
	board, err := BoardFile(g.Position(), g.Color, g.LastMove())
	if err != nil {
		return Render{}, err
	}
	r.Files = []bus.File{board, {Name: "game.pgn", Data: []byte(g.PGN())}}
	return r, nil
}

func (m *Manager) persist(ctx context.Context, g *Game) {
	if m.archive == nil {
		return
	}
	rec := store.Game{
		ID:        g.ID,
		UserID:    g.UserID,
		UserName:  g.UserName,
		Channel:   g.Site,
		Color:     ColorName(g.Color),
		Level:     g.Level,
		PGN:       g.PGN(),
		FEN:       g.FEN(),
		Result:    g.Result(),
		CreatedAt: g.Created,
		UpdatedAt: m.now(),
	}
	if err := m.archive.SaveGame(ctx, rec); err != nil {
		slog.Warn("chess: archive game", "game", g.ID, "err", err)
	}
}

// Sweep disables and forgets every view whose timeout has passed, editing
// its message when the message id is known. It returns the number of views
// closed.
func (m *Manager) Sweep(ctx context.Context) int {
	now := m.now()
	var expired []*session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.mu.TryLock() {
			if now.After(s.deadline) {
				expired = append(expired, s)
				delete(m.sessions, id)
			}
			s.mu.Unlock()
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.mu.Lock()
		s.view.Disable()
		g := s.view.Game()
		slog.Debug("chess: view timed out", "game", g.ID)
		if m.publisher != nil && s.anchor != "" {
			out := bus.NewOutboundMessage(s.channel, s.chatID, "`"+g.FEN()+"`")
			out.SetMenus(s.view.Menus())
			out.SetUpdate(true)
			out.SetMetadata(map[string]any{bus.MetaMessageID: s.anchor})
			m.publisher.PublishOutbound(out)
		}
		s.mu.Unlock()
	}
	return len(expired)
}

// Run sweeps timed-out views until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Analyse evaluates the position given as FEN and renders the reply.
func (m *Manager) Analyse(ctx context.Context, fen string) (Render, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return Render{}, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	pos := chess.NewGame(opt).Position()
	ctx, cancel := context.WithTimeout(ctx, m.cfg.EngineTimeout)
	defer cancel()
	score, err := Evaluate(ctx, m.engine, pos)
	if err != nil {
		return Render{}, err
	}
	board, err := BoardFile(pos, chess.White, nil)
	if err != nil {
		return Render{}, err
	}
	return Render{Content: AnalysisText(score), Files: []bus.File{board}}, nil
}
