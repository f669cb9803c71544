// Package container wires the feynmanium services using go.uber.org/dig.
package container

import (
	"io"

	"go.uber.org/dig"

	"github.com/feynmanium/feynmanium/internal/bus"
	"github.com/feynmanium/feynmanium/internal/channels"
	"github.com/feynmanium/feynmanium/internal/commands"
	"github.com/feynmanium/feynmanium/internal/config"
	"github.com/feynmanium/feynmanium/internal/game"
	"github.com/feynmanium/feynmanium/internal/presence"
	"github.com/feynmanium/feynmanium/internal/router"
	"github.com/feynmanium/feynmanium/internal/store"
	"github.com/feynmanium/feynmanium/internal/translate"
)

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg      *config.Config
	msgBus   *bus.MessageBus
	store    *store.Store
	games    *game.Manager
	registry *commands.Registry
	router   *router.Router
	channels *channels.Manager
	presence *presence.Service
}

func (c *Container) Config() *config.Config       { return c.cfg }
func (c *Container) MessageBus() *bus.MessageBus  { return c.msgBus }
func (c *Container) Store() *store.Store          { return c.store }
func (c *Container) Games() *game.Manager         { return c.games }
func (c *Container) Registry() *commands.Registry { return c.registry }
func (c *Container) Router() *router.Router       { return c.router }
func (c *Container) Channels() *channels.Manager  { return c.channels }
func (c *Container) Presence() *presence.Service  { return c.presence }

// Close releases the game archive.
func (c *Container) Close() error { return c.store.Close() }

// console is the writer the CLI channel prints to. A named type lets dig
// tell it apart from other writers.
type console struct{ io.Writer }

// New builds and wires all services from cfg. out receives CLI channel
// output; nil means stdout.
func New(cfg *config.Config, out io.Writer) (*Container, error) {
	d := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		func() console { return console{out} },
		newMessageBus,
		newStore,
		newEngine,
		newGameManager,
		newTranslator,
		newFetcher,
		newRegistry,
		newChannelManager,
		newRouter,
		newPresence,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		msgBus *bus.MessageBus,
		st *store.Store,
		games *game.Manager,
		registry *commands.Registry,
		r *router.Router,
		chans *channels.Manager,
		p *presence.Service,
	) {
		result = &Container{
			cfg:      cfg,
			msgBus:   msgBus,
			store:    st,
			games:    games,
			registry: registry,
			router:   r,
			channels: chans,
			presence: p,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

func newMessageBus() *bus.MessageBus {
	return bus.NewMessageBus(100)
}

func newStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.StorePath())
}

func newEngine(cfg *config.Config) game.Engine {
	return game.NewUCIEngine(cfg.Chess.Engine, cfg.Chess.PlayDepth, cfg.Chess.AnalyseDepth)
}

func newGameManager(cfg *config.Config, eng game.Engine, st *store.Store, b *bus.MessageBus) *game.Manager {
	return game.NewManager(eng, st, b, game.ManagerConfig{
		Timeout:       cfg.Chess.Timeout.Std(),
		EngineTimeout: cfg.Chess.EngineTimeout.Std(),
		Card:          cfg.Chess.Card,
	})
}

func newTranslator(cfg *config.Config) *translate.Client {
	return translate.NewClient(cfg.Translate.Endpoint, cfg.Translate.Timeout.Std())
}

func newFetcher(cfg *config.Config) *translate.Fetcher {
	return translate.NewFetcher(cfg.Translate.Timeout.Std())
}

func newRegistry(cfg *config.Config, games *game.Manager, st *store.Store, tr *translate.Client, pages *translate.Fetcher) *commands.Registry {
	return commands.NewRegistryBuilder().
		WithCommand(
			commands.NewRollCommand(),
			commands.NewEightBallCommand(cfg.Bot.EightBall),
			commands.NewPingCommand(),
		).
		WithCommand(commands.MathCommands()...).
		WithCommand(
			commands.NewChessCommand(games),
			commands.NewAnalyseCommand(games),
			commands.NewGamesCommand(st),
		).
		WithCommand(commands.TranslateCommands(tr, pages, cfg.Translate.MaxPageChars)...).
		Build()
}

func newChannelManager(cfg *config.Config, b *bus.MessageBus, registry *commands.Registry, out console) *channels.Manager {
	return channels.NewManager(cfg, b, registry.Descriptors(), out.Writer)
}

func newRouter(cfg *config.Config, b *bus.MessageBus, registry *commands.Registry, games *game.Manager, chans *channels.Manager) *router.Router {
	return router.New(b, registry, games, chans, router.Config{
		Prefix:        cfg.Bot.Prefix,
		ErrorMessages: cfg.Bot.ErrorMessages,
	})
}

func newPresence(cfg *config.Config, chans *channels.Manager) *presence.Service {
	return presence.NewService(cfg.Bot.Statuses, cfg.Bot.StatusInterval.Std(), chans)
}
