package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/wsgate/internal/dependencies/clock"
	"github.com/mcoot/wsgate/internal/dependencies/idgen"
	"github.com/mcoot/wsgate/internal/registry"
	"github.com/mcoot/wsgate/internal/router"
	"github.com/mcoot/wsgate/internal/services/auth"
	"github.com/mcoot/wsgate/internal/services/clientconfig"
	"github.com/mcoot/wsgate/internal/services/ping"
	"github.com/mcoot/wsgate/internal/services/profile"
	"github.com/mcoot/wsgate/internal/session"
	"github.com/mcoot/wsgate/internal/storage"
	"github.com/mcoot/wsgate/internal/storage/memory"
	redisstorage "github.com/mcoot/wsgate/internal/storage/redis"
	"github.com/mcoot/wsgate/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock
	IDs   idgen.Generator

	// Connection state
	Registry *registry.Registry
	Sessions *session.Table
	Router   *router.Router

	// Transport; nil when the app was built around another router.Transport
	Hub *ws.Hub

	// Services
	AuthService         *auth.Service
	AuthBridge          *auth.Bridge
	ProfileService      *profile.Service
	ClientConfigService *clientconfig.Service
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// WSConfig holds websocket transport settings (optional)
	WSConfig ws.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	authCfg := cfg.AuthConfig
	if authCfg == (auth.Config{}) {
		authCfg = auth.DefaultConfig()
	}

	hub := ws.NewHub(cfg.WSConfig, logger)
	app, err := newWithDependencies(store, clock.New(), idgen.New(), hub, authCfg, logger)
	if err != nil {
		return nil, err
	}
	app.Hub = hub
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, ids idgen.Generator, transport router.Transport, authCfg auth.Config, logger *slog.Logger) (*App, error) {
	reg := registry.New(ids, clk, logger)
	sessions := session.New(logger)

	authService := auth.New(store, clk, ids, authCfg)
	bridge := auth.NewBridge(authService, authCfg, logger)

	rt := router.New(reg, sessions, transport, bridge, logger)

	profileService := profile.New(store, sessions, rt, logger)
	clientConfigService := clientconfig.New(store, reg, rt, logger)

	handlers := map[string]router.Handler{
		router.ComponentProfile: profileService,
		router.ComponentConfig:  clientConfigService,
		ping.Component:          ping.New(rt),
	}
	for component, h := range handlers {
		if err := rt.Register(component, h); err != nil {
			return nil, err
		}
	}
	rt.OnDisconnect(presenceHook(sessions, logger))

	return &App{
		Storage:             store,
		Clock:               clk,
		IDs:                 ids,
		Registry:            reg,
		Sessions:            sessions,
		Router:              rt,
		AuthService:         authService,
		AuthBridge:          bridge,
		ProfileService:      profileService,
		ClientConfigService: clientConfigService,
	}, nil
}

// presenceHook logs when the last client of a user goes away
func presenceHook(sessions *session.Table, logger *slog.Logger) func(context.Context, router.DisconnectEvent) {
	logger = logger.With(slog.String("component", "presence"))
	return func(ctx context.Context, ev router.DisconnectEvent) {
		if ev.UserID == "" {
			return
		}
		clients, err := sessions.ClientsOf(ev.UserID)
		if err == nil && len(clients) == 0 {
			logger.Info("user offline", slog.String("user_id", string(ev.UserID)))
		}
	}
}

// Close stops accepting logins, disconnects every websocket and releases storage
func (a *App) Close(ctx context.Context) error {
	var errs []error
	a.AuthBridge.Close()
	if a.Hub != nil {
		if err := a.Hub.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if closer, ok := a.Storage.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
