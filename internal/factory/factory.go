package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/gamelobby/internal/api"
	"github.com/mcoot/gamelobby/internal/api/sse"
	"github.com/mcoot/gamelobby/internal/config"
	"github.com/mcoot/gamelobby/internal/dependencies/clock"
	"github.com/mcoot/gamelobby/internal/dependencies/ids"
	"github.com/mcoot/gamelobby/internal/eventbus"
	"github.com/mcoot/gamelobby/internal/model"
	"github.com/mcoot/gamelobby/internal/services/auth"
	"github.com/mcoot/gamelobby/internal/services/game"
	"github.com/mcoot/gamelobby/internal/services/room"
	"github.com/mcoot/gamelobby/internal/services/user"
	"github.com/mcoot/gamelobby/internal/storage"
	"github.com/mcoot/gamelobby/internal/storage/memory"
	redisstorage "github.com/mcoot/gamelobby/internal/storage/redis"
	"github.com/mcoot/gamelobby/internal/storage/sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage     storage.Storage
	StorageType string

	// External dependencies
	Clock clock.Clock
	IDs   ids.Generator

	// Events
	Bus        *eventbus.Dispatcher
	HubManager *sse.HubManager

	// Services
	AuthService *auth.Service
	UserService *user.Service
	GameService *game.Service
	RoomService *room.Service

	Logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service. A secret is required.
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend, one of the config.Storage*
	// values. If empty, defaults to memory.
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if cfg.AuthConfig.Secret == "" {
		return nil, errors.New("AuthConfig.Secret is required")
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = config.StorageMemory
	}

	var store storage.Storage
	switch storageType {
	case config.StorageMemory:
		store = memory.New()
	case config.StorageRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	case config.StorageSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		sqliteStore, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		store = sqliteStore
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'sqlite'", storageType)
	}

	logger.Info("storage ready", slog.String("type", storageType))

	app := newWithDependencies(store, clock.New(), ids.New(), cfg.AuthConfig, logger)
	app.StorageType = storageType
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, idGen ids.Generator, authCfg auth.Config, logger *slog.Logger) *App {
	bus := eventbus.New(logger)
	hubManager := sse.NewHubManager(logger)
	bus.Subscribe(hubManager)

	return &App{
		Storage:     store,
		StorageType: config.StorageMemory,
		Clock:       clk,
		IDs:         idGen,
		Bus:         bus,
		HubManager:  hubManager,
		AuthService: auth.New(clk, authCfg),
		UserService: user.New(store.Users(), clk, idGen, logger.With(slog.String("service", "user"))),
		GameService: game.New(store.Games(), clk, idGen, logger.With(slog.String("service", "game"))),
		RoomService: room.New(store, bus, clk, idGen, logger.With(slog.String("service", "room"))),
		Logger:      logger,
	}
}

// Router builds the HTTP API for this app
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      a.Logger,
		Verifier:    a.AuthService,
		UserService: a.UserService,
		GameService: a.GameService,
		RoomService: a.RoomService,
		HubManager:  a.HubManager,
		StorageName: a.StorageType,
	})
}

// SweepHubs ends the event streams of rooms that leave storage without a
// room_closed event, e.g. on TTL expiry. It returns when ctx is done.
func (a *App) SweepHubs(ctx context.Context, interval time.Duration) {
	a.HubManager.RunSweeper(ctx, interval, a.roomExists)
}

func (a *App) roomExists(ctx context.Context, id model.RoomID) (bool, error) {
	_, err := a.RoomService.GetRoom(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, model.ErrRoomNotFound):
		return false, nil
	}
	return false, err
}

// Close ends open event streams and releases storage
func (a *App) Close() error {
	a.HubManager.Close()
	return a.Storage.Close()
}
