package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Config is the server configuration, read from LOBBY_* environment variables
type Config struct {
	Addr            string        `env:"LOBBY_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"LOBBY_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"LOBBY_LOG_LEVEL" envDefault:"info"`

	// How often event streams are checked for rooms that left storage
	HubSweepInterval time.Duration `env:"LOBBY_HUB_SWEEP_INTERVAL" envDefault:"30s"`

	Storage StorageConfig
	Auth    AuthConfig
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Type string `env:"LOBBY_STORAGE" envDefault:"memory"`

	RedisURL string        `env:"LOBBY_REDIS_URL" envDefault:"redis://localhost:6379"`
	RoomTTL  time.Duration `env:"LOBBY_ROOM_TTL" envDefault:"24h"`

	SQLitePath string `env:"LOBBY_SQLITE_PATH" envDefault:"gamelobby.db"`
}

// AuthConfig configures principal token verification
type AuthConfig struct {
	JWTSecret     string        `env:"LOBBY_JWT_SECRET"`
	Issuer        string        `env:"LOBBY_JWT_ISSUER" envDefault:"gamelobby"`
	TokenDuration time.Duration `env:"LOBBY_TOKEN_DURATION" envDefault:"24h"`
}

// Load parses the environment and validates the result
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first unusable setting
func (c Config) Validate() error {
	switch c.Storage.Type {
	case StorageMemory, StorageRedis, StorageSQLite:
	default:
		return fmt.Errorf("LOBBY_STORAGE must be one of memory, redis, sqlite, got %q", c.Storage.Type)
	}
	if c.Storage.Type == StorageRedis && c.Storage.RedisURL == "" {
		return fmt.Errorf("LOBBY_REDIS_URL is required when LOBBY_STORAGE=redis")
	}
	if c.Storage.Type == StorageSQLite && c.Storage.SQLitePath == "" {
		return fmt.Errorf("LOBBY_SQLITE_PATH is required when LOBBY_STORAGE=sqlite")
	}
	if c.HubSweepInterval <= 0 {
		return fmt.Errorf("LOBBY_HUB_SWEEP_INTERVAL must be positive")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("LOBBY_JWT_SECRET must be at least 16 characters")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("LOBBY_LOG_LEVEL: %w", err)
	}
	return level, nil
}
