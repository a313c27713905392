// Package config loads server settings from the environment
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/mcoot/wsgate/internal/api"
	"github.com/mcoot/wsgate/internal/factory"
	"github.com/mcoot/wsgate/internal/services/auth"
	redisstorage "github.com/mcoot/wsgate/internal/storage/redis"
	"github.com/mcoot/wsgate/internal/web/ws"
)

// Config is the server configuration. Every field can be set from the
// environment variable named in its tag.
type Config struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// AdminToken enables the operator endpoints when set
	AdminToken string `env:"ADMIN_TOKEN"`

	StorageType          string        `env:"STORAGE_TYPE,default=memory"`
	RedisURL             string        `env:"REDIS_URL"`
	RedisPoolSize        int           `env:"REDIS_POOL_SIZE,default=10"`
	RedisClientConfigTTL time.Duration `env:"REDIS_CLIENTCONFIG_TTL,default=720h"`

	WSMaxMessageSize int64         `env:"WS_MAX_MESSAGE_SIZE,default=65536"`
	WSSendBuffer     int           `env:"WS_SEND_BUFFER,default=256"`
	WSPongWait       time.Duration `env:"WS_PONG_WAIT,default=60s"`
	WSWriteWait      time.Duration `env:"WS_WRITE_WAIT,default=10s"`
	WSAllowedOrigins []string      `env:"WS_ALLOWED_ORIGINS"`
	WSTrustProxy     bool          `env:"WS_TRUST_FORWARDED_FOR,default=false"`

	AuthTimeout    time.Duration `env:"AUTH_TIMEOUT,default=10s"`
	AuthBcryptCost int           `env:"AUTH_BCRYPT_COST,default=10"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s"`
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that cannot be expressed as defaults
func (c *Config) Validate() error {
	switch c.StorageType {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be 'memory' or 'redis'", c.StorageType)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name such as "debug" into a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}

// Server returns the HTTP server settings
func (c *Config) Server() api.ServerConfig {
	cfg := api.DefaultServerConfig()
	cfg.Host = c.Host
	cfg.Port = c.Port
	cfg.ShutdownTimeout = c.ShutdownTimeout
	return cfg
}

// Factory returns the application wiring settings
func (c *Config) Factory(logger *slog.Logger) factory.Config {
	cfg := factory.Config{
		Logger:      logger,
		StorageType: c.StorageType,
		AuthConfig:  c.Auth(),
		WSConfig:    c.WS(),
	}
	if c.StorageType == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		redisCfg.PoolSize = c.RedisPoolSize
		redisCfg.ClientConfigTTL = c.RedisClientConfigTTL
		cfg.RedisConfig = &redisCfg
	}
	return cfg
}

// Auth returns the authentication settings
func (c *Config) Auth() auth.Config {
	cfg := auth.DefaultConfig()
	cfg.Timeout = c.AuthTimeout
	cfg.BcryptCost = c.AuthBcryptCost
	return cfg
}

// WS returns the websocket transport settings
func (c *Config) WS() ws.Config {
	cfg := ws.DefaultConfig()
	cfg.MaxMessageSize = c.WSMaxMessageSize
	cfg.SendBufferSize = c.WSSendBuffer
	cfg.PongWait = c.WSPongWait
	cfg.WriteWait = c.WSWriteWait
	cfg.PingPeriod = c.WSPongWait * 9 / 10
	cfg.AllowedOrigins = c.WSAllowedOrigins
	cfg.TrustForwardedFor = c.WSTrustProxy
	return cfg
}
