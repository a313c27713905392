package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// ClientConfigTTL expires client configs that have not been saved
	// for this long. Zero keeps them forever.
	ClientConfigTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:             "redis://localhost:6379",
		PoolSize:        10,
		MinIdleConns:    2,
		ClientConfigTTL: 30 * 24 * time.Hour,
	}
}
