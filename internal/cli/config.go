package cli

import (
	"os"
	"time"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Token     string
	Output    string
	Timeout   time.Duration
	Verbose   bool
}

// DefaultConfig returns a Config with values taken from the environment
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("WSCTL_SERVER", "http://localhost:8080"),
		Token:     os.Getenv("WSCTL_TOKEN"),
		Output:    "text",
		Timeout:   30 * time.Second,
		Verbose:   false,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
