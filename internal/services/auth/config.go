package auth

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds configuration for the auth service and bridge
type Config struct {
	BcryptCost        int
	MinPasswordLength int
	// DefaultClientName names client configs created on first login from a device
	DefaultClientName string
	// Timeout bounds one asynchronous authentication attempt
	Timeout time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		BcryptCost:        bcrypt.DefaultCost,
		MinPasswordLength: 8,
		DefaultClientName: "client",
		Timeout:           10 * time.Second,
	}
}
