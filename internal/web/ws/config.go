package ws

import "time"

// Config holds websocket transport settings
type Config struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration
	// Time allowed between pongs before the peer is considered gone
	PongWait time.Duration
	// Time between keepalive pings, must be less than PongWait
	PingPeriod time.Duration
	// Largest inbound message accepted, in bytes
	MaxMessageSize int64
	// Buffer size for outgoing messages per connection
	SendBufferSize int
	// AllowedOrigins restricts the Origin header; empty allows any origin
	AllowedOrigins []string
	// TrustForwardedFor takes the client IP from X-Forwarded-For
	TrustForwardedFor bool
}

// DefaultConfig returns sensible transport defaults
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     30 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBufferSize: 256,
	}
}
