package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns sensible defaults for server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host: "",
		Port: 8080,
		// Upgraded websocket connections clear these deadlines
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// ShutdownFunc releases a resource the HTTP server does not track itself,
// such as hijacked websocket connections
type ShutdownFunc func(ctx context.Context) error

// Server wraps the HTTP server with graceful shutdown support
type Server struct {
	server     *http.Server
	logger     *slog.Logger
	config     ServerConfig
	onShutdown []ShutdownFunc
}

// NewServer creates a new API server
func NewServer(handler http.Handler, config ServerConfig, logger *slog.Logger) *Server {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		},
		logger: logger,
		config: config,
	}
}

// OnShutdown registers fn to run, in registration order, before the HTTP server stops
func (s *Server) OnShutdown(fn ShutdownFunc) {
	s.onShutdown = append(s.onShutdown, fn)
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(l)
}

// Serve accepts connections on an existing listener until Shutdown
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("starting HTTP server", slog.String("addr", l.Addr().String()))

	if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	var errs []error
	for _, fn := range s.onShutdown {
		if err := fn(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Addr returns the server's listen address
func (s *Server) Addr() string {
	return s.server.Addr
}
