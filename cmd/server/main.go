package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/wsgate/internal/api"
	"github.com/mcoot/wsgate/internal/config"
	"github.com/mcoot/wsgate/internal/factory"
)

func main() {
	// Bootstrap logger until the configured level is known
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Create application factory
	app, err := factory.New(cfg.Factory(logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, operator endpoints are disabled")
	}

	handler := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Router:      app.Router,
		Hub:         app.Hub,
		AuthService: app.AuthService,
		AdminToken:  cfg.AdminToken,
	})

	server := api.NewServer(handler, cfg.Server(), logger)
	// Hijacked websocket connections are invisible to http.Server.Shutdown
	server.OnShutdown(app.Hub.Close)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
	)

	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := app.Close(closeCtx); err != nil {
		logger.Error("failed to release resources", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("server stopped")
	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}
}
