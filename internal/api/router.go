package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/wsgate/internal/api/handler"
	"github.com/mcoot/wsgate/internal/api/middleware"
	commonmw "github.com/mcoot/wsgate/internal/middleware"
	"github.com/mcoot/wsgate/internal/router"
	"github.com/mcoot/wsgate/internal/services/auth"
	"github.com/mcoot/wsgate/internal/web/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Router      *router.Router
	Hub         *ws.Hub
	AuthService *auth.Service
	AdminToken  string
}

// NewRouter creates the HTTP handler: the JSON API under /api/v1 and the
// websocket endpoint at /ws
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	systemHandler := handler.NewSystemHandler(cfg.Router, cfg.Hub)
	adminHandler := handler.NewAdminHandler(cfg.AuthService, cfg.Router)

	// Create middleware
	adminMiddleware := middleware.AdminToken(cfg.AdminToken)
	loggingMiddleware := commonmw.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Public routes
	api.HandleFunc("/health", systemHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/stats", systemHandler.Stats).Methods(http.MethodGet)

	// Operator routes
	admin := api.NewRoute().Subrouter()
	admin.Use(adminMiddleware)
	admin.HandleFunc("/clients", systemHandler.Clients).Methods(http.MethodGet)
	admin.HandleFunc("/users", systemHandler.Users).Methods(http.MethodGet)
	admin.HandleFunc("/accounts", adminHandler.CreateAccount).Methods(http.MethodPost)
	admin.HandleFunc("/broadcast", adminHandler.Broadcast).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}/send", adminHandler.SendToUser).Methods(http.MethodPost)
	admin.HandleFunc("/clients/{id}/send", adminHandler.SendToClient).Methods(http.MethodPost)

	// Websocket endpoint; the recovery handler must not write JSON after a hijack
	wsHandler := commonmw.Recovery(cfg.Logger, commonmw.PlainPanicHandler)(
		loggingMiddleware(cfg.Hub.Handler(cfg.Router)))
	r.Handle("/ws", wsHandler).Methods(http.MethodGet)

	return r
}
