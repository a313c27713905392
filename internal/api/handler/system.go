package handler

import (
	"cmp"
	"net/http"
	"slices"

	"github.com/mcoot/wsgate/internal/api/response"
	"github.com/mcoot/wsgate/internal/router"
)

// ConnectionCounter reports live transport connections
type ConnectionCounter interface {
	Count() int
}

// SystemHandler serves health and introspection endpoints
type SystemHandler struct {
	router      *router.Router
	connections ConnectionCounter
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(r *router.Router, connections ConnectionCounter) *SystemHandler {
	return &SystemHandler{
		router:      r,
		connections: connections,
	}
}

// Health handles GET /api/v1/health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}

// Stats handles GET /api/v1/stats
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Stats{
		Stats:       h.router.Stats(),
		Connections: h.connections.Count(),
	})
}

// Clients handles GET /api/v1/clients
func (h *SystemHandler) Clients(w http.ResponseWriter, r *http.Request) {
	clients := h.router.Clients()
	out := make([]response.Client, 0, len(clients))
	for i := range clients {
		out = append(out, response.ClientFromModel(&clients[i]))
	}
	slices.SortFunc(out, func(a, b response.Client) int { return cmp.Compare(a.Socket, b.Socket) })
	response.JSON(w, http.StatusOK, out)
}

// Users handles GET /api/v1/users
func (h *SystemHandler) Users(w http.ResponseWriter, r *http.Request) {
	users := h.router.Users()
	out := make([]response.User, 0, len(users))
	for _, u := range users {
		out = append(out, response.UserFromModel(u))
	}
	slices.SortFunc(out, func(a, b response.User) int { return cmp.Compare(a.ID, b.ID) })
	response.JSON(w, http.StatusOK, out)
}
