package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/wsgate/internal/api/request"
	"github.com/mcoot/wsgate/internal/api/response"
	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/router"
	"github.com/mcoot/wsgate/internal/services/auth"
)

// AdminHandler serves operator endpoints: account provisioning and pushes
type AdminHandler struct {
	authService *auth.Service
	router      *router.Router
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService *auth.Service, r *router.Router) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		router:      r,
	}
}

// CreateAccount handles POST /api/v1/accounts
func (h *AdminHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	account, err := h.authService.Register(r.Context(), req.Username, req.Password, req.Roles)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AccountFromModel(account))
}

// Broadcast handles POST /api/v1/broadcast
func (h *AdminHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req request.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	kind, err := router.ParseBroadcastType(req.Type)
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := validPacket(req.Packet); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.router.Broadcast(kind, req.Packet); err != nil {
		WriteError(w, err)
		return
	}
	response.Queued(w)
}

// SendToUser handles POST /api/v1/users/{id}/send
func (h *AdminHandler) SendToUser(w http.ResponseWriter, r *http.Request) {
	packet, ok := decodeSend(w, r)
	if !ok {
		return
	}

	id := model.UserID(mux.Vars(r)["id"])
	if err := h.router.SendToUser(id, packet); err != nil {
		WriteError(w, err)
		return
	}
	response.Queued(w)
}

// SendToClient handles POST /api/v1/clients/{id}/send
func (h *AdminHandler) SendToClient(w http.ResponseWriter, r *http.Request) {
	packet, ok := decodeSend(w, r)
	if !ok {
		return
	}

	id := model.ClientID(mux.Vars(r)["id"])
	if err := h.router.SendToClient(id, packet); err != nil {
		WriteError(w, err)
		return
	}
	response.Queued(w)
}

func decodeSend(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	var req request.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return nil, false
	}
	if err := validPacket(req.Packet); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return req.Packet, true
}
