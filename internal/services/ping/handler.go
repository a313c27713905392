// Package ping answers liveness probes sent over an authenticated socket
package ping

import (
	"context"
	"fmt"

	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/router"
)

const (
	Component  = "ping"
	ActionPing = "ping"
	ActionPong = "pong"
)

// Handler replies to ping/ping with ping/pong, echoing any data
type Handler struct {
	sender router.Sender
}

// New creates a ping Handler
func New(sender router.Sender) *Handler {
	return &Handler{sender: sender}
}

// Handle implements router.Handler
func (h *Handler) Handle(ctx context.Context, req *router.Request) error {
	if req.Action != ActionPing {
		return fmt.Errorf("ping/%s: %w", req.Action, model.ErrUnknownAction)
	}
	var data any
	if len(req.Data) > 0 {
		data = req.Data
	}
	return h.sender.SendToClient(req.Client.ID, model.NewPacket(Component, ActionPong, data))
}
