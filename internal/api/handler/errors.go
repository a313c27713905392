package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/wsgate/internal/api/apierr"
	"github.com/mcoot/wsgate/internal/model"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// validPacket checks that raw is an outbound packet with a component and action
func validPacket(raw json.RawMessage) error {
	if len(raw) == 0 {
		return NewInvalidRequestError("packet is required")
	}
	var p model.Packet
	if err := json.Unmarshal(raw, &p); err != nil {
		return NewInvalidRequestError("packet must be a JSON object")
	}
	if p.Component == "" || p.Action == "" {
		return NewInvalidRequestError("packet requires component and action")
	}
	return nil
}
