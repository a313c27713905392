package request

import "encoding/json"

// CreateAccountRequest is the request body for provisioning an account
type CreateAccountRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Roles    []string `json:"roles,omitempty"`
}

// BroadcastRequest is the request body for a broadcast
type BroadcastRequest struct {
	Type   string          `json:"type"`
	Packet json.RawMessage `json:"packet"`
}

// SendRequest is the request body for sending to one user or client
type SendRequest struct {
	Packet json.RawMessage `json:"packet"`
}
