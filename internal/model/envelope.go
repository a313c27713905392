package model

import (
	"encoding/json"
	"fmt"
)

// Inbound is the envelope clients send: {"message": {...}}
type Inbound struct {
	Message *Request `json:"message"`
}

// Request is the body of an inbound envelope
type Request struct {
	Component string          `json:"component"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Packet is an outbound message
type Packet struct {
	Component string `json:"component"`
	Action    string `json:"action"`
	Data      any    `json:"data,omitempty"`
}

// NewPacket creates an outbound packet
func NewPacket(component, action string, data any) Packet {
	return Packet{Component: component, Action: action, Data: data}
}

// DecodeRequest parses raw bytes into a request.
// Payloads that are not JSON objects or lack component/action wrap ErrMalformedEnvelope.
func DecodeRequest(raw []byte) (*Request, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if in.Message == nil {
		return nil, fmt.Errorf("%w: missing message", ErrMalformedEnvelope)
	}
	if in.Message.Component == "" || in.Message.Action == "" {
		return nil, fmt.Errorf("%w: missing component or action", ErrMalformedEnvelope)
	}
	if string(in.Message.Data) == "null" {
		in.Message.Data = nil
	}
	return in.Message, nil
}

// DecodeData unmarshals the request payload into v.
// A request without data wraps ErrMalformedEnvelope.
func (r *Request) DecodeData(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("%w: %s/%s has no data", ErrMalformedEnvelope, r.Component, r.Action)
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("%w: %s/%s data: %v", ErrMalformedEnvelope, r.Component, r.Action, err)
	}
	return nil
}
