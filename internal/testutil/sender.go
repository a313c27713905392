package testutil

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/mcoot/wsgate/internal/model"
)

// Sent is one packet recorded by Sender
type Sent struct {
	ClientID model.ClientID
	UserID   model.UserID
	Packet   any
}

// Sender records packets instead of delivering them
type Sender struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

// SendToClient records a packet for a client
func (s *Sender) SendToClient(id model.ClientID, packet any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Sent{ClientID: id, Packet: packet})
	return s.Err
}

// SendToUser records a packet for a user
func (s *Sender) SendToUser(id model.UserID, packet any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Sent{UserID: id, Packet: packet})
	return s.Err
}

// Sent returns everything recorded so far
func (s *Sender) Sent() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}

// Last returns the most recent packet re-decoded from JSON, failing the test if none was sent
func (s *Sender) Last(tb testing.TB) (Sent, map[string]any) {
	tb.Helper()
	sent := s.Sent()
	if len(sent) == 0 {
		tb.Fatal("no packets sent")
	}
	last := sent[len(sent)-1]
	raw, err := json.Marshal(last.Packet)
	if err != nil {
		tb.Fatalf("encoding packet: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		tb.Fatalf("decoding packet: %v", err)
	}
	return last, decoded
}
