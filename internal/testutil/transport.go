package testutil

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/mcoot/wsgate/internal/model"
)

// ErrWriteFailed is returned by Transport for sockets marked as failing
var ErrWriteFailed = errors.New("write failed")

// Transport records writes per socket in memory
type Transport struct {
	mu      sync.Mutex
	writes  map[model.SocketHandle][][]byte
	failing map[model.SocketHandle]bool
}

// NewTransport creates an empty recording transport
func NewTransport() *Transport {
	return &Transport{
		writes:  make(map[model.SocketHandle][][]byte),
		failing: make(map[model.SocketHandle]bool),
	}
}

// Write records data for the socket, or fails if the socket is marked failing
func (t *Transport) Write(handle model.SocketHandle, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing[handle] {
		return ErrWriteFailed
	}
	t.writes[handle] = append(t.writes[handle], append([]byte(nil), data...))
	return nil
}

// Fail makes subsequent writes to the socket return ErrWriteFailed
func (t *Transport) Fail(handle model.SocketHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failing[handle] = true
}

// Writes returns the raw payloads written to a socket
func (t *Transport) Writes(handle model.SocketHandle) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.writes[handle]...)
}

// Packets decodes every payload written to a socket as a packet
func (t *Transport) Packets(tb testing.TB, handle model.SocketHandle) []model.Packet {
	tb.Helper()
	var packets []model.Packet
	for _, raw := range t.Writes(handle) {
		var p model.Packet
		if err := json.Unmarshal(raw, &p); err != nil {
			tb.Fatalf("socket %d received non-packet payload %q: %v", handle, raw, err)
		}
		packets = append(packets, p)
	}
	return packets
}

// Routes returns "component/action" for every packet written to a socket
func (t *Transport) Routes(tb testing.TB, handle model.SocketHandle) []string {
	tb.Helper()
	var routes []string
	for _, p := range t.Packets(tb, handle) {
		routes = append(routes, p.Component+"/"+p.Action)
	}
	return routes
}

// Reset forgets all recorded writes
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = make(map[model.SocketHandle][][]byte)
}
