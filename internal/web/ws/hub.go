// Package ws is the websocket transport. It assigns every accepted
// connection a socket handle and feeds its lifecycle and messages to Events.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/wsgate/internal/model"
)

// ErrSendBufferFull is returned by Write when a connection is not draining its queue
var ErrSendBufferFull = errors.New("send buffer full")

// Events receives the lifecycle and inbound messages of every connection.
// For one handle, Connect happens before any Read and Disconnect is last.
type Events interface {
	Connect(ctx context.Context, handle model.SocketHandle, ip string) (model.ClientID, error)
	Disconnect(ctx context.Context, handle model.SocketHandle)
	Read(ctx context.Context, handle model.SocketHandle, raw []byte) error
}

// Hub owns all live websocket connections
type Hub struct {
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	nextHandle atomic.Uint64

	mu     sync.RWMutex
	conns  map[model.SocketHandle]*conn
	closed bool
	wg     sync.WaitGroup
}

// NewHub creates a Hub
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	defaults := DefaultConfig()
	if cfg.WriteWait == 0 {
		cfg.WriteWait = defaults.WriteWait
	}
	if cfg.PongWait == 0 {
		cfg.PongWait = defaults.PongWait
	}
	if cfg.PingPeriod == 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.SendBufferSize == 0 {
		cfg.SendBufferSize = defaults.SendBufferSize
	}

	h := &Hub{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "ws")),
		conns:  make(map[model.SocketHandle]*conn),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Handler returns the HTTP handler that upgrades requests and serves them until they close
func (h *Hub) Handler(events Events) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, events)
	})
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, events Events) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &conn{
		hub:         h,
		handle:      model.SocketHandle(h.nextHandle.Add(1)),
		ws:          wsConn,
		ip:          h.clientIP(r),
		send:        make(chan []byte, h.cfg.SendBufferSize),
		connectedAt: time.Now(),
	}

	if !h.add(c) {
		_ = wsConn.Close()
		return
	}
	defer h.wg.Done()

	ctx := r.Context()
	if _, err := events.Connect(ctx, c.handle, c.ip); err != nil {
		h.logger.Error("connection rejected",
			slog.Uint64("socket", uint64(c.handle)),
			slog.Any("error", err))
		h.remove(c)
		_ = wsConn.Close()
		return
	}

	go c.writePump()
	c.readPump(ctx, events)

	h.remove(c)
	events.Disconnect(ctx, c.handle)
	h.logger.Debug("connection closed",
		slog.Uint64("socket", uint64(c.handle)),
		slog.Duration("connection_duration", time.Since(c.connectedAt)))
}

func (h *Hub) add(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[c.handle] = c
	h.wg.Add(1)
	return true
}

// remove forgets a connection and stops its write pump
func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c.handle]; ok {
		delete(h.conns, c.handle)
		close(c.send)
	}
}

// Write queues data for a connection without blocking
func (h *Hub) Write(handle model.SocketHandle, data []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.conns[handle]
	if !ok {
		return model.ErrUnknownSocket
	}
	select {
	case c.send <- data:
		return nil
	default:
		h.logger.Warn("ws message dropped - client buffer full",
			slog.Uint64("socket", uint64(handle)))
		return ErrSendBufferFull
	}
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close sends a going-away close frame to every connection and waits until
// each has been torn down, or ctx is done
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range conns {
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteWait))
		_ = c.ws.Close()
	}
	h.logger.Info("ws hub closing", slog.Int("connections", len(conns)))

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.cfg.AllowedOrigins, r.Header.Get("Origin"))
}

func (h *Hub) clientIP(r *http.Request) string {
	if h.cfg.TrustForwardedFor {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
