package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/wsgate/internal/model"
)

// conn is one websocket connection. readPump runs on the serving goroutine,
// writePump on its own.
type conn struct {
	hub         *Hub
	handle      model.SocketHandle
	ws          *websocket.Conn
	ip          string
	send        chan []byte
	connectedAt time.Time
}

func (c *conn) readPump(ctx context.Context, events Events) {
	cfg := c.hub.cfg
	c.ws.SetReadLimit(cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Info("ws connection lost",
					slog.Uint64("socket", uint64(c.handle)),
					slog.Any("error", err))
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		// Events logs its own failures
		_ = events.Read(ctx, c.handle, data)
	}
}

func (c *conn) writePump() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				// Connection removed from the hub
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("ws write failed",
					slog.Uint64("socket", uint64(c.handle)),
					slog.Any("error", err))
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
