package router

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mcoot/wsgate/internal/model"
)

// BroadcastType selects the audience of a broadcast
type BroadcastType string

const (
	// BroadcastUsers reaches every client of every authenticated user
	BroadcastUsers BroadcastType = "users"
	// BroadcastClients reaches every registered client, anonymous ones included
	BroadcastClients BroadcastType = "clients"
	// BroadcastSockets reaches every raw socket, bound to a client or not
	BroadcastSockets BroadcastType = "socks"
)

// ParseBroadcastType validates a broadcast type name
func ParseBroadcastType(s string) (BroadcastType, error) {
	switch t := BroadcastType(s); t {
	case BroadcastUsers, BroadcastClients, BroadcastSockets:
		return t, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownBroadcastType)
	}
}

// encodePacket serialises an outbound packet.
// Byte slices and raw JSON are treated as pre-serialised and sent verbatim.
func encodePacket(packet any) ([]byte, error) {
	switch p := packet.(type) {
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		return json.Marshal(p)
	}
}

// SendToClient delivers a packet to one client
func (r *Router) SendToClient(id model.ClientID, packet any) error {
	data, err := encodePacket(packet)
	if err != nil {
		r.logger.Error("failed to encode packet", slog.Any("error", err))
		return err
	}

	client, err := r.registry.Client(id)
	if err != nil {
		r.logger.Warn("send to unknown client", slog.String("client_id", string(id)))
		return err
	}
	return r.write(client.Socket, data)
}

// SendToUser delivers a packet to every client attached to a user
func (r *Router) SendToUser(id model.UserID, packet any) error {
	data, err := encodePacket(packet)
	if err != nil {
		r.logger.Error("failed to encode packet", slog.Any("error", err))
		return err
	}
	return r.sendUser(id, data)
}

func (r *Router) sendUser(id model.UserID, data []byte) error {
	clientIDs, err := r.sessions.ClientsOf(id)
	if err != nil {
		r.logger.Warn("send to unknown user", slog.String("user_id", string(id)))
		return err
	}

	for _, clientID := range clientIDs {
		client, err := r.registry.Client(clientID)
		if err != nil {
			r.logger.Warn("user references vanished client",
				slog.String("user_id", string(id)),
				slog.String("client_id", string(clientID)))
			continue
		}
		_ = r.write(client.Socket, data)
	}
	return nil
}

// Broadcast delivers a packet to every target of the given type.
// Failures for individual targets are logged and do not stop the fan-out.
func (r *Router) Broadcast(kind BroadcastType, packet any) error {
	data, err := encodePacket(packet)
	if err != nil {
		r.logger.Error("failed to encode broadcast", slog.Any("error", err))
		return err
	}

	switch kind {
	case BroadcastUsers:
		users := r.sessions.UserIDs()
		for _, id := range users {
			_ = r.sendUser(id, data)
		}
		r.logger.Debug("broadcast to users", slog.Int("users", len(users)))

	case BroadcastClients:
		clients := r.registry.Clients()
		for _, c := range clients {
			_ = r.write(c.Socket, data)
		}
		r.logger.Debug("broadcast to clients", slog.Int("clients", len(clients)))

	case BroadcastSockets:
		handles := r.registry.Sockets()
		r.logger.Warn("broadcast to all sockets", slog.Int("sockets", len(handles)))
		for _, h := range handles {
			_ = r.write(h, data)
		}

	default:
		return fmt.Errorf("%q: %w", kind, ErrUnknownBroadcastType)
	}
	return nil
}

func (r *Router) writePacket(handle model.SocketHandle, p model.Packet) error {
	data, err := json.Marshal(p)
	if err != nil {
		r.logger.Error("failed to encode packet",
			slog.String("packet", p.Component+"/"+p.Action),
			slog.Any("error", err))
		return err
	}
	return r.write(handle, data)
}

// write hands data to the transport; failures are logged and returned
func (r *Router) write(handle model.SocketHandle, data []byte) error {
	if err := r.transport.Write(handle, data); err != nil {
		r.logger.Warn("write to socket failed",
			slog.Uint64("socket", uint64(handle)),
			slog.Any("error", err))
		return err
	}
	return nil
}
