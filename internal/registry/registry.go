package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/wsgate/internal/dependencies/clock"
	"github.com/mcoot/wsgate/internal/dependencies/idgen"
	"github.com/mcoot/wsgate/internal/model"
)

// Registry owns the mapping from transport handles to sockets and from
// client ids to client records.
//
// Lookups return copies so callers never share records with the registry.
type Registry struct {
	mu      sync.RWMutex
	sockets map[model.SocketHandle]*model.Socket
	clients map[model.ClientID]*model.Client

	ids    idgen.Generator
	clock  clock.Clock
	logger *slog.Logger
}

// New creates an empty Registry
func New(ids idgen.Generator, clk clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		sockets: make(map[model.SocketHandle]*model.Socket),
		clients: make(map[model.ClientID]*model.Client),
		ids:     ids,
		clock:   clk,
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// Register stores a new socket with a fresh anonymous client and returns the client id.
// A handle that is already registered is left untouched.
func (r *Registry) Register(handle model.SocketHandle, ip string) (model.ClientID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sockets[handle]; ok {
		r.logger.Warn("socket connected twice",
			slog.Uint64("socket", uint64(handle)),
			slog.String("ip", ip),
			slog.String("existing_ip", existing.IP))
		return "", fmt.Errorf("socket %d: %w", handle, model.ErrDuplicateConnection)
	}

	id := r.freshID()
	r.sockets[handle] = &model.Socket{Handle: handle, IP: ip, ClientID: id}
	r.clients[id] = &model.Client{
		ID:          id,
		Socket:      handle,
		IP:          ip,
		ConnectedAt: r.clock.Now(),
	}

	r.logger.Debug("client registered",
		slog.Uint64("socket", uint64(handle)),
		slog.String("client_id", string(id)),
		slog.Int("total_clients", len(r.clients)))
	return id, nil
}

// freshID generates an id that is not currently a client key. Caller holds the lock.
func (r *Registry) freshID() model.ClientID {
	for {
		id := model.ClientID(r.ids.NewID())
		if _, taken := r.clients[id]; !taken {
			return id
		}
	}
}

// Unregister removes a socket and its client, returning the removed client.
// The returned client is nil when the socket had lost its client to a newer connection.
func (r *Registry) Unregister(handle model.SocketHandle) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sock, ok := r.sockets[handle]
	if !ok {
		return nil, fmt.Errorf("socket %d: %w", handle, model.ErrUnknownSocket)
	}
	delete(r.sockets, handle)

	client, ok := r.clients[sock.ClientID]
	if !ok || client.Socket != handle {
		return nil, nil
	}
	delete(r.clients, sock.ClientID)

	removed := *client
	return &removed, nil
}

// Rebind re-keys the client bound to handle from oldID to newID in one step.
// If another socket currently holds newID, that socket falls back to a fresh
// anonymous client.
func (r *Registry) Rebind(oldID, newID model.ClientID, client *model.Client, handle model.SocketHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[oldID]; !ok {
		return fmt.Errorf("client %s: %w", oldID, model.ErrUnknownClient)
	}
	sock, ok := r.sockets[handle]
	if !ok || sock.ClientID != oldID {
		return fmt.Errorf("socket %d not bound to client %s: %w", handle, oldID, model.ErrUnknownSocket)
	}

	if previous, ok := r.clients[newID]; ok && previous.Socket != handle {
		attrs := []any{
			slog.String("client_id", string(newID)),
			slog.Uint64("previous_socket", uint64(previous.Socket)),
			slog.Uint64("socket", uint64(handle)),
		}
		if prevSock, ok := r.sockets[previous.Socket]; ok {
			fresh := r.freshID()
			prevSock.ClientID = fresh
			r.clients[fresh] = &model.Client{
				ID:          fresh,
				Socket:      previous.Socket,
				IP:          previous.IP,
				ConnectedAt: previous.ConnectedAt,
			}
			attrs = append(attrs, slog.String("fallback_client_id", string(fresh)))
		}
		r.logger.Warn("client id taken over by newer connection", attrs...)
	}

	updated := *client
	updated.ID = newID
	updated.Socket = handle
	delete(r.clients, oldID)
	r.clients[newID] = &updated
	sock.ClientID = newID
	return nil
}

// Unbind clears the user of a client and returns the user id it was bound to
func (r *Registry) Unbind(id model.ClientID) (model.UserID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[id]
	if !ok {
		return "", fmt.Errorf("client %s: %w", id, model.ErrUnknownClient)
	}
	userID := client.UserID
	client.UserID = ""
	return userID, nil
}

// UpdateClientConfig refreshes the cached config and name of the online client
// the config belongs to
func (r *Registry) UpdateClientConfig(cfg *model.ClientConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[cfg.ClientID()]
	if !ok || client.UserID != cfg.Owner {
		return fmt.Errorf("client %s: %w", cfg.ClientID(), model.ErrUnknownClient)
	}
	updated := *cfg
	client.Config = &updated
	client.Name = cfg.Name
	return nil
}

// ClientForSocket returns the client bound to a socket
func (r *Registry) ClientForSocket(handle model.SocketHandle) (*model.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sock, ok := r.sockets[handle]
	if !ok {
		return nil, fmt.Errorf("socket %d: %w", handle, model.ErrUnknownSocket)
	}
	client, ok := r.clients[sock.ClientID]
	if !ok || client.Socket != handle {
		return nil, fmt.Errorf("socket %d has no client: %w", handle, model.ErrUnknownClient)
	}
	c := *client
	return &c, nil
}

// Client returns the client with the given id
func (r *Registry) Client(id model.ClientID) (*model.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %s: %w", id, model.ErrUnknownClient)
	}
	c := *client
	return &c, nil
}

// Socket returns the socket for a handle
func (r *Registry) Socket(handle model.SocketHandle) (*model.Socket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sock, ok := r.sockets[handle]
	if !ok {
		return nil, fmt.Errorf("socket %d: %w", handle, model.ErrUnknownSocket)
	}
	s := *sock
	return &s, nil
}

// Clients returns a snapshot of all registered clients
func (r *Registry) Clients() []model.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]model.Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, *c)
	}
	return clients
}

// Sockets returns a snapshot of all registered socket handles
func (r *Registry) Sockets() []model.SocketHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]model.SocketHandle, 0, len(r.sockets))
	for h := range r.sockets {
		handles = append(handles, h)
	}
	return handles
}

// Counts returns the number of registered sockets and clients
func (r *Registry) Counts() (sockets, clients int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sockets), len(r.clients)
}
