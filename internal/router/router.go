package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/registry"
	"github.com/mcoot/wsgate/internal/session"
)

// Transport delivers bytes to a live socket.
// Write must not block on network I/O; failures surface later as a disconnect.
type Transport interface {
	Write(handle model.SocketHandle, data []byte) error
}

// Authenticator verifies credentials out of band and reports the outcome to the receiver
type Authenticator interface {
	RequestAuthentication(ctx context.Context, req model.AuthRequest, to GrantReceiver) error
}

// GrantReceiver accepts the outcome of an authentication request
type GrantReceiver interface {
	Grant(ctx context.Context, grant *model.Grant)
	Deny(ctx context.Context, denial *model.Denial)
}

// Sender delivers packets to clients and users
type Sender interface {
	SendToClient(id model.ClientID, packet any) error
	SendToUser(id model.UserID, packet any) error
}

// Request is an inbound request from an authenticated client
type Request struct {
	Component string
	Action    string
	Data      json.RawMessage
	User      *model.User
	Client    *model.Client
}

// Decode unmarshals the request data into v
func (r *Request) Decode(v any) error {
	req := model.Request{Component: r.Component, Action: r.Action, Data: r.Data}
	return req.DecodeData(v)
}

// Handler serves requests for one component
type Handler interface {
	Handle(ctx context.Context, req *Request) error
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, req *Request) error

// Handle calls f(ctx, req)
func (f HandlerFunc) Handle(ctx context.Context, req *Request) error {
	return f(ctx, req)
}

// DisconnectEvent describes a client that went away
type DisconnectEvent struct {
	Socket   model.SocketHandle
	ClientID model.ClientID
	UserID   model.UserID
}

// ConnState is the protocol state of a socket
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnected
	StateAuthenticating
	StateAuthenticated
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "disconnected"
	}
}

// Component and action names handled by the router itself
const (
	ComponentAuth       = "auth"
	ComponentConnection = "connection"
	ComponentProfile    = "profile"
	ComponentConfig     = "clientconfig"

	ActionLogin     = "login"
	ActionLogout    = "logout"
	ActionFail      = "fail"
	ActionGet       = "get"
	ActionConnected = "connected"
)

// Errors
var (
	ErrReservedComponent    = errors.New("component name is reserved")
	ErrDuplicateHandler     = errors.New("component handler already registered")
	ErrUnknownBroadcastType = errors.New("unknown broadcast type")
)

// Router is the single point of mutation for the connection registry and
// session table. It decodes inbound envelopes, runs the authentication
// sub-protocol and routes outbound packets.
type Router struct {
	registry      *registry.Registry
	sessions      *session.Table
	transport     Transport
	authenticator Authenticator
	logger        *slog.Logger

	// mu serialises state transitions: connect, disconnect, logout and grant
	mu sync.Mutex
	// pending holds sockets with an outstanding login request
	pending map[model.SocketHandle]model.ClientID

	handlersMu   sync.RWMutex
	handlers     map[string]Handler
	onDisconnect []func(context.Context, DisconnectEvent)
}

// Ensure Router implements the collaborator interfaces
var (
	_ GrantReceiver = (*Router)(nil)
	_ Sender        = (*Router)(nil)
)

// New creates a Router
func New(reg *registry.Registry, sessions *session.Table, transport Transport, auth Authenticator, logger *slog.Logger) *Router {
	return &Router{
		registry:      reg,
		sessions:      sessions,
		transport:     transport,
		authenticator: auth,
		logger:        logger.With(slog.String("component", "router")),
		pending:       make(map[model.SocketHandle]model.ClientID),
		handlers:      make(map[string]Handler),
	}
}

// Register installs the handler for a component. Intended for startup wiring.
func (r *Router) Register(component string, h Handler) error {
	if component == "" || component == ComponentAuth {
		return fmt.Errorf("%q: %w", component, ErrReservedComponent)
	}

	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	if _, ok := r.handlers[component]; ok {
		return fmt.Errorf("%q: %w", component, ErrDuplicateHandler)
	}
	r.handlers[component] = h
	return nil
}

// OnDisconnect adds a hook that runs after a client has been torn down
func (r *Router) OnDisconnect(fn func(context.Context, DisconnectEvent)) {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	r.onDisconnect = append(r.onDisconnect, fn)
}

// Connect registers a new socket and acknowledges it with the generated client id
func (r *Router) Connect(ctx context.Context, handle model.SocketHandle, ip string) (model.ClientID, error) {
	r.mu.Lock()
	id, err := r.registry.Register(handle, ip)
	r.mu.Unlock()
	if err != nil {
		return "", err
	}

	r.logger.Info("client connected",
		slog.Uint64("socket", uint64(handle)),
		slog.String("client_id", string(id)),
		slog.String("ip", ip))

	ack := model.NewPacket(ComponentConnection, ActionConnected, map[string]any{"clientuuid": string(id)})
	_ = r.writePacket(handle, ack)
	return id, nil
}

// Disconnect tears down a socket, its client and the client's session attachment
func (r *Router) Disconnect(ctx context.Context, handle model.SocketHandle) {
	r.mu.Lock()
	delete(r.pending, handle)
	client, err := r.registry.Unregister(handle)
	if err != nil {
		r.mu.Unlock()
		r.logger.Debug("disconnect for unknown socket", slog.Uint64("socket", uint64(handle)))
		return
	}
	if client != nil && client.Authenticated() {
		_ = r.sessions.Detach(client.UserID, client.ID)
	}
	r.mu.Unlock()

	if client == nil {
		r.logger.Info("orphaned socket disconnected", slog.Uint64("socket", uint64(handle)))
		return
	}

	r.logger.Info("client disconnected",
		slog.Uint64("socket", uint64(handle)),
		slog.String("client_id", string(client.ID)),
		slog.String("user_id", string(client.UserID)))

	event := DisconnectEvent{Socket: handle, ClientID: client.ID, UserID: client.UserID}
	r.handlersMu.RLock()
	hooks := r.onDisconnect
	r.handlersMu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, event)
	}
}

// Read processes one inbound payload from a socket.
// Every error is logged here; the returned error only describes why the
// message was dropped.
func (r *Router) Read(ctx context.Context, handle model.SocketHandle, raw []byte) error {
	client, err := r.registry.ClientForSocket(handle)
	if err != nil {
		r.logger.Error("read from unresolvable socket",
			slog.Uint64("socket", uint64(handle)),
			slog.Any("error", err))
		return err
	}

	req, err := model.DecodeRequest(raw)
	if err != nil {
		r.logger.Warn("dropping malformed message",
			slog.String("client_id", string(client.ID)),
			slog.Int("size", len(raw)),
			slog.Any("error", err))
		return err
	}

	if req.Component == ComponentAuth {
		return r.handleAuth(ctx, handle, client, req)
	}
	return r.dispatch(ctx, client, req)
}

// State reports the protocol state of a socket
func (r *Router) State(handle model.SocketHandle) ConnState {
	r.mu.Lock()
	_, authenticating := r.pending[handle]
	r.mu.Unlock()

	client, err := r.registry.ClientForSocket(handle)
	switch {
	case err != nil:
		if _, sockErr := r.registry.Socket(handle); sockErr == nil {
			return StateConnected
		}
		return StateDisconnected
	case authenticating:
		return StateAuthenticating
	case client.Authenticated():
		return StateAuthenticated
	default:
		return StateConnected
	}
}

// Stats is a point in time view of router state
type Stats struct {
	Sockets       int `json:"sockets"`
	Clients       int `json:"clients"`
	Users         int `json:"users"`
	PendingLogins int `json:"pending_logins"`
	Components    int `json:"components"`
}

// Stats returns current counts
func (r *Router) Stats() Stats {
	sockets, clients := r.registry.Counts()
	r.mu.Lock()
	pending := len(r.pending)
	r.mu.Unlock()
	r.handlersMu.RLock()
	components := len(r.handlers)
	r.handlersMu.RUnlock()

	return Stats{
		Sockets:       sockets,
		Clients:       clients,
		Users:         r.sessions.Len(),
		PendingLogins: pending,
		Components:    components,
	}
}

// Clients returns a snapshot of every registered client
func (r *Router) Clients() []model.Client {
	return r.registry.Clients()
}

// Users returns a snapshot of every user with at least one session entry
func (r *Router) Users() []*model.User {
	ids := r.sessions.UserIDs()
	users := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, err := r.sessions.User(id); err == nil {
			users = append(users, u)
		}
	}
	return users
}
