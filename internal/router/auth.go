package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/wsgate/internal/model"
)

type loginData struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	ClientUUID string `json:"clientuuid"`
}

// handleAuth runs the login/logout sub-protocol, regardless of authentication state
func (r *Router) handleAuth(ctx context.Context, handle model.SocketHandle, client *model.Client, req *model.Request) error {
	switch req.Action {
	case ActionLogin:
		return r.login(ctx, handle, client, req)
	case ActionLogout:
		return r.logout(handle)
	default:
		r.logger.Warn("unknown auth action",
			slog.String("client_id", string(client.ID)),
			slog.String("action", req.Action))
		return fmt.Errorf("%w: auth action %q", model.ErrMalformedEnvelope, req.Action)
	}
}

func (r *Router) login(ctx context.Context, handle model.SocketHandle, client *model.Client, req *model.Request) error {
	var data loginData
	if err := req.DecodeData(&data); err != nil {
		r.logger.Warn("malformed login request",
			slog.String("client_id", string(client.ID)),
			slog.Any("error", err))
		return err
	}
	if data.Username == "" || data.Password == "" || data.ClientUUID == "" {
		r.logger.Warn("incomplete login request", slog.String("client_id", string(client.ID)))
		return fmt.Errorf("%w: login requires username, password and clientuuid", model.ErrMalformedEnvelope)
	}

	r.mu.Lock()
	r.pending[handle] = client.ID
	r.mu.Unlock()

	r.logger.Info("login requested",
		slog.String("client_id", string(client.ID)),
		slog.String("username", data.Username))

	authReq := model.AuthRequest{
		Username:          data.Username,
		Password:          data.Password,
		ClientID:          client.ID,
		RequestedClientID: model.ClientID(data.ClientUUID),
		Socket:            handle,
	}
	if err := r.authenticator.RequestAuthentication(ctx, authReq, r); err != nil {
		r.mu.Lock()
		delete(r.pending, handle)
		r.mu.Unlock()
		r.logger.Error("authentication request failed",
			slog.String("client_id", string(client.ID)),
			slog.Any("error", err))
		return err
	}
	return nil
}

// logout unbinds the socket's client from its user. The client keeps its id.
func (r *Router) logout(handle model.SocketHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, err := r.registry.ClientForSocket(handle)
	if err != nil {
		return err
	}
	if !client.Authenticated() {
		r.logger.Debug("logout from anonymous client", slog.String("client_id", string(client.ID)))
		return nil
	}

	userID, err := r.registry.Unbind(client.ID)
	if err != nil {
		return err
	}
	_ = r.sessions.Detach(userID, client.ID)

	r.logger.Info("client logged out",
		slog.String("client_id", string(client.ID)),
		slog.String("user_id", string(userID)))
	return nil
}

// Grant promotes the originating client to the granted user and sends it the
// account, profile and client configuration, in that order.
// A grant whose socket disconnected or was re-bound meanwhile is abandoned.
func (r *Router) Grant(ctx context.Context, grant *model.Grant) {
	if grant == nil || grant.Account == nil || grant.ClientConfig == nil {
		r.logger.Error("incomplete authentication grant")
		return
	}
	newID := grant.ClientConfig.ClientID()
	log := r.logger.With(
		slog.Uint64("socket", uint64(grant.Socket)),
		slog.String("user_id", string(grant.UserID)),
		slog.String("client_id", string(newID)))

	r.mu.Lock()
	delete(r.pending, grant.Socket)

	sock, err := r.registry.Socket(grant.Socket)
	if err != nil || sock.ClientID != grant.OriginatingClientID {
		r.mu.Unlock()
		log.Warn("abandoning grant for vanished connection",
			slog.String("originating_client_id", string(grant.OriginatingClientID)))
		return
	}
	current, err := r.registry.Client(grant.OriginatingClientID)
	if err != nil {
		r.mu.Unlock()
		log.Error("originating client missing", slog.Any("error", err))
		return
	}

	// The client leaves its old session entry unless it logs in again under the same id
	if current.Authenticated() && (current.UserID != grant.UserID || current.ID != newID) {
		_ = r.sessions.Detach(current.UserID, current.ID)
	}

	var displaced *model.Client
	if holder, err := r.registry.Client(newID); err == nil && holder.Socket != grant.Socket {
		displaced = holder
	}

	_, added := r.sessions.Attach(grant.UserID, grant.Account, grant.Profile, newID)
	if !added && displaced == nil {
		log.Error("client already logged in")
	}

	promoted := &model.Client{
		ID:          newID,
		Socket:      grant.Socket,
		IP:          sock.IP,
		UserID:      grant.UserID,
		Name:        grant.ClientConfig.Name,
		Config:      grant.ClientConfig,
		ConnectedAt: current.ConnectedAt,
	}
	if err := r.registry.Rebind(grant.OriginatingClientID, newID, promoted, grant.Socket); err != nil {
		if added {
			_ = r.sessions.Detach(grant.UserID, newID)
		}
		r.mu.Unlock()
		log.Error("failed to rebind client", slog.Any("error", err))
		return
	}
	var fallback *model.Client
	if displaced != nil {
		fallback, _ = r.registry.ClientForSocket(displaced.Socket)
	}
	r.mu.Unlock()

	// The older socket continues as an anonymous client under a fresh id
	if fallback != nil {
		ack := model.NewPacket(ComponentConnection, ActionConnected, map[string]any{"clientuuid": string(fallback.ID)})
		_ = r.writePacket(fallback.Socket, ack)
	}

	log.Info("client authenticated",
		slog.String("originating_client_id", string(grant.OriginatingClientID)))

	packets := []model.Packet{
		model.NewPacket(ComponentAuth, ActionLogin, grant.Account.PublicFields()),
		model.NewPacket(ComponentProfile, ActionGet, profileFields(grant.Profile)),
		model.NewPacket(ComponentConfig, ActionGet, grant.ClientConfig.PublicFields()),
	}
	for _, p := range packets {
		if err := r.writePacket(grant.Socket, p); err != nil {
			log.Warn("partial login delivery",
				slog.String("packet", p.Component+"/"+p.Action))
		}
	}
}

// Deny tells the originating client that its login failed
func (r *Router) Deny(ctx context.Context, denial *model.Denial) {
	if denial == nil {
		return
	}

	r.mu.Lock()
	delete(r.pending, denial.Socket)
	r.mu.Unlock()

	sock, err := r.registry.Socket(denial.Socket)
	if err != nil || sock.ClientID != denial.OriginatingClientID {
		r.logger.Debug("denial for vanished connection",
			slog.Uint64("socket", uint64(denial.Socket)),
			slog.String("client_id", string(denial.OriginatingClientID)))
		return
	}

	r.logger.Info("login denied",
		slog.String("client_id", string(denial.OriginatingClientID)),
		slog.String("reason", denial.Reason))
	_ = r.writePacket(denial.Socket, model.NewPacket(ComponentAuth, ActionFail, map[string]any{"reason": denial.Reason}))
}

func profileFields(p *model.Profile) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p.PublicFields()
}
