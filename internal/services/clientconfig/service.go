// Package clientconfig serves the "clientconfig" component
package clientconfig

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/router"
	"github.com/mcoot/wsgate/internal/storage"
)

// Actions
const (
	ActionGet    = "get"
	ActionList   = "list"
	ActionUpdate = "update"
)

// UpdateRequest renames or re-describes the requesting client's config
type UpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ConfigCache keeps the config held by online clients current
type ConfigCache interface {
	UpdateClientConfig(cfg *model.ClientConfig) error
}

// Service handles client config requests. Every action works on configs
// owned by the requesting user only.
type Service struct {
	storage storage.Storage
	cache   ConfigCache
	sender  router.Sender
	logger  *slog.Logger
}

// Ensure Service implements router.Handler
var _ router.Handler = (*Service)(nil)

// New creates a client config Service
func New(storage storage.Storage, cache ConfigCache, sender router.Sender, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		cache:   cache,
		sender:  sender,
		logger:  logger.With(slog.String("component", "clientconfig")),
	}
}

// Handle implements router.Handler
func (s *Service) Handle(ctx context.Context, req *router.Request) error {
	switch req.Action {
	case ActionGet:
		cfg, err := s.current(ctx, req)
		if err != nil {
			return err
		}
		return s.reply(req, ActionGet, cfg.PublicFields())
	case ActionList:
		return s.list(ctx, req)
	case ActionUpdate:
		return s.update(ctx, req)
	default:
		return fmt.Errorf("clientconfig/%s: %w", req.Action, model.ErrUnknownAction)
	}
}

// current loads the config the requesting client logged in with
func (s *Service) current(ctx context.Context, req *router.Request) (*model.ClientConfig, error) {
	cfg, err := s.storage.GetClientConfig(ctx, req.Client.ID)
	if err != nil {
		return nil, err
	}
	if cfg.Owner != req.User.ID {
		return nil, fmt.Errorf("client %s: %w", req.Client.ID, model.ErrClientConfigNotFound)
	}
	return cfg, nil
}

func (s *Service) list(ctx context.Context, req *router.Request) error {
	cfgs, err := s.storage.GetClientConfigsForOwner(ctx, req.User.ID)
	if err != nil {
		return err
	}
	out := make([]map[string]any, 0, len(cfgs))
	for _, cfg := range cfgs {
		out = append(out, cfg.PublicFields())
	}
	return s.reply(req, ActionList, out)
}

func (s *Service) update(ctx context.Context, req *router.Request) error {
	var upd UpdateRequest
	if err := req.Decode(&upd); err != nil {
		return err
	}

	cfg, err := s.current(ctx, req)
	if err != nil {
		return err
	}
	if upd.Name != nil {
		cfg.Name = *upd.Name
	}
	if upd.Description != nil {
		cfg.Description = *upd.Description
	}
	if err := s.storage.SaveClientConfig(ctx, cfg); err != nil {
		return err
	}
	if err := s.cache.UpdateClientConfig(cfg); err != nil {
		s.logger.Warn("client config updated for offline client", slog.String("client_id", string(cfg.UUID)))
	}

	s.logger.Info("client config updated",
		slog.String("client_id", string(cfg.UUID)),
		slog.String("name", cfg.Name))
	return s.reply(req, ActionUpdate, cfg.PublicFields())
}

func (s *Service) reply(req *router.Request, action string, data any) error {
	return s.sender.SendToClient(req.Client.ID, model.NewPacket(router.ComponentConfig, action, data))
}
