// Package profile serves the "profile" component: reading and editing the
// profile of the logged in user.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/router"
	"github.com/mcoot/wsgate/internal/storage"
)

// Actions
const (
	ActionGet    = "get"
	ActionUpdate = "update"
)

// ProfileCache keeps the profile of online users current
type ProfileCache interface {
	UpdateProfile(userID model.UserID, profile *model.Profile) error
}

// UpdateRequest changes the profile. Settings with an empty value are removed.
type UpdateRequest struct {
	DisplayName *string           `json:"displayname"`
	Settings    map[string]string `json:"settings"`
}

// Service handles profile requests
type Service struct {
	storage storage.Storage
	cache   ProfileCache
	sender  router.Sender
	logger  *slog.Logger
}

// Ensure Service implements router.Handler
var _ router.Handler = (*Service)(nil)

// New creates a profile Service
func New(storage storage.Storage, cache ProfileCache, sender router.Sender, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		cache:   cache,
		sender:  sender,
		logger:  logger.With(slog.String("component", "profile")),
	}
}

// Handle implements router.Handler
func (s *Service) Handle(ctx context.Context, req *router.Request) error {
	switch req.Action {
	case ActionGet:
		return s.get(ctx, req)
	case ActionUpdate:
		return s.update(ctx, req)
	default:
		return fmt.Errorf("profile/%s: %w", req.Action, model.ErrUnknownAction)
	}
}

func (s *Service) get(ctx context.Context, req *router.Request) error {
	profile, err := s.storage.GetProfile(ctx, req.User.ID)
	if err != nil {
		return err
	}
	return s.sender.SendToClient(req.Client.ID, model.NewPacket(router.ComponentProfile, ActionGet, profile.PublicFields()))
}

// update persists the change and pushes the new profile to every client of the user
func (s *Service) update(ctx context.Context, req *router.Request) error {
	var upd UpdateRequest
	if err := req.Decode(&upd); err != nil {
		return err
	}

	profile, err := s.storage.GetProfile(ctx, req.User.ID)
	if err != nil {
		return err
	}

	if upd.DisplayName != nil {
		profile.DisplayName = *upd.DisplayName
	}
	if len(upd.Settings) > 0 {
		if profile.Settings == nil {
			profile.Settings = make(map[string]string, len(upd.Settings))
		}
		maps.Copy(profile.Settings, upd.Settings)
		maps.DeleteFunc(profile.Settings, func(_, v string) bool { return v == "" })
	}

	if err := s.storage.SaveProfile(ctx, profile); err != nil {
		return err
	}
	if err := s.cache.UpdateProfile(req.User.ID, profile); err != nil {
		s.logger.Warn("profile updated for offline user", slog.String("user_id", string(req.User.ID)))
	}

	s.logger.Info("profile updated",
		slog.String("user_id", string(req.User.ID)),
		slog.String("client_id", string(req.Client.ID)))
	return s.sender.SendToUser(req.User.ID, model.NewPacket(router.ComponentProfile, ActionUpdate, profile.PublicFields()))
}
