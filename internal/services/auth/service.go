package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/wsgate/internal/dependencies/clock"
	"github.com/mcoot/wsgate/internal/dependencies/idgen"
	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("username must not be empty")
	ErrPasswordTooShort   = errors.New("password too short")
)

// Identity is everything a successful login yields
type Identity struct {
	Account      *model.Account
	Profile      *model.Profile
	ClientConfig *model.ClientConfig
}

// Service verifies credentials against the object store
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     idgen.Generator
	cfg     Config
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, ids idgen.Generator, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	if cfg.DefaultClientName == "" {
		cfg.DefaultClientName = defaults.DefaultClientName
	}
	return &Service{
		storage: storage,
		clock:   clock,
		ids:     ids,
		cfg:     cfg,
	}
}

// Register creates an account with a hashed password and an empty profile
func (s *Service) Register(ctx context.Context, username, password string, roles []string) (*model.Account, error) {
	if username == "" {
		return nil, ErrInvalidUsername
	}
	if len(password) < s.cfg.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	_, err := s.storage.GetAccountByName(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		UUID:         model.UserID(s.ids.NewID()),
		Name:         username,
		PasswordHash: string(hash),
		Roles:        roles,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	if _, err := s.ensureProfile(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Authenticate checks a username and password and resolves the profile and
// client config for the login. The requested client config is reused when it
// belongs to the account; otherwise a new one is created.
func (s *Service) Authenticate(ctx context.Context, username, password string, requested model.ClientID) (*Identity, error) {
	account, err := s.storage.GetAccountByName(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	account.LastLogin = s.clock.Now()
	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}

	profile, err := s.ensureProfile(ctx, account)
	if err != nil {
		return nil, err
	}

	cfg, err := s.resolveClientConfig(ctx, account, requested)
	if err != nil {
		return nil, err
	}

	return &Identity{
		Account:      account,
		Profile:      profile,
		ClientConfig: cfg,
	}, nil
}

func (s *Service) ensureProfile(ctx context.Context, account *model.Account) (*model.Profile, error) {
	profile, err := s.storage.GetProfile(ctx, account.UUID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, model.ErrProfileNotFound) {
		return nil, err
	}

	profile = &model.Profile{
		UUID:        s.ids.NewID(),
		Owner:       account.UUID,
		DisplayName: account.Name,
		Settings:    map[string]string{},
	}
	if err := s.storage.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *Service) resolveClientConfig(ctx context.Context, account *model.Account, requested model.ClientID) (*model.ClientConfig, error) {
	if requested != "" {
		cfg, err := s.storage.GetClientConfig(ctx, requested)
		switch {
		case err == nil && cfg.Owner == account.UUID:
			// Saving again keeps the config from expiring
			if err := s.storage.SaveClientConfig(ctx, cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		case err != nil && !errors.Is(err, model.ErrClientConfigNotFound):
			return nil, err
		}
	}

	cfg := &model.ClientConfig{
		UUID:      model.ClientID(s.ids.NewID()),
		Owner:     account.UUID,
		Name:      s.cfg.DefaultClientName,
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.SaveClientConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
