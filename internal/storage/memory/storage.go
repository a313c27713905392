package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Objects are copied on the way in and out.
type Storage struct {
	mu sync.RWMutex

	accounts      map[model.UserID]*model.Account
	nameIndex     map[string]model.UserID
	profiles      map[model.UserID]*model.Profile
	clientConfigs map[model.ClientID]*model.ClientConfig
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts:      make(map[model.UserID]*model.Account),
		nameIndex:     make(map[string]model.UserID),
		profiles:      make(map[model.UserID]*model.Profile),
		clientConfigs: make(map[model.ClientID]*model.ClientConfig),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.accounts[account.UUID]; ok && old.Name != account.Name {
		delete(s.nameIndex, old.Name)
	}
	a := *account
	a.Roles = slices.Clone(account.Roles)
	s.accounts[account.UUID] = &a
	s.nameIndex[account.Name] = account.UUID
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.UserID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	a := *account
	a.Roles = slices.Clone(account.Roles)
	return &a, nil
}

func (s *Storage) GetAccountByName(ctx context.Context, name string) (*model.Account, error) {
	s.mu.RLock()
	id, ok := s.nameIndex[name]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return s.GetAccount(ctx, id)
}

func (s *Storage) DeleteAccount(ctx context.Context, id model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[id]; ok {
		delete(s.nameIndex, account.Name)
	}
	delete(s.accounts, id)
	return nil
}

// Profile operations

func (s *Storage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.Owner] = copyProfile(profile)
	return nil
}

func (s *Storage) GetProfile(ctx context.Context, owner model.UserID) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[owner]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	return copyProfile(profile), nil
}

func (s *Storage) DeleteProfile(ctx context.Context, owner model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, owner)
	return nil
}

func copyProfile(p *model.Profile) *model.Profile {
	c := *p
	if p.Settings != nil {
		c.Settings = make(map[string]string, len(p.Settings))
		for k, v := range p.Settings {
			c.Settings[k] = v
		}
	}
	return &c
}

// Client config operations

func (s *Storage) SaveClientConfig(ctx context.Context, cfg *model.ClientConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cfg
	s.clientConfigs[cfg.UUID] = &c
	return nil
}

func (s *Storage) GetClientConfig(ctx context.Context, id model.ClientID) (*model.ClientConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.clientConfigs[id]
	if !ok {
		return nil, model.ErrClientConfigNotFound
	}
	c := *cfg
	return &c, nil
}

func (s *Storage) GetClientConfigsForOwner(ctx context.Context, owner model.UserID) ([]*model.ClientConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfgs := []*model.ClientConfig{}
	for _, cfg := range s.clientConfigs {
		if cfg.Owner == owner {
			c := *cfg
			cfgs = append(cfgs, &c)
		}
	}
	storage.SortClientConfigs(cfgs)
	return cfgs, nil
}

func (s *Storage) DeleteClientConfig(ctx context.Context, id model.ClientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clientConfigs, id)
	return nil
}
