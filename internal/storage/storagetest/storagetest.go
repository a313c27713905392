// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/storage"
)

// Suite exercises a storage backend. NewStorage is called before every test.
type Suite struct {
	suite.Suite
	NewStorage func(t *testing.T) storage.Storage

	storage storage.Storage
	ctx     context.Context
}

// Run runs the suite against the backend built by newStorage
func Run(t *testing.T, newStorage func(t *testing.T) storage.Storage) {
	suite.Run(t, &Suite{NewStorage: newStorage})
}

func (s *Suite) SetupTest() {
	s.storage = s.NewStorage(s.T())
	s.ctx = context.Background()
}

// Account tests

func (s *Suite) TestSaveAndGetAccount() {
	account := &model.Account{
		UUID:         "U1",
		Name:         "alice",
		PasswordHash: "hash",
		Roles:        []string{"admin"},
		CreatedAt:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.storage.SaveAccount(s.ctx, account))

	byID, err := s.storage.GetAccount(s.ctx, "U1")
	s.Require().NoError(err)
	s.Equal(account.Name, byID.Name)
	s.Equal(account.PasswordHash, byID.PasswordHash)
	s.Equal(account.Roles, byID.Roles)
	s.True(account.CreatedAt.Equal(byID.CreatedAt))

	byName, err := s.storage.GetAccountByName(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.UserID("U1"), byName.UUID)
}

func (s *Suite) TestGetAccountNotFound() {
	_, err := s.storage.GetAccount(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrAccountNotFound)
	_, err = s.storage.GetAccountByName(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestRenameAccountMovesIndex() {
	s.Require().NoError(s.storage.SaveAccount(s.ctx, &model.Account{UUID: "U1", Name: "alice"}))
	s.Require().NoError(s.storage.SaveAccount(s.ctx, &model.Account{UUID: "U1", Name: "alicia"}))

	_, err := s.storage.GetAccountByName(s.ctx, "alice")
	s.ErrorIs(err, model.ErrAccountNotFound)
	account, err := s.storage.GetAccountByName(s.ctx, "alicia")
	s.Require().NoError(err)
	s.Equal(model.UserID("U1"), account.UUID)
}

func (s *Suite) TestDeleteAccount() {
	s.Require().NoError(s.storage.SaveAccount(s.ctx, &model.Account{UUID: "U1", Name: "alice"}))

	s.Require().NoError(s.storage.DeleteAccount(s.ctx, "U1"))

	_, err := s.storage.GetAccount(s.ctx, "U1")
	s.ErrorIs(err, model.ErrAccountNotFound)
	_, err = s.storage.GetAccountByName(s.ctx, "alice")
	s.ErrorIs(err, model.ErrAccountNotFound)

	// Deleting twice is fine
	s.NoError(s.storage.DeleteAccount(s.ctx, "U1"))
}

// Profile tests

func (s *Suite) TestSaveAndGetProfile() {
	profile := &model.Profile{
		UUID:        "P1",
		Owner:       "U1",
		DisplayName: "Alice",
		Settings:    map[string]string{"theme": "dark"},
	}
	s.Require().NoError(s.storage.SaveProfile(s.ctx, profile))

	got, err := s.storage.GetProfile(s.ctx, "U1")
	s.Require().NoError(err)
	s.Equal(profile, got)

	// Returned objects are independent of the stored one
	got.Settings["theme"] = "light"
	again, err := s.storage.GetProfile(s.ctx, "U1")
	s.Require().NoError(err)
	s.Equal("dark", again.Settings["theme"])
}

func (s *Suite) TestDeleteProfile() {
	s.Require().NoError(s.storage.SaveProfile(s.ctx, &model.Profile{UUID: "P1", Owner: "U1"}))
	s.Require().NoError(s.storage.DeleteProfile(s.ctx, "U1"))

	_, err := s.storage.GetProfile(s.ctx, "U1")
	s.ErrorIs(err, model.ErrProfileNotFound)
}

// Client config tests

func (s *Suite) TestSaveAndGetClientConfig() {
	cfg := &model.ClientConfig{
		UUID:        "CFG1",
		Owner:       "U1",
		Name:        "laptop",
		Description: "work laptop",
		CreatedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.storage.SaveClientConfig(s.ctx, cfg))

	got, err := s.storage.GetClientConfig(s.ctx, "CFG1")
	s.Require().NoError(err)
	s.Equal(cfg.Name, got.Name)
	s.Equal(cfg.Owner, got.Owner)
	s.Equal(cfg.Description, got.Description)
}

func (s *Suite) TestGetClientConfigNotFound() {
	_, err := s.storage.GetClientConfig(s.ctx, "missing")
	s.ErrorIs(err, model.ErrClientConfigNotFound)
}

func (s *Suite) TestGetClientConfigsForOwner() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for _, cfg := range []*model.ClientConfig{
		{UUID: "CFG2", Owner: "U1", Name: "phone", CreatedAt: base.Add(time.Minute)},
		{UUID: "CFG1", Owner: "U1", Name: "laptop", CreatedAt: base},
		{UUID: "CFG3", Owner: "U2", Name: "other", CreatedAt: base},
	} {
		s.Require().NoError(s.storage.SaveClientConfig(s.ctx, cfg))
	}

	cfgs, err := s.storage.GetClientConfigsForOwner(s.ctx, "U1")
	s.Require().NoError(err)
	s.Require().Len(cfgs, 2)
	s.Equal(model.ClientID("CFG1"), cfgs[0].UUID)
	s.Equal(model.ClientID("CFG2"), cfgs[1].UUID)

	none, err := s.storage.GetClientConfigsForOwner(s.ctx, "U3")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *Suite) TestDeleteClientConfig() {
	s.Require().NoError(s.storage.SaveClientConfig(s.ctx, &model.ClientConfig{UUID: "CFG1", Owner: "U1"}))
	s.Require().NoError(s.storage.DeleteClientConfig(s.ctx, "CFG1"))

	_, err := s.storage.GetClientConfig(s.ctx, "CFG1")
	s.ErrorIs(err, model.ErrClientConfigNotFound)

	cfgs, err := s.storage.GetClientConfigsForOwner(s.ctx, "U1")
	s.Require().NoError(err)
	s.Empty(cfgs)
}
