package storage

import (
	"context"

	"github.com/mcoot/wsgate/internal/model"
)

// Storage is the object store behind authentication and the built-in components
type Storage interface {
	// Account operations
	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id model.UserID) (*model.Account, error)
	GetAccountByName(ctx context.Context, name string) (*model.Account, error)
	DeleteAccount(ctx context.Context, id model.UserID) error

	// Profile operations, one profile per account
	SaveProfile(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, owner model.UserID) (*model.Profile, error)
	DeleteProfile(ctx context.Context, owner model.UserID) error

	// Client config operations
	SaveClientConfig(ctx context.Context, cfg *model.ClientConfig) error
	GetClientConfig(ctx context.Context, id model.ClientID) (*model.ClientConfig, error)
	GetClientConfigsForOwner(ctx context.Context, owner model.UserID) ([]*model.ClientConfig, error)
	DeleteClientConfig(ctx context.Context, id model.ClientID) error
}
