package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// getJSON loads key into v, mapping a missing key to notFound
func (s *Storage) getJSON(ctx context.Context, key string, v any, notFound error) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	existing, err := s.GetAccount(ctx, account.UUID)
	if err != nil && !errors.Is(err, model.ErrAccountNotFound) {
		return err
	}

	// Save and re-index in one round trip
	pipe := s.client.TxPipeline()
	if existing != nil && existing.Name != account.Name {
		pipe.Del(ctx, accountNameIndexKey(existing.Name))
	}
	pipe.Set(ctx, accountKey(account.UUID), data, 0)
	pipe.Set(ctx, accountNameIndexKey(account.Name), string(account.UUID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetAccount(ctx context.Context, id model.UserID) (*model.Account, error) {
	var account model.Account
	if err := s.getJSON(ctx, accountKey(id), &account, model.ErrAccountNotFound); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Storage) GetAccountByName(ctx context.Context, name string) (*model.Account, error) {
	id, err := s.client.Get(ctx, accountNameIndexKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}
	return s.GetAccount(ctx, model.UserID(id))
}

func (s *Storage) DeleteAccount(ctx context.Context, id model.UserID) error {
	account, err := s.GetAccount(ctx, id)
	if errors.Is(err, model.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, accountKey(id))
	pipe.Del(ctx, accountNameIndexKey(account.Name))
	_, err = pipe.Exec(ctx)
	return err
}

// Profile operations

func (s *Storage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, profileKey(profile.Owner), data, 0).Err()
}

func (s *Storage) GetProfile(ctx context.Context, owner model.UserID) (*model.Profile, error) {
	var profile model.Profile
	if err := s.getJSON(ctx, profileKey(owner), &profile, model.ErrProfileNotFound); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Storage) DeleteProfile(ctx context.Context, owner model.UserID) error {
	return s.client.Del(ctx, profileKey(owner)).Err()
}

// Client config operations

func (s *Storage) SaveClientConfig(ctx context.Context, cfg *model.ClientConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	key := clientConfigKey(cfg.UUID)
	indexKey := clientConfigsIndexKey(cfg.Owner)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, s.cfg.ClientConfigTTL)
	pipe.SAdd(ctx, indexKey, key)
	if s.cfg.ClientConfigTTL > 0 {
		pipe.Expire(ctx, indexKey, s.cfg.ClientConfigTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetClientConfig(ctx context.Context, id model.ClientID) (*model.ClientConfig, error) {
	var cfg model.ClientConfig
	if err := s.getJSON(ctx, clientConfigKey(id), &cfg, model.ErrClientConfigNotFound); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Storage) GetClientConfigsForOwner(ctx context.Context, owner model.UserID) ([]*model.ClientConfig, error) {
	keys, err := s.client.SMembers(ctx, clientConfigsIndexKey(owner)).Result()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return []*model.ClientConfig{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	cfgs := make([]*model.ClientConfig, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Expired, the index is cleaned up lazily
		}
		str, ok := val.(string)
		if !ok {
			continue
		}
		var cfg model.ClientConfig
		if err := json.Unmarshal([]byte(str), &cfg); err != nil {
			continue
		}
		cfgs = append(cfgs, &cfg)
	}
	storage.SortClientConfigs(cfgs)
	return cfgs, nil
}

func (s *Storage) DeleteClientConfig(ctx context.Context, id model.ClientID) error {
	cfg, err := s.GetClientConfig(ctx, id)
	if errors.Is(err, model.ErrClientConfigNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	key := clientConfigKey(id)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, clientConfigsIndexKey(cfg.Owner), key)
	_, err = pipe.Exec(ctx)
	return err
}
