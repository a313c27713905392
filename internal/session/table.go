package session

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mcoot/wsgate/internal/model"
)

// Table tracks online users and the clients attached to each of them.
// Users are kept after their last client detaches.
type Table struct {
	mu     sync.RWMutex
	users  map[model.UserID]*model.User
	logger *slog.Logger
}

// New creates an empty Table
func New(logger *slog.Logger) *Table {
	return &Table{
		users:  make(map[model.UserID]*model.User),
		logger: logger.With(slog.String("component", "sessions")),
	}
}

// Attach adds a client to a user's session, creating the user if needed.
// It returns a copy of the user and whether the client was newly attached.
func (t *Table) Attach(userID model.UserID, account *model.Account, profile *model.Profile, clientID model.ClientID) (*model.User, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	user, ok := t.users[userID]
	if !ok {
		user = &model.User{
			ID:      userID,
			Account: account,
			Profile: profile,
		}
		t.users[userID] = user
		t.logger.Info("user session created", slog.String("user_id", string(userID)))
	}

	if user.HasClient(clientID) {
		t.logger.Warn("client already attached to user",
			slog.String("user_id", string(userID)),
			slog.String("client_id", string(clientID)))
		return cloneUser(user), false
	}

	user.Clients = append(user.Clients, clientID)
	t.logger.Info("client attached to user",
		slog.String("user_id", string(userID)),
		slog.String("client_id", string(clientID)),
		slog.Int("user_clients", len(user.Clients)))
	return cloneUser(user), true
}

// Detach removes a client from a user's session
func (t *Table) Detach(userID model.UserID, clientID model.ClientID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	user, ok := t.users[userID]
	if !ok {
		t.logger.Warn("detach for unknown user",
			slog.String("user_id", string(userID)),
			slog.String("client_id", string(clientID)))
		return fmt.Errorf("user %s: %w", userID, model.ErrUnknownUser)
	}

	user.Clients = slices.DeleteFunc(user.Clients, func(id model.ClientID) bool {
		return id == clientID
	})
	return nil
}

// ClientsOf returns the ids of the clients attached to a user, in login order
func (t *Table) ClientsOf(userID model.UserID) ([]model.ClientID, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	user, ok := t.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, model.ErrUnknownUser)
	}
	return slices.Clone(user.Clients), nil
}

// User returns a copy of the user session
func (t *Table) User(userID model.UserID) (*model.User, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	user, ok := t.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, model.ErrUnknownUser)
	}
	return cloneUser(user), nil
}

// UpdateProfile replaces the cached profile of an online user
func (t *Table) UpdateProfile(userID model.UserID, profile *model.Profile) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	user, ok := t.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, model.ErrUnknownUser)
	}
	user.Profile = profile
	return nil
}

// UserIDs returns a snapshot of all known user ids
func (t *Table) UserIDs() []model.UserID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]model.UserID, 0, len(t.users))
	for id := range t.users {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of user sessions
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.users)
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Clients = slices.Clone(u.Clients)
	return &c
}
