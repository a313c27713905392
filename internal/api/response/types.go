package response

import (
	"time"

	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/router"
)

// Health is the response for the health endpoint
type Health struct {
	Status string `json:"status"`
}

// Stats reports gateway counts
type Stats struct {
	router.Stats
	Connections int `json:"connections"`
}

// Account represents an account in API responses
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountFromModel converts a model.Account to a response Account
func AccountFromModel(a *model.Account) Account {
	roles := a.Roles
	if roles == nil {
		roles = []string{}
	}
	return Account{
		ID:        string(a.UUID),
		Name:      a.Name,
		Roles:     roles,
		CreatedAt: a.CreatedAt,
	}
}

// Client represents a connected client in API responses
type Client struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	IP          string    `json:"ip"`
	Socket      uint64    `json:"socket"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ClientFromModel converts a model.Client to a response Client
func ClientFromModel(c *model.Client) Client {
	return Client{
		ID:          string(c.ID),
		UserID:      string(c.UserID),
		Name:        c.Name,
		IP:          c.IP,
		Socket:      uint64(c.Socket),
		ConnectedAt: c.ConnectedAt,
	}
}

// User represents an online user in API responses
type User struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Clients []string `json:"clients"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	clients := make([]string, 0, len(u.Clients))
	for _, id := range u.Clients {
		clients = append(clients, string(id))
	}
	name := ""
	if u.Account != nil {
		name = u.Account.Name
	}
	return User{
		ID:      string(u.ID),
		Name:    name,
		Clients: clients,
	}
}

// Delivered acknowledges an accepted send or broadcast
type Delivered struct {
	Status string `json:"status"`
}
