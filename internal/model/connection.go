package model

import "time"

// SocketHandle identifies one live transport connection.
// Handles are allocated by the transport and never reused within a process.
type SocketHandle uint64

// ClientID identifies a client connection, temporary until authentication
type ClientID string

// UserID identifies an authenticated account
type UserID string

// Socket is one live transport connection and the client currently bound to it
type Socket struct {
	Handle   SocketHandle
	IP       string
	ClientID ClientID
}

// Client is the per-connection identity, anonymous or authenticated
type Client struct {
	ID          ClientID
	Socket      SocketHandle
	IP          string
	UserID      UserID // empty until authenticated
	Name        string
	Config      *ClientConfig
	ConnectedAt time.Time
}

// Authenticated reports whether the client is bound to a user
func (c *Client) Authenticated() bool {
	return c.UserID != ""
}

// User is an authenticated account currently online
type User struct {
	ID      UserID
	Account *Account
	Profile *Profile
	// Clients holds attached client ids in login order
	Clients []ClientID
}

// HasClient reports whether the client id is attached to the user
func (u *User) HasClient(id ClientID) bool {
	for _, c := range u.Clients {
		if c == id {
			return true
		}
	}
	return false
}
