package model

import "time"

// Account is a stored login account
type Account struct {
	UUID         UserID    `json:"uuid"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passhash"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created"`
	LastLogin    time.Time `json:"lastlogin"`
}

// PublicFields returns the fields that may be sent to clients
func (a *Account) PublicFields() map[string]any {
	roles := a.Roles
	if roles == nil {
		roles = []string{}
	}
	return map[string]any{
		"uuid":      string(a.UUID),
		"name":      a.Name,
		"roles":     roles,
		"created":   a.CreatedAt,
		"lastlogin": a.LastLogin,
	}
}

// Profile holds user facing settings owned by an account
type Profile struct {
	UUID        string            `json:"uuid"`
	Owner       UserID            `json:"owner"`
	DisplayName string            `json:"displayname"`
	Settings    map[string]string `json:"settings"`
}

// PublicFields returns the fields that may be sent to clients
func (p *Profile) PublicFields() map[string]any {
	settings := p.Settings
	if settings == nil {
		settings = map[string]string{}
	}
	return map[string]any{
		"uuid":        p.UUID,
		"owner":       string(p.Owner),
		"displayname": p.DisplayName,
		"settings":    settings,
	}
}

// ClientConfig is the stored configuration of one client device of an account.
// Its UUID becomes the stable client id once the client authenticates.
type ClientConfig struct {
	UUID        ClientID  `json:"uuid"`
	Owner       UserID    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created"`
}

// ClientID returns the stable client identifier
func (c *ClientConfig) ClientID() ClientID {
	return c.UUID
}

// PublicFields returns the fields that may be sent to clients
func (c *ClientConfig) PublicFields() map[string]any {
	return map[string]any{
		"uuid":        string(c.UUID),
		"owner":       string(c.Owner),
		"name":        c.Name,
		"description": c.Description,
		"created":     c.CreatedAt,
	}
}
