package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

// PrintPacket outputs one inbound websocket packet. JSON output is one line
// per packet so it can be piped.
func (o *Output) PrintPacket(p PacketEvent) {
	if o.format == "json" {
		data, _ := json.Marshal(p)
		_, _ = fmt.Fprintln(o.w, string(data))
		return
	}
	data := string(p.Data)
	if len(data) > 200 {
		data = data[:200] + "..."
	}
	_, _ = fmt.Fprintf(o.w, "[%s] %s/%s %s\n", p.Time.Format("15:04:05"), p.Component, p.Action, data)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		_, _ = fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	case StatsResult:
		o.printStats(v)
	case []ClientInfo:
		o.printClients(v)
	case []UserInfo:
		o.printUsers(v)
	case AccountResult:
		o.printAccount(v)
	case DeliveredResult:
		_, _ = fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// StatsResult response type
type StatsResult struct {
	Sockets       int `json:"sockets"`
	Clients       int `json:"clients"`
	Users         int `json:"users"`
	PendingLogins int `json:"pending_logins"`
	Components    int `json:"components"`
	Connections   int `json:"connections"`
}

// ClientInfo describes one connected client
type ClientInfo struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	IP          string    `json:"ip"`
	Socket      uint64    `json:"socket"`
	ConnectedAt time.Time `json:"connected_at"`
}

// UserInfo describes one online user
type UserInfo struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Clients []string `json:"clients"`
}

// AccountResult response type
type AccountResult struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// DeliveredResult acknowledges a send or broadcast
type DeliveredResult struct {
	Status string `json:"status"`
}

// PacketEvent is a packet received on a websocket
type PacketEvent struct {
	Time      time.Time       `json:"time"`
	Component string          `json:"component"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (o *Output) printStats(s StatsResult) {
	_, _ = fmt.Fprintf(o.w, "Sockets:        %d\n", s.Sockets)
	_, _ = fmt.Fprintf(o.w, "Clients:        %d\n", s.Clients)
	_, _ = fmt.Fprintf(o.w, "Users:          %d\n", s.Users)
	_, _ = fmt.Fprintf(o.w, "Pending logins: %d\n", s.PendingLogins)
	_, _ = fmt.Fprintf(o.w, "Components:     %d\n", s.Components)
	_, _ = fmt.Fprintf(o.w, "Connections:    %d\n", s.Connections)
}

func (o *Output) printClients(clients []ClientInfo) {
	if len(clients) == 0 {
		_, _ = fmt.Fprintln(o.w, "No clients connected")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SOCKET\tCLIENT\tUSER\tIP\tCONNECTED")
	for _, c := range clients {
		user := c.UserID
		if user == "" {
			user = "-"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.Socket, c.ID, user, c.IP, c.ConnectedAt.Format(time.RFC3339))
	}
	_ = tw.Flush()
}

func (o *Output) printUsers(users []UserInfo) {
	if len(users) == 0 {
		_, _ = fmt.Fprintln(o.w, "No users online")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "USER\tNAME\tCLIENTS")
	for _, u := range users {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, u.Name, strings.Join(u.Clients, ","))
	}
	_ = tw.Flush()
}

func (o *Output) printAccount(a AccountResult) {
	_, _ = fmt.Fprintf(o.w, "Account: %s\n", a.Name)
	_, _ = fmt.Fprintf(o.w, "ID:      %s\n", a.ID)
	if len(a.Roles) > 0 {
		_, _ = fmt.Fprintf(o.w, "Roles:   %s\n", strings.Join(a.Roles, ", "))
	}
}
