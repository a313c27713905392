package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type listenOptions struct {
	username string
	password string
	clientID string
	count    int
}

func newListenCmd() *cobra.Command {
	var opts listenOptions

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Open a websocket and print inbound packets",
		Long: `Connect to the gateway's websocket endpoint as a client and print every
packet it receives, starting with the connection acknowledgment.

With --username and --password the client logs in after connecting. --client
asks to resume an earlier client id owned by the same account.

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.username == "") != (opts.password == "") {
				return fmt.Errorf("--username and --password must be given together")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return listen(ctx, NewOutput(cfg.Output, cmd.OutOrStdout()), opts)
		},
	}

	cmd.Flags().StringVar(&opts.username, "username", "", "Log in as this user after connecting")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password for --username")
	cmd.Flags().StringVar(&opts.clientID, "client", "", "Client id to resume on login")
	cmd.Flags().IntVar(&opts.count, "count", 0, "Exit after this many packets (0 = until interrupted)")

	return cmd
}

type inboundPacket struct {
	Component string          `json:"component"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func listen(ctx context.Context, out *Output, opts listenOptions) error {
	wsURL, err := client.WebsocketURL()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.Timeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: HTTP %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Unblock the read loop on interrupt
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	if cfg.Verbose {
		out.PrintMessage("Connected to " + wsURL)
	}

	received := 0
	loginSent := opts.username == ""
	for opts.count == 0 || received < opts.count {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if cfg.Verbose {
					out.PrintMessage("Disconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		var p inboundPacket
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("invalid packet: %w", err)
		}
		received++
		out.PrintPacket(PacketEvent{
			Time:      time.Now(),
			Component: p.Component,
			Action:    p.Action,
			Data:      p.Data,
		})

		if !loginSent && p.Component == "connection" && p.Action == "connected" {
			if err := sendLogin(conn, p.Data, opts); err != nil {
				return err
			}
			loginSent = true
		}
	}

	return nil
}

// sendLogin answers the connection acknowledgment with a login request
func sendLogin(conn *websocket.Conn, ack json.RawMessage, opts listenOptions) error {
	clientID := opts.clientID
	if clientID == "" {
		var connected struct {
			ClientUUID string `json:"clientuuid"`
		}
		if err := json.Unmarshal(ack, &connected); err != nil || connected.ClientUUID == "" {
			return errors.New("connection acknowledgment carried no client id")
		}
		clientID = connected.ClientUUID
	}

	msg := map[string]any{
		"message": map[string]any{
			"component": "auth",
			"action":    "login",
			"data": map[string]string{
				"username":   opts.username,
				"password":   opts.password,
				"clientuuid": clientID,
			},
		},
	}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send login: %w", err)
	}
	return nil
}
