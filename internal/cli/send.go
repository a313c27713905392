package cli

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// packetFlags builds an outbound packet from --component, --action and --data
type packetFlags struct {
	component string
	action    string
	data      string
}

func (p *packetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.component, "component", "", "Packet component (required)")
	cmd.Flags().StringVar(&p.action, "action", "", "Packet action (required)")
	cmd.Flags().StringVar(&p.data, "data", "", "Packet data as JSON")
	_ = cmd.MarkFlagRequired("component")
	_ = cmd.MarkFlagRequired("action")
}

func (p *packetFlags) packet() (map[string]any, error) {
	if p.component == "" || p.action == "" {
		return nil, fmt.Errorf("--component and --action are required")
	}
	packet := map[string]any{
		"component": p.component,
		"action":    p.action,
	}
	if p.data != "" {
		if !json.Valid([]byte(p.data)) {
			return nil, fmt.Errorf("--data is not valid JSON")
		}
		packet["data"] = json.RawMessage(p.data)
	}
	return packet, nil
}

func newBroadcastCmd() *cobra.Command {
	var pf packetFlags
	var kind string

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Broadcast a packet to users, clients or sockets (admin)",
		Long: `Broadcast a packet. --type selects the audience:
  users    every socket of every logged in user
  clients  every client, anonymous ones included
  socks    every open socket`,
		RunE: func(cmd *cobra.Command, args []string) error {
			packet, err := pf.packet()
			if err != nil {
				return err
			}

			req := map[string]any{"type": kind, "packet": packet}
			var result DeliveredResult
			if err := client.Post(cmd.Context(), "/api/v1/broadcast", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVar(&kind, "type", "users", "Broadcast type: users, clients, socks")

	return cmd
}

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a packet to one user or client (admin)",
	}

	cmd.AddCommand(newSendTargetCmd("user", "users", "Send a packet to every device of a user"))
	cmd.AddCommand(newSendTargetCmd("client", "clients", "Send a packet to one client"))

	return cmd
}

func newSendTargetCmd(use, collection, short string) *cobra.Command {
	var pf packetFlags

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short + " (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packet, err := pf.packet()
			if err != nil {
				return err
			}

			path := fmt.Sprintf("/api/v1/%s/%s/send", collection, url.PathEscape(args[0]))
			var result DeliveredResult
			if err := client.Post(cmd.Context(), path, map[string]any{"packet": packet}, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	pf.register(cmd)

	return cmd
}
