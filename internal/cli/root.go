package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "wsctl",
		Short: "Operator CLI for the websocket gateway",
		Long: `wsctl talks to a running gateway: it reads health and stats, lists connected
clients and online users, provisions accounts, pushes packets to users, clients
or everyone, and can open a websocket to watch traffic as a client would.

Operator commands need the admin token (--token or WSCTL_TOKEN).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cfg.Output {
			case "text", "json":
			default:
				return fmt.Errorf("unknown output format %q", cfg.Output)
			}
			client = NewClient(cfg.ServerURL, cfg.Token, cfg.Timeout)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: WSCTL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Admin token (env: WSCTL_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newClientsCmd())
	rootCmd.AddCommand(newUsersCmd())
	rootCmd.AddCommand(newAccountCmd())
	rootCmd.AddCommand(newBroadcastCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newListenCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
