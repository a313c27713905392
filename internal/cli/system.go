package cli

import (
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult
			if err := client.Get(cmd.Context(), "/api/v1/health", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show socket, client and user counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StatsResult
			if err := client.Get(cmd.Context(), "/api/v1/stats", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newClientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List connected clients (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			result := []ClientInfo{}
			if err := client.Get(cmd.Context(), "/api/v1/clients", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List online users (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			result := []UserInfo{}
			if err := client.Get(cmd.Context(), "/api/v1/users", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
