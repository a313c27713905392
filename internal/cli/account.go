package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account provisioning commands",
	}

	cmd.AddCommand(newAccountCreateCmd())

	return cmd
}

func newAccountCreateCmd() *cobra.Command {
	var username, password string
	var roles []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}

			req := map[string]any{
				"username": username,
				"password": password,
			}
			if len(roles) > 0 {
				req["roles"] = roles
			}

			var result AccountResult
			if err := client.Post(cmd.Context(), "/api/v1/accounts", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Account username (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (required)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role to grant (repeatable)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
