package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nwestfall/parley/internal/api"
	"github.com/nwestfall/parley/internal/session"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := session.LoadConfig()
			if err != nil {
				return err
			}
			client, err := api.NewClient(config.ServerURL)
			if err != nil {
				return err
			}

			user, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			store, err := session.DefaultStore()
			if err != nil {
				return err
			}
			if err := session.SaveUser(store, user); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", user.FullName(), user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
