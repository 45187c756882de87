package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nwestfall/parley/internal/api"
	"github.com/nwestfall/parley/internal/session"
	"github.com/nwestfall/parley/internal/types"
)

// NewRegisterCmd creates the register command.
func NewRegisterCmd() *cobra.Command {
	var (
		email, password     string
		firstName, lastName string
		admin               bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := session.LoadConfig()
			if err != nil {
				return err
			}
			client, err := api.NewClient(config.ServerURL)
			if err != nil {
				return err
			}

			role := types.RoleUser
			if admin {
				role = types.RoleAdmin
			}
			user, err := client.Register(cmd.Context(), api.RegisterRequest{
				Email:     email,
				Password:  password,
				FirstName: firstName,
				LastName:  lastName,
				Role:      role,
			})
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

			fmt.Fprintf(cmd.OutOrStdout(), "registered %s as %s\n", user.Email, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().BoolVar(&admin, "admin", false, "register as a support agent")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
