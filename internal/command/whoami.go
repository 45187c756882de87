package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nwestfall/parley/internal/session"
)

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.DefaultStore()
			if err != nil {
				return err
			}
			user, ok, err := session.LoadUser(store)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("not signed in: run `%s login`", AppName)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", user.FullName(), user.Email, user.Role)
			return nil
		},
	}
}
