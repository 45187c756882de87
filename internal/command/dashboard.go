package command

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nwestfall/parley/internal/api"
	"github.com/nwestfall/parley/internal/chat"
	"github.com/nwestfall/parley/internal/session"
)

// NewDashboardCmd creates the dashboard command.
func NewDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the conversation dashboard",
		Long:  "Open the interactive dashboard: your conversations, the live message view, and (for agents) the queue of conversations waiting to be claimed.",
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

			config, err := session.LoadConfig()
			if err != nil {
				return err
			}
			client, err := api.NewClient(config.ServerURL)
			if err != nil {
				return err
			}

			// Refresh the profile so a revoked token fails here
			// instead of inside the UI.
			fresh, err := client.GetUser(cmd.Context(), user.Email, user.Token)
			if err != nil {
				if errors.Is(err, api.ErrUnauthorized) {
					_ = session.Clear(store)
					return fmt.Errorf("session expired: run `%s login`", AppName)
				}
				return err
			}
			fresh.Token = user.Token
			if err := session.SaveUser(store, fresh); err != nil {
				return err
			}

			return chat.Run(chat.Options{
				User:      fresh,
				API:       client,
				Store:     store,
				SocketURL: config.SocketURL,
			})
		},
	}
}
