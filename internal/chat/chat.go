// Package chat is the dashboard TUI: the channel lists, the message
// view for the selected channel, and the compose box. It owns the
// "currently selected channel" the synchronization engine keys off of.
package chat

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nwestfall/parley/internal/api"
	"github.com/nwestfall/parley/internal/session"
	"github.com/nwestfall/parley/internal/types"
)

// Options configure the dashboard.
type Options struct {
	User      types.User
	API       *api.Client
	Store     session.Store
	SocketURL string
}

// Run starts the dashboard UI. The live channel's lifetime is tied to
// the dashboard: dialed here, closed when the program exits.
func Run(opts Options) error {
	model := NewModel(opts)

	fmt.Printf("\033]0;parley · %s\007", opts.User.Email)

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := program.Run()
	model.Close()
	return err
}
