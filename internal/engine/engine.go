package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/nwestfall/parley/internal/types"
)

// Validation failures surfaced to the compose UI. Neither mutates any
// state or reaches a collaborator.
var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoChannel    = errors.New("no conversation selected")
)

// API is the subset of the chat API the engine drives on send.
type API interface {
	UpdateChannelStatus(ctx context.Context, id, status, updatedBy, token string) (types.Channel, error)
	CreateChannel(ctx context.Context, userEmail, token string) (types.Channel, error)
	CreateMessage(ctx context.Context, msg types.Message, token string) (types.Message, error)
}

// Publisher pushes outbound frames over the live channel.
type Publisher interface {
	Send(types.Message) error
}

// Engine owns the per-channel message sequence. All mutation goes
// through Dispatch; the UI never appends directly. The mutex stands in
// for the single-threaded event ordering of the original client, since
// command goroutines and the update loop interleave here.
type Engine struct {
	mu     sync.Mutex
	state  State
	api    API
	pub    Publisher
	notify func(string)
}

// New creates an engine for the logged-in user. notify receives
// transient, user-visible notices (fetch/update failures); it may be
// nil.
func New(user types.User, apiClient API, pub Publisher, notify func(string)) *Engine {
	if notify == nil {
		notify = func(string) {}
	}
	return &Engine{
		state:  State{User: user, Phase: Idle},
		api:    apiClient,
		pub:    pub,
		notify: notify,
	}
}

// State returns a snapshot of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Dispatch applies one action and returns the resulting state.
func (e *Engine) Dispatch(action Action) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Apply(e.state, action)
	return e.state
}

// Send runs the full send path: validate, append the sender's copy
// optimistically, apply the status transition, create the channel for
// a first message, and publish the frame over the live channel.
//
// Only validation failures are returned. Collaborator failures surface
// through notify and never roll back the optimistic append.
func (e *Engine) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	e.mu.Lock()
	st := e.state
	if st.Selected == nil && !st.Composing {
		e.mu.Unlock()
		return ErrNoChannel
	}
	msg := types.Message{
		ChannelID:   st.SelectedID(),
		Message:     text,
		MessageFrom: st.User.Email,
	}
	e.state = Apply(e.state, AppendLocal{Message: msg})
	e.mu.Unlock()

	if st.Selected != nil {
		if next, ok := NextStatus(st.Selected.CurrentStatus, st.User.Role); ok {
			updated, err := e.api.UpdateChannelStatus(ctx, st.Selected.ID, next, st.User.Email, st.User.Token)
			if err != nil {
				e.notify("could not update conversation status: " + err.Error())
			} else {
				e.Dispatch(SetStatus{ChannelID: st.Selected.ID, Status: updated.CurrentStatus})
			}
		}
	} else {
		// First message with no prior channel: create it, persist the
		// message against the assigned id, then adopt the channel.
		created, err := e.api.CreateChannel(ctx, st.User.Email, st.User.Token)
		if err != nil {
			e.notify("could not start conversation: " + err.Error())
			return nil
		}
		msg.ChannelID = created.ID
		if _, err := e.api.CreateMessage(ctx, msg, st.User.Token); err != nil {
			e.notify("could not save message: " + err.Error())
		}
		e.Dispatch(AdoptChannel{Channel: created})
	}

	if err := e.pub.Send(msg); err != nil {
		e.notify("offline: message not delivered to the other side")
	}
	return nil
}
