// Package engine reconciles the three write paths of a conversation
// view: the fetched history snapshot, optimistic local appends, and
// inbound live events. State transitions go through a single pure
// reducer over a tagged action set; side effects live in Engine.
package engine

import (
	"github.com/nwestfall/parley/internal/types"
)

// Phase tracks where the selected channel is in its load cycle.
type Phase int

const (
	// Idle: nothing selected, inbound events are discarded.
	Idle Phase = iota
	// Loading: a history fetch is in flight. Events and local appends
	// are applied immediately and remembered so the fetch response can
	// merge instead of clobbering them.
	Loading
	// Ready: history is installed, events append directly.
	Ready
)

// State is the engine's view of the selected conversation. It is a
// value; Apply returns a new State and never mutates its input.
type State struct {
	User       types.User
	Selected   *types.Channel
	Messages   []types.Message
	Phase      Phase
	Generation int // bumped on every selection change, tags fetches
	Composing  bool

	// buffered holds entries appended while Loading, so HistoryLoaded
	// can re-append anything the fetched snapshot does not contain.
	buffered []types.Message
}

// SelectedID returns the selected channel's id, or "".
func (s State) SelectedID() string {
	if s.Selected == nil {
		return ""
	}
	return s.Selected.ID
}

// Action is one step of the reducer's tagged action set.
type Action interface {
	isAction()
}

// SelectChannel switches the view to a channel and starts its history
// load. The message list resets; events arriving before the history
// lands are merged per the Loading policy.
type SelectChannel struct {
	Channel types.Channel
}

// ClearSelection returns the view to Idle.
type ClearSelection struct{}

// StartCompose enters new-conversation mode: no channel selected, but
// sends are allowed and will create a channel.
type StartCompose struct{}

// HistoryLoaded delivers a fetched snapshot. Generation must match the
// selection that started the fetch; stale results are discarded.
type HistoryLoaded struct {
	Generation int
	Channel    types.Channel
}

// Inbound delivers one live event.
type Inbound struct {
	Event types.Message
}

// AppendLocal appends the sender's own message before any server
// confirmation.
type AppendLocal struct {
	Message types.Message
}

// AdoptChannel installs a server-created channel as the selection,
// keeping the optimistic messages accumulated in compose mode.
type AdoptChannel struct {
	Channel types.Channel
}

// SetStatus records a confirmed status transition for a channel. The
// id guards the case where the confirmation arrives after the
// selection has already moved to another channel.
type SetStatus struct {
	ChannelID string
	Status    string
}

func (SelectChannel) isAction()  {}
func (ClearSelection) isAction() {}
func (StartCompose) isAction()   {}
func (HistoryLoaded) isAction()  {}
func (Inbound) isAction()        {}
func (AppendLocal) isAction()    {}
func (AdoptChannel) isAction()   {}
func (SetStatus) isAction()      {}

// Apply is the reducer: (state, action) -> state.
func Apply(s State, action Action) State {
	switch a := action.(type) {
	case SelectChannel:
		ch := a.Channel
		s.Selected = &ch
		s.Messages = nil
		s.buffered = nil
		s.Phase = Loading
		s.Generation++
		s.Composing = false
		return s

	case ClearSelection:
		s.Selected = nil
		s.Messages = nil
		s.buffered = nil
		s.Phase = Idle
		s.Generation++
		s.Composing = false
		return s

	case StartCompose:
		s.Selected = nil
		s.Messages = nil
		s.buffered = nil
		s.Phase = Idle
		s.Generation++
		s.Composing = true
		return s

	case HistoryLoaded:
		if a.Generation != s.Generation {
			// A newer selection superseded this fetch.
			return s
		}
		if s.Selected == nil || s.Selected.ID != a.Channel.ID {
			return s
		}
		ch := a.Channel
		s.Selected = &ch
		s.Messages = cloneMessages(ch.Messages)
		// Merge-append: anything applied since the fetch started stays,
		// unless the snapshot already carries the same sender+body.
		for _, m := range s.buffered {
			if !containsContent(ch.Messages, m) {
				s.Messages = append(s.Messages, m)
			}
		}
		s.buffered = nil
		s.Phase = Ready
		return s

	case Inbound:
		ev := a.Event
		if s.Selected == nil || s.Phase == Idle {
			return s
		}
		if ev.Message == "" {
			return s
		}
		if types.IsSelfEcho(ev, s.Selected.ID, s.User.Email) {
			// The sender already appended its own optimistic copy.
			return s
		}
		if ev.ChannelID != s.Selected.ID {
			// Events for non-selected channels are not buffered.
			return s
		}
		return s.appendMessage(ev)

	case AppendLocal:
		if s.Selected == nil && !s.Composing {
			return s
		}
		return s.appendMessage(a.Message)

	case AdoptChannel:
		if !s.Composing {
			// The compose flow was abandoned while the create call was
			// in flight; the created channel is not installed.
			return s
		}
		ch := a.Channel
		s.Selected = &ch
		s.Phase = Ready
		s.Composing = false
		s.Generation++
		// Optimistic entries predate the server-assigned id.
		rewritten := cloneMessages(s.Messages)
		for i := range rewritten {
			if rewritten[i].ChannelID == "" {
				rewritten[i].ChannelID = ch.ID
			}
		}
		s.Messages = rewritten
		s.buffered = nil
		return s

	case SetStatus:
		if s.Selected == nil || s.Selected.ID != a.ChannelID {
			return s
		}
		ch := *s.Selected
		ch.CurrentStatus = a.Status
		s.Selected = &ch
		return s
	}
	return s
}

func (s State) appendMessage(m types.Message) State {
	s.Messages = append(cloneMessages(s.Messages), m)
	if s.Phase == Loading {
		s.buffered = append(cloneMessages(s.buffered), m)
	}
	return s
}

func cloneMessages(in []types.Message) []types.Message {
	if in == nil {
		return nil
	}
	out := make([]types.Message, len(in))
	copy(out, in)
	return out
}

func containsContent(history []types.Message, m types.Message) bool {
	for _, h := range history {
		if h.SameContent(m) {
			return true
		}
	}
	return false
}

// NextStatus returns the lifecycle transition a reply triggers, if
// any: an agent answering an ACTIVE channel claims it (IN_PROGRESS); a
// user answering an INACTIVE channel reopens it (ACTIVE). Repeat sends
// find no transition, which keeps the rule idempotent.
func NextStatus(current, role string) (string, bool) {
	switch {
	case role == types.RoleAdmin && current == types.StatusActive:
		return types.StatusInProgress, true
	case role == types.RoleUser && current == types.StatusInactive:
		return types.StatusActive, true
	}
	return "", false
}
