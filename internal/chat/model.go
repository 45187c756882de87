package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/nwestfall/parley/internal/api"
	"github.com/nwestfall/parley/internal/engine"
	"github.com/nwestfall/parley/internal/live"
	"github.com/nwestfall/parley/internal/session"
	"github.com/nwestfall/parley/internal/types"
)

const (
	connPollInterval = 500 * time.Millisecond
	statusDuration   = 2500 * time.Millisecond
	callTimeout      = 15 * time.Second
)

type focusArea int

const (
	focusChannels focusArea = iota
	focusCompose
	focusQueue
)

// Model implements the dashboard UI.
type Model struct {
	user   types.User
	api    *api.Client
	store  session.Store
	live   *live.Channel
	engine *engine.Engine

	myChannels   []types.Channel
	activeQueue  []types.Channel // admin-only unassigned queue
	channelIndex int
	queueIndex   int
	focus        focusArea

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model
	zones    *zone.Manager

	noticeCh  chan string
	isLoading bool
	connState live.State
	status    string
	statusSeq int
	restore   string // channel id persisted from the previous run
	width     int
	height    int
}

// NewModel creates the dashboard model for the logged-in user.
func NewModel(opts Options) *Model {
	input := textarea.New()
	input.CharLimit = 0
	input.ShowLineNumbers = false
	input.SetHeight(2)
	input.Placeholder = "Type a message..."
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	noticeCh := make(chan string, 8)
	liveChannel := live.Dial(live.Options{
		URL:  opts.SocketURL,
		Logf: debugLog,
	})

	m := &Model{
		user:      opts.User,
		api:       opts.API,
		store:     opts.Store,
		live:      liveChannel,
		viewport:  viewport.New(0, 0),
		input:     input,
		spin:      spin,
		zones:     zone.New(),
		noticeCh:  noticeCh,
		connState: liveChannel.State(),
		focus:     focusCompose,
	}
	m.engine = engine.New(opts.User, opts.API, liveChannel, func(text string) {
		select {
		case noticeCh <- text:
		default:
		}
	})

	if ch, ok, err := session.LoadSelectedChannel(opts.Store); err == nil && ok {
		m.restore = ch.ID
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchChannelsCmd(),
		m.waitEventCmd(),
		m.waitNoticeCmd(),
		m.connTickCmd(),
		m.spin.Tick,
		textarea.Blink,
	)
}

// Close releases the live connection and click zones.
func (m *Model) Close() {
	m.live.Close()
	m.zones.Close()
}

type channelsMsg struct {
	mine   []types.Channel
	active []types.Channel
	err    error
}

type historyMsg struct {
	gen     int
	channel types.Channel
	err     error
}

type liveEventMsg struct {
	event types.Message
}

type noticeMsg struct {
	text string
}

type connTickMsg struct{}

type clearStatusMsg struct {
	seq int
}

type sendDoneMsg struct {
	err error
}

// fetchChannelsCmd loads the channel lists for the sidebar. For an
// admin both queries must succeed; a partial result is treated as the
// whole batch failing.
func (m *Model) fetchChannelsCmd() tea.Cmd {
	user := m.user
	apiClient := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if user.IsAdmin() {
			mine, err := apiClient.ChannelsByAgent(ctx, user.Email, user.Token)
			if err != nil {
				return channelsMsg{err: err}
			}
			active, err := apiClient.ActiveChannels(ctx, user.Token)
			if err != nil {
				return channelsMsg{err: err}
			}
			return channelsMsg{mine: mine, active: active}
		}
		mine, err := apiClient.ChannelsByUser(ctx, user.Email, user.Token)
		if err != nil {
			return channelsMsg{err: err}
		}
		return channelsMsg{mine: mine}
	}
}

// fetchHistoryCmd loads the full message history for a selection. The
// generation tags the result so a superseded fetch is discarded.
func (m *Model) fetchHistoryCmd(gen int, channelID string) tea.Cmd {
	user := m.user
	apiClient := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		channel, err := apiClient.GetChannel(ctx, channelID, user.Token)
		if err != nil {
			return historyMsg{gen: gen, err: err}
		}
		return historyMsg{gen: gen, channel: channel}
	}
}

func (m *Model) waitEventCmd() tea.Cmd {
	events := m.live.Events()
	return func() tea.Msg {
		return liveEventMsg{event: <-events}
	}
}

func (m *Model) waitNoticeCmd() tea.Cmd {
	notices := m.noticeCh
	return func() tea.Msg {
		return noticeMsg{text: <-notices}
	}
}

func (m *Model) connTickCmd() tea.Cmd {
	return tea.Tick(connPollInterval, func(time.Time) tea.Msg {
		return connTickMsg{}
	})
}

func (m *Model) sendCmd(text string) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return sendDoneMsg{err: eng.Send(ctx, text)}
	}
}

// setStatus shows a transient, auto-dismissing notice.
func (m *Model) setStatus(text string) tea.Cmd {
	m.status = text
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(statusDuration, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}
