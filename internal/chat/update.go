package chat

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/charmbracelet/bubbles/spinner"

	"github.com/nwestfall/parley/internal/engine"
	"github.com/nwestfall/parley/internal/live"
	"github.com/nwestfall/parley/internal/session"
	"github.com/nwestfall/parley/internal/types"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	case channelsMsg:
		return m.handleChannelsMsg(msg)
	case historyMsg:
		return m.handleHistoryMsg(msg)
	case liveEventMsg:
		return m.handleLiveEventMsg(msg)
	case noticeMsg:
		return m, tea.Batch(m.setStatus(msg.text), m.waitNoticeCmd())
	case sendDoneMsg:
		m.refreshViewport()
		if msg.err != nil {
			return m, m.setStatus(msg.err.Error())
		}
		return m, nil
	case connTickMsg:
		m.connState = m.live.State()
		return m, m.connTickCmd()
	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) handleChannelsMsg(msg channelsMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.setStatus("error fetching messages: " + msg.err.Error())
	}
	m.myChannels = msg.mine
	m.activeQueue = msg.active
	if m.restore != "" {
		id := m.restore
		m.restore = ""
		if ch, ok := findChannel(m.myChannels, id); ok {
			return m, m.selectChannel(ch)
		}
		if ch, ok := findChannel(m.activeQueue, id); ok {
			return m, m.selectChannel(ch)
		}
	}
	return m, nil
}

func (m *Model) handleHistoryMsg(msg historyMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if msg.gen != m.engine.State().Generation {
			// A newer selection's fetch is still outstanding.
			return m, nil
		}
		m.isLoading = false
		return m, m.setStatus("could not load conversation: " + msg.err.Error())
	}
	st := m.engine.Dispatch(engine.HistoryLoaded{Generation: msg.gen, Channel: msg.channel})
	if st.SelectedID() == msg.channel.ID && st.Phase == engine.Ready {
		m.isLoading = false
		if err := session.SaveSelectedChannel(m.store, msg.channel); err != nil {
			debugLog("persist selection: %v", err)
		}
	}
	m.refreshViewport()
	return m, nil
}

func (m *Model) handleLiveEventMsg(msg liveEventMsg) (tea.Model, tea.Cmd) {
	m.engine.Dispatch(engine.Inbound{Event: msg.event})
	m.refreshViewport()
	return m, m.waitEventCmd()
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyTab:
		m.cycleFocus()
		return m, nil
	case tea.KeyCtrlJ:
		if m.focus == focusCompose {
			m.input.InsertString("\n")
		}
		return m, nil
	}

	switch m.focus {
	case focusChannels:
		return m.handleListKey(msg, &m.channelIndex, m.myChannels)
	case focusQueue:
		return m.handleListKey(msg, &m.queueIndex, m.activeQueue)
	}

	switch msg.Type {
	case tea.KeyEnter:
		return m, m.submit()
	case tea.KeyEsc:
		m.focus = focusChannels
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleListKey(msg tea.KeyMsg, index *int, list []types.Channel) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if *index > 0 {
			*index--
		}
	case "down", "j":
		if *index < len(list)-1 {
			*index++
		}
	case "enter":
		if *index >= 0 && *index < len(list) {
			return m, m.selectChannel(list[*index])
		}
	case "n":
		if !m.user.IsAdmin() {
			return m, m.startCompose()
		}
	case "esc":
		m.engine.Dispatch(engine.ClearSelection{})
		if err := m.store.Delete(session.KeySelectedChannel); err != nil {
			debugLog("clear selection: %v", err)
		}
		m.refreshViewport()
	}
	return m, nil
}

func (m *Model) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		for _, ch := range m.myChannels {
			if m.zones.Get("chan-" + ch.ID).InBounds(msg) {
				return m, m.selectChannel(ch)
			}
		}
		for _, ch := range m.activeQueue {
			if m.zones.Get("queue-" + ch.ID).InBounds(msg) {
				return m, m.selectChannel(ch)
			}
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// selectChannel switches the engine to a channel and starts its
// history fetch.
func (m *Model) selectChannel(ch types.Channel) tea.Cmd {
	st := m.engine.Dispatch(engine.SelectChannel{Channel: ch})
	m.isLoading = true
	m.focus = focusCompose
	m.input.Focus()
	m.refreshViewport()
	return tea.Batch(m.fetchHistoryCmd(st.Generation, ch.ID), m.spin.Tick)
}

// startCompose enters new-conversation mode for a participant.
func (m *Model) startCompose() tea.Cmd {
	m.engine.Dispatch(engine.StartCompose{})
	m.focus = focusCompose
	m.input.Focus()
	m.refreshViewport()
	return m.setStatus("new conversation: type a message and press enter")
}

func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m.setStatus("please type in a message")
	}
	st := m.engine.State()
	if st.Selected == nil && !st.Composing {
		return m.setStatus("select a conversation to send a message")
	}
	if m.connState != live.Open {
		return m.setStatus("offline: reconnecting, sending is disabled")
	}
	m.input.Reset()
	return m.sendCmd(text)
}

func (m *Model) cycleFocus() {
	switch m.focus {
	case focusChannels:
		m.focus = focusCompose
		m.input.Focus()
	case focusCompose:
		if m.user.IsAdmin() && len(m.activeQueue) > 0 {
			m.focus = focusQueue
		} else {
			m.focus = focusChannels
		}
		m.input.Blur()
	case focusQueue:
		m.focus = focusChannels
	}
}

func findChannel(list []types.Channel, id string) (types.Channel, bool) {
	for _, ch := range list {
		if ch.ID == id {
			return ch, true
		}
	}
	return types.Channel{}, false
}
