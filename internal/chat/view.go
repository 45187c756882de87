package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nwestfall/parley/internal/live"
)

var (
	titleColor    = lipgloss.Color("205")
	dimText       = lipgloss.Color("242")
	textColor     = lipgloss.Color("252")
	ownColor      = lipgloss.Color("42")
	otherColor    = lipgloss.Color("75")
	statusColor   = lipgloss.Color("220")
	selectedBg    = lipgloss.Color("237")
	connectedDot  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	connectingDot = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	offlineDot    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	headerStyle  = lipgloss.NewStyle().Foreground(titleColor).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(dimText)
	statusStyle  = lipgloss.NewStyle().Foreground(statusColor)
	panelStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(dimText).Padding(0, 1)
	selectedLine = lipgloss.NewStyle().Background(selectedBg)
)

const (
	sidebarWidth = 28
	queueWidth   = 28
)

func (m *Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	sidebar := m.renderSidebar()
	main := m.renderMain()

	columns := []string{sidebar, main}
	if m.user.IsAdmin() {
		columns = append(columns, m.renderQueue())
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, columns...)

	output := lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.statusLine())
	return m.zones.Scan(output)
}

func (m *Model) renderHeader() string {
	left := headerStyle.Render("parley") + dimStyle.Render(" · "+m.user.Email+" ("+m.user.Role+")")
	right := m.connIndicator()
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) connIndicator() string {
	switch m.connState {
	case live.Open:
		return connectedDot.Render("● connected")
	case live.Connecting:
		return connectingDot.Render("◐ connecting")
	default:
		return offlineDot.Render("○ offline")
	}
}

func (m *Model) renderMain() string {
	var lines []string
	st := m.engine.State()
	if st.Selected == nil && !st.Composing {
		empty := dimStyle.Render("Open a conversation to start")
		lines = append(lines, lipgloss.Place(m.mainWidth(), m.viewport.Height, lipgloss.Center, lipgloss.Center, empty))
	} else {
		lines = append(lines, m.viewport.View())
	}
	lines = append(lines, m.renderInput())
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderInput() string {
	box := m.input.View()
	if m.connState != live.Open {
		box = lipgloss.JoinVertical(lipgloss.Left, box,
			offlineDot.Render("sending disabled while disconnected"))
	}
	return box
}

func (m *Model) statusLine() string {
	if m.isLoading {
		return statusStyle.Render(m.spin.View() + " loading...")
	}
	if m.status != "" {
		return statusStyle.Render(m.status)
	}
	hint := "tab focus · enter send"
	if !m.user.IsAdmin() {
		hint += " · n new conversation"
	}
	return dimStyle.Render(hint)
}

func (m *Model) mainWidth() int {
	w := m.width - sidebarWidth
	if m.user.IsAdmin() {
		w -= queueWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) resize() {
	// Header, input box, offline hint, status line.
	vpHeight := m.height - 2 - m.input.Height() - 2
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = m.mainWidth()
	m.viewport.Height = vpHeight
	m.input.SetWidth(m.mainWidth() - 2)
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	st := m.engine.State()
	m.viewport.SetContent(renderMessages(st.Messages, m.user.Email, m.viewport.Width))
	m.viewport.GotoBottom()
}
