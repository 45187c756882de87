package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/nwestfall/parley/internal/types"
)

// statusIcon marks a channel's lifecycle state in the lists.
func statusIcon(status string) string {
	switch status {
	case types.StatusActive:
		return "●"
	case types.StatusInProgress:
		return "◐"
	case types.StatusInactive:
		return "○"
	case types.StatusComplete:
		return "✓"
	}
	return "·"
}

// channelLabel is the one-line sidebar entry for a channel.
func channelLabel(ch types.Channel, width int) string {
	name := ch.UserFullName
	if name == "" {
		name = ch.UserEmail
	}
	if name == "" {
		name = ch.ID
	}
	label := statusIcon(ch.CurrentStatus) + " " + name
	return ansi.Truncate(label, width, "…")
}

func (m *Model) renderSidebar() string {
	return m.renderChannelList("My Messages", m.myChannels, m.channelIndex,
		m.focus == focusChannels, "chan-", sidebarWidth)
}

func (m *Model) renderQueue() string {
	return m.renderChannelList("Active Queue", m.activeQueue, m.queueIndex,
		m.focus == focusQueue, "queue-", queueWidth)
}

func (m *Model) renderChannelList(title string, list []types.Channel, index int, focused bool, zonePrefix string, width int) string {
	inner := width - 4
	var b strings.Builder
	titleStyle := dimStyle
	if focused {
		titleStyle = headerStyle
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	selectedID := m.engine.State().SelectedID()
	if len(list) == 0 {
		b.WriteString(dimStyle.Render("(none)"))
	}
	for i, ch := range list {
		line := channelLabel(ch, inner)
		switch {
		case ch.ID == selectedID:
			line = selectedLine.Render(line)
		case focused && i == index:
			line = lipgloss.NewStyle().Foreground(titleColor).Render(line)
		}
		b.WriteString(m.zones.Mark(zonePrefix+ch.ID, line))
		if i < len(list)-1 {
			b.WriteString("\n")
		}
	}
	height := m.height - 4
	if height < 3 {
		height = 3
	}
	return panelStyle.Width(width - 2).Height(height).Render(b.String())
}
