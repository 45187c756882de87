package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nwestfall/parley/internal/types"
)

// renderMessages renders the conversation in append order. Own
// messages and the other side get distinct sender colors; an entry
// with no timestamp is still awaiting server confirmation.
func renderMessages(messages []types.Message, localEmail string, width int) string {
	if len(messages) == 0 {
		return ""
	}
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(formatMessage(msg, localEmail, width))
	}
	return b.String()
}

func formatMessage(msg types.Message, localEmail string, width int) string {
	senderStyle := lipgloss.NewStyle().Foreground(otherColor).Bold(true)
	if msg.MessageFrom == localEmail {
		senderStyle = lipgloss.NewStyle().Foreground(ownColor).Bold(true)
	}

	header := senderStyle.Render(msg.MessageFrom)
	if msg.TimeStamp != nil {
		header += dimStyle.Render(" · " + msg.TimeStamp.Format("15:04"))
	} else if msg.MessageFrom == localEmail {
		header += dimStyle.Render(" · sending")
	}

	bodyStyle := lipgloss.NewStyle().Foreground(textColor)
	if width > 4 {
		bodyStyle = bodyStyle.Width(width)
	}
	return header + "\n" + bodyStyle.Render(msg.Message)
}
