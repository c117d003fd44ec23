package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready {
		return "Initializing...\n"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())
	b.WriteString("\n")
	b.WriteString(m.textArea.View())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("BOX FLOW")
	info := headerInfoStyle.Render(fmt.Sprintf("model: %s  session: %s",
		m.config.ModelName, truncate(m.config.SessionID, 8)))

	spacing := m.width - lipgloss.Width(title) - lipgloss.Width(info)
	if spacing < 1 {
		spacing = 1
	}
	return title + strings.Repeat(" ", spacing) + info
}

func (m *Model) renderSeparator() string {
	return separatorStyle.Render(strings.Repeat("─", m.separatorWidth()+4))
}

func (m *Model) renderHelp() string {
	if m.processing {
		return helpStyle.Render(m.spinner.View() + " working... ") + helpKeyStyle.Render("esc") + helpStyle.Render(" quit")
	}
	return helpKeyStyle.Render("enter") + helpStyle.Render(" send  ") +
		helpKeyStyle.Render("/help") + helpStyle.Render(" commands  ") +
		helpKeyStyle.Render("esc") + helpStyle.Render(" quit")
}
