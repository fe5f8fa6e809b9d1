package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is a dialog drawn over the whole screen. It receives every key until
// Update reports it closed.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// placeModal centers body in an accent-bordered box at most maxWidth wide.
func placeModal(theme Theme, width, height, maxWidth int, body string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(min(width-4, maxWidth))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box.Render(body))
}
