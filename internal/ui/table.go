package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// column is a table column. Width 0 shares the leftover space.
type column struct {
	Title string
	Width int
	Right bool
}

// table is a rendered-on-demand grid of strings.
type table struct {
	Columns []column
	Rows    [][]string
	Status  int // column rendered as a status badge, -1 for none
	Warn    func(row int) bool
}

// layoutColumns resolves flex widths for a total width including single
// space separators.
func layoutColumns(cols []column, width int) []int {
	widths := make([]int, len(cols))
	fixed, flex := 0, 0
	for i, c := range cols {
		widths[i] = c.Width
		fixed += c.Width
		if c.Width == 0 {
			flex++
		}
	}
	spare := width - fixed - (len(cols) - 1)
	if flex == 0 || spare <= 0 {
		for i := range widths {
			if widths[i] == 0 {
				widths[i] = 1
			}
		}
		return widths
	}
	share, extra := spare/flex, spare%flex
	for i := range widths {
		if widths[i] == 0 {
			widths[i] = share
			if extra > 0 {
				widths[i]++
				extra--
			}
		}
	}
	return widths
}

// scrollOffset returns the first visible row so that selected is in view.
func scrollOffset(selected, visible, total int) int {
	if visible <= 0 || total <= visible {
		return 0
	}
	off := selected - visible + 1
	if off < 0 {
		off = 0
	}
	if off > total-visible {
		off = total - visible
	}
	return off
}

// renderTable draws the header and the rows around selected.
func (m Model) renderTable(t table, selected, width, height int, bgColor string) string {
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := newBgStyle(bgColor)
	widths := layoutColumns(t.Columns, width)

	cell := func(text string, i int) string {
		text = truncate(text, widths[i])
		if t.Columns[i].Right {
			return strings.Repeat(" ", max(widths[i]-len([]rune(text)), 0)) + text
		}
		return padRight(text, widths[i])
	}

	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = cell(c.Title, i)
	}
	lines := []string{bg.fill(styles.MutedText.Bold(true).Render(strings.Join(header, " ")), width)}

	visible := height - 1
	off := scrollOffset(selected, visible, len(t.Rows))
	for r := off; r < len(t.Rows) && r < off+visible; r++ {
		row := t.Rows[r]
		parts := make([]string, len(t.Columns))
		for i := range t.Columns {
			text := ""
			if i < len(row) {
				text = row[i]
			}
			parts[i] = cell(text, i)
		}
		if r == selected {
			lines = append(lines, styles.Selected.Width(width).Render(strings.Join(parts, " ")))
			continue
		}
		textStyle := styles.Text
		if t.Warn != nil && t.Warn(r) {
			textStyle = styles.WarningText
		}
		for i := range parts {
			if i == t.Status && strings.TrimSpace(parts[i]) != "" {
				badge := styles.StatusStyle(strings.TrimSpace(parts[i])).Padding(0).Render(parts[i])
				parts[i] = badge
				continue
			}
			parts[i] = textStyle.Render(parts[i])
		}
		lines = append(lines, bg.fill(strings.Join(parts, bg.spaces(1)), width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
