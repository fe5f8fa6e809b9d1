package ui

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/backroom/internal/diag"
)

const diagTailRecords = 500

// diagState holds the diagnostics view.
type diagState struct {
	records []diag.Record
	err     error
	level   slog.Level
	follow  bool
}

type diagMsg struct {
	records []diag.Record
	err     error
}

var diagLevels = []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

func nextLevel(l slog.Level) slog.Level {
	for i, lvl := range diagLevels {
		if lvl == l {
			return diagLevels[(i+1)%len(diagLevels)]
		}
	}
	return diagLevels[0]
}

func fetchDiagCmd(path string) tea.Cmd {
	return func() tea.Msg {
		records, err := diag.Tail(path, diagTailRecords)
		return diagMsg{records: records, err: err}
	}
}

// diagContent formats records for the viewport.
func (m Model) diagContent() string {
	styles := m.theme.Styles()
	if m.diag.err != nil {
		return styles.DangerText.Render(m.diag.err.Error())
	}
	records := diag.Filter(m.diag.records, m.diag.level)
	if len(records) == 0 {
		return styles.MutedText.Render("No log records at " + m.diag.level.String() + " or above")
	}
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, m.formatRecord(r, styles))
	}
	return strings.Join(lines, "\n")
}

func (m Model) formatRecord(r diag.Record, styles Styles) string {
	if r.Time.IsZero() && r.Attrs == nil {
		return styles.FaintText.Render(r.Raw)
	}
	levelStyle := styles.InfoText
	switch {
	case r.Level >= slog.LevelError:
		levelStyle = styles.DangerText
	case r.Level >= slog.LevelWarn:
		levelStyle = styles.WarningText
	case r.Level < slog.LevelInfo:
		levelStyle = styles.FaintText
	}

	var b strings.Builder
	b.WriteString(styles.MutedText.Render(r.Time.Local().Format("15:04:05")))
	b.WriteString(" ")
	b.WriteString(levelStyle.Render(padRight(r.Level.String(), 5)))
	b.WriteString(" ")
	if c := r.Component(); c != "" {
		b.WriteString(styles.AccentText.Render("[" + c + "] "))
	}
	b.WriteString(styles.Text.Render(r.Msg))
	for _, k := range r.AttrKeys() {
		if k == "component" {
			continue
		}
		b.WriteString(styles.FaintText.Render(fmt.Sprintf(" %s=%v", k, r.Attrs[k])))
	}
	return b.String()
}

func (m Model) renderDiagnostics(width, height int) string {
	follow := "paused"
	if m.diag.follow {
		follow = "following"
	}
	title := fmt.Sprintf("Diagnostics · %s+ · %s", m.diag.level, follow)
	return m.renderBox(title, m.viewport.View(), width, height, m.focus == focusContent)
}
