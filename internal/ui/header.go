package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the status bar: logo, page, session and live state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := newBgStyle(m.theme.Surface)
	compact := m.width < 100

	parts := []string{
		bg.render("backroom", styles.Logo),
		bg.render(pageTitle(m.currentPath()), styles.Text.Bold(true)),
	}

	if label := m.session.Label(); label != "" {
		user := bg.render(label, styles.MutedText)
		if !m.session.Expires.IsZero() {
			left := time.Until(m.session.Expires)
			switch {
			case left <= 0:
				user += bg.spaces(1) + bg.render("expired", styles.DangerText.Bold(true))
			case left < time.Hour && !compact:
				user += bg.spaces(1) + bg.render("expires in "+humanizeDuration(left), styles.WarningText)
			}
		}
		parts = append(parts, user)
	}

	switch {
	case m.snapshot.IsOffline():
		parts = append(parts, bg.render("● OFFLINE", styles.DangerText.Bold(true)))
	case m.connected != nil && m.connected():
		parts = append(parts, bg.render("● LIVE", styles.SuccessText))
	default:
		parts = append(parts, bg.render("● POLL", styles.WarningText))
	}

	if m.live.reloading() || m.reloading {
		parts = append(parts, bg.render("reloading", styles.InfoText))
	}

	if !m.lastPush.IsZero() && !compact {
		parts = append(parts,
			bg.render("push", styles.MutedText)+bg.spaces(1)+
				bg.render(m.lastPushEvent, styles.AccentText)+bg.spaces(1)+
				bg.render(relativeTime(m.lastPush), styles.FaintText))
	}

	if ts := m.snapshot.LastUpdated; !ts.IsZero() {
		parts = append(parts, bg.render(ts.Local().Format("15:04:05")+" ("+relativeTime(ts)+")", styles.MutedText))
	}

	if m.notice != "" {
		style := styles.InfoText
		if m.noticeErr {
			style = styles.DangerText
		}
		maxNotice := 60
		if compact {
			maxNotice = 30
		}
		parts = append(parts, bg.render(truncate(m.notice, maxNotice), style))
	} else if err := m.snapshot.LastError; err != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.render("ERROR", styles.DangerText.Bold(true))+bg.spaces(1)+
				bg.render(truncate(err.Error(), maxErr), styles.DangerText))
	}

	return bg.fill(strings.Join(parts, bg.spaces(2)), m.width)
}

// relativeTime formats t as "now", "5m ago" or "2h ago".
func relativeTime(t time.Time) string {
	since := time.Since(t)
	switch {
	case since < time.Minute:
		return "now"
	case since < time.Hour:
		return fmt.Sprintf("%dm ago", int(since.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(since.Hours()))
	}
}

// renderCommandBar renders the key hints for the active view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := newBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch {
	case m.focus == focusSidebar:
		commands = []cmd{
			{"j/k", "Navigate"},
			{"enter", "Open"},
			{"b", "Hide"},
			{"tab", "Content"},
		}
	case m.currentView == ViewRequests:
		commands = []cmd{
			{"j/k", "Navigate"},
			{"enter", "Detail"},
			{"c", "Clear"},
			{"p", "Page"},
			{"l", "Diagnostics"},
		}
	case m.currentView == ViewDiagnostics:
		follow := "Pause"
		if !m.diag.follow {
			follow = "Follow"
		}
		commands = []cmd{
			{"Space", follow},
			{"f", m.diag.level.String()},
			{"p", "Page"},
			{"n", "Requests"},
		}
	default:
		commands = []cmd{
			{"j/k", "Navigate"},
			{"r", "Reload"},
		}
		if pageKey(m.currentPath()) == "items" {
			commands = append(commands, cmd{"u", "Units"}, cmd{"v", "Image"})
		}
		commands = append(commands,
			cmd{"n", "Requests"},
			cmd{"l", "Diagnostics"},
			cmd{"tab", "Menu"},
		)
	}
	commands = append(commands, cmd{"?", "More"})

	colon := bg.render(":", styles.FaintText)
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments, bg.render(c.key, styles.AccentText)+colon+bg.render(c.desc, styles.MutedText))
	}
	segments = append(segments, bg.render("T", styles.AccentText)+colon+bg.render(m.theme.Name, styles.FaintText))

	return lipgloss.NewStyle().Width(m.width).Render(bg.fill(strings.Join(segments, bg.spaces(2)), m.width))
}
