package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/five82/backroom/internal/netlog"
)

// requestsChangedMsg carries a fresh copy of the request log.
type requestsChangedMsg []netlog.RequestLog

func requestsTable(logs []netlog.RequestLog) table {
	t := table{
		Columns: []column{
			{Title: "Time", Width: 8},
			{Title: "Kind", Width: 7},
			{Title: "Method", Width: 6},
			{Title: "Status", Width: 6, Right: true},
			{Title: "Took", Width: 7, Right: true},
			{Title: "URL"},
		},
		Status: -1,
		Warn:   func(r int) bool { return logs[r].Error },
	}
	for _, l := range logs {
		status := "..."
		if l.Settled {
			status = "ERR"
			if l.Status > 0 {
				status = fmt.Sprintf("%d", l.Status)
			}
		}
		t.Rows = append(t.Rows, []string{
			l.StartTime.Local().Format("15:04:05"),
			string(l.Kind),
			l.Method,
			status,
			formatLatency(l.Duration),
			l.URL,
		})
	}
	return t
}

// requestDetail renders one entry for the detail viewport.
func requestDetail(l netlog.RequestLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", l.Method, l.URL)
	fmt.Fprintf(&b, "id %s · %s · started %s", l.ID, l.Kind, l.StartTime.Local().Format("15:04:05.000"))
	if l.Settled {
		fmt.Fprintf(&b, " · status %d · %s", l.Status, formatLatency(l.Duration))
	}
	if l.Error {
		b.WriteString(" · error")
	}
	b.WriteString("\n\n")
	if l.Payload != nil && l.Payload != "" {
		b.WriteString("Payload\n")
		b.WriteString(prettyBody(l.Payload))
		b.WriteString("\n\n")
	}
	b.WriteString("Response\n")
	if l.Response == nil {
		b.WriteString("(pending)")
	} else {
		b.WriteString(prettyBody(l.Response))
	}
	return b.String()
}

// prettyBody indents JSON bodies and returns anything else verbatim.
func prettyBody(v any) string {
	s, ok := v.(string)
	if !ok {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(s), "", "  "); err != nil {
		return s
	}
	return out.String()
}

func (m Model) renderRequests(width, height int) string {
	focused := m.focus == focusContent
	bgColor := m.theme.SurfaceAlt
	if focused {
		bgColor = m.theme.FocusBg
	}
	styles := m.theme.Styles().WithBackground(bgColor)

	title := fmt.Sprintf("Requests (%d)", len(m.reqLogs))
	if m.reqDetail && m.reqCursor < len(m.reqLogs) {
		return m.renderBox(title+" · detail", m.viewport.View(), width, height, focused)
	}
	if len(m.reqLogs) == 0 {
		return m.renderBox(title, styles.MutedText.Render("No requests recorded"), width, height, focused)
	}
	return m.renderBox(title, m.renderTable(requestsTable(m.reqLogs), m.reqCursor, width-2, height-2, bgColor), width, height, focused)
}
