package ui

import (
	"strings"

	"github.com/five82/backroom/internal/sidebar"
)

type navEntry struct {
	Label string
	Path  string
}

type navGroup struct {
	Label   string
	Entries []navEntry
}

// menu is the sidebar layout. Group labels double as sidebar store menu keys.
var menu = []navGroup{
	{Label: "Sales", Entries: []navEntry{{"Orders", "/orders"}, {"Returns", "/returns"}}},
	{Label: "Inventory", Entries: []navEntry{{"Items", "/items"}, {"Suppliers", "/suppliers"}}},
	{Label: "Promotions", Entries: []navEntry{{"Discounts", "/discounts"}, {"Vouchers", "/vouchers"}}},
	{Label: "Admin", Entries: []navEntry{{"Users", "/users"}, {"Integrations", "/integrations"}}},
}

// navRow is one visible sidebar line. entry is -1 for a group header.
type navRow struct {
	group int
	entry int
}

func (r navRow) isHeader() bool { return r.entry < 0 }

// visibleRows lists headers and the entries of expanded groups.
func visibleRows(s sidebar.State) []navRow {
	var rows []navRow
	for gi, g := range menu {
		rows = append(rows, navRow{group: gi, entry: -1})
		if !s.OpenMenus[g.Label] {
			continue
		}
		for ei := range g.Entries {
			rows = append(rows, navRow{group: gi, entry: ei})
		}
	}
	return rows
}

// pageKey is the first path segment, e.g. "/orders?page=2" -> "orders".
func pageKey(path string) string {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if i := strings.IndexAny(path, "/?#"); i >= 0 {
		path = path[:i]
	}
	return strings.ToLower(path)
}

// groupFor returns the menu group holding path's page.
func groupFor(path string) (navGroup, navEntry, bool) {
	key := pageKey(path)
	for _, g := range menu {
		for _, e := range g.Entries {
			if pageKey(e.Path) == key {
				return g, e, true
			}
		}
	}
	return navGroup{}, navEntry{}, false
}

// pageTitle is the human name of path's page.
func pageTitle(path string) string {
	if _, e, ok := groupFor(path); ok {
		return e.Label
	}
	if key := pageKey(path); key != "" {
		return titleCase(key)
	}
	return "Home"
}

const sidebarWidth = 24

// renderSidebar draws the menu with the cursor and the current page marked.
func (m Model) renderSidebar(height int) string {
	state := m.sidebar.State()
	rows := visibleRows(state)
	focused := m.focus == focusSidebar
	current := pageKey(m.currentPath())

	styles := m.theme.Styles()
	var lines []string
	for i, r := range rows {
		g := menu[r.group]
		label, prefix := "", "   "
		style := styles.Text
		if r.isHeader() {
			prefix = "▸ "
			if state.OpenMenus[g.Label] {
				prefix = "▾ "
			}
			label = g.Label
			style = styles.AccentText.Bold(true)
		} else {
			e := g.Entries[r.entry]
			label = e.Label
			if pageKey(e.Path) == current {
				prefix = " • "
				style = styles.WarningText
			}
		}
		width := sidebarWidth - 2
		text := padRight(prefix+truncate(label, width-len([]rune(prefix))), width)
		if focused && i == m.navCursor {
			lines = append(lines, styles.Selected.Render(text))
			continue
		}
		lines = append(lines, style.Render(text))
	}
	return m.renderBox("Menu", strings.Join(lines, "\n"), sidebarWidth, height, focused)
}

// clampNavCursor keeps the cursor on a visible row.
func (m *Model) clampNavCursor() {
	n := len(visibleRows(m.sidebar.State()))
	if m.navCursor >= n {
		m.navCursor = n - 1
	}
	if m.navCursor < 0 {
		m.navCursor = 0
	}
}
