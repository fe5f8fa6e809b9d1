package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/backroom/internal/api"
	"github.com/five82/backroom/internal/query"
)

// lowStockThreshold marks items to reorder.
const lowStockThreshold = 5

// listState holds a query-backed list.
type listState[T any] struct {
	data    []T
	err     error
	loading bool
}

type itemsMsg struct {
	items []api.Item
	err   error
}

type suppliersMsg struct {
	suppliers []api.Supplier
	err       error
}

// queryInvalidatedMsg reports that cached queries under Key went stale.
type queryInvalidatedMsg struct {
	Key string
}

var (
	itemsKey     = []string{"items"}
	suppliersKey = []string{"suppliers"}
)

func fetchItemsCmd(ctx context.Context, cache *query.Cache, backend api.Backend) tea.Cmd {
	return func() tea.Msg {
		items, err := query.Get(ctx, cache, itemsKey, func(ctx context.Context) ([]api.Item, error) {
			return backend.FetchItems(ctx, api.ListQuery{PerPage: 200})
		})
		return itemsMsg{items: items, err: err}
	}
}

func fetchSuppliersCmd(ctx context.Context, cache *query.Cache, backend api.Backend) tea.Cmd {
	return func() tea.Msg {
		suppliers, err := query.Get(ctx, cache, suppliersKey, func(ctx context.Context) ([]api.Supplier, error) {
			return backend.FetchSuppliers(ctx, api.ListQuery{PerPage: 200})
		})
		return suppliersMsg{suppliers: suppliers, err: err}
	}
}

// loadPageDataCmd starts the query fetches the page on screen depends on.
func (m *Model) loadPageDataCmd() tea.Cmd {
	if m.cache == nil || m.backend == nil {
		return nil
	}
	switch pageKey(m.currentPath()) {
	case "items":
		m.items.loading = true
		return fetchItemsCmd(m.ctx, m.cache, m.backend)
	case "suppliers":
		m.suppliers.loading = true
		return fetchSuppliersCmd(m.ctx, m.cache, m.backend)
	}
	return nil
}

// pageTable builds the table for the page on screen, or an explanation of
// why there is none.
func (m Model) pageTable() (table, string) {
	key := pageKey(m.currentPath())
	switch key {
	case "items":
		return itemsTable(m.items)
	case "suppliers":
		return suppliersTable(m.suppliers)
	}

	if !m.snapshot.HasPage {
		if m.snapshot.LastError != nil {
			return table{}, "Unable to load page: " + m.snapshot.LastError.Error()
		}
		return table{}, "Loading..."
	}
	if key == "orders" {
		orders, err := api.DecodeProp[[]api.Order](m.snapshot.Page, "orders")
		if err != nil {
			return table{}, err.Error()
		}
		return ordersTable(orders)
	}
	rows, err := decodeRows(m.snapshot.Page, key)
	if err != nil {
		return table{}, err.Error()
	}
	return rowsTable(rows)
}

func ordersTable(orders []api.Order) (table, string) {
	if len(orders) == 0 {
		return table{}, "No orders"
	}
	t := table{
		Columns: []column{
			{Title: "Number", Width: 12},
			{Title: "Customer"},
			{Title: "Status", Width: 12},
			{Title: "Total", Width: 10, Right: true},
			{Title: "Placed", Width: 16},
		},
		Status: 2,
	}
	for _, o := range orders {
		placed := ""
		if !o.PlacedAt.IsZero() {
			placed = o.PlacedAt.Local().Format("2006-01-02 15:04")
		}
		t.Rows = append(t.Rows, []string{o.Number, o.Customer, o.NormalizedStatus(), formatMoney(o.Total), placed})
	}
	return t, ""
}

func itemsTable(s listState[api.Item]) (table, string) {
	switch {
	case s.err != nil && len(s.data) == 0:
		return table{}, "Unable to load items: " + s.err.Error()
	case s.loading && len(s.data) == 0:
		return table{}, "Loading items..."
	case len(s.data) == 0:
		return table{}, "No items"
	}
	t := table{
		Columns: []column{
			{Title: "SKU", Width: 12},
			{Title: "Name"},
			{Title: "Stock", Width: 8, Right: true},
			{Title: "Unit", Width: 8},
			{Title: "Price", Width: 10, Right: true},
			{Title: "Kind", Width: 6},
		},
		Status: -1,
		Warn:   func(r int) bool { return s.data[r].LowStock(lowStockThreshold) },
	}
	for _, it := range s.data {
		kind := "single"
		if it.IsSet {
			kind = "set"
		}
		t.Rows = append(t.Rows, []string{it.SKU, it.Name, formatQuantity(it.Stock), it.UnitName, formatMoney(it.Price), kind})
	}
	return t, ""
}

func suppliersTable(s listState[api.Supplier]) (table, string) {
	switch {
	case s.err != nil && len(s.data) == 0:
		return table{}, "Unable to load suppliers: " + s.err.Error()
	case s.loading && len(s.data) == 0:
		return table{}, "Loading suppliers..."
	case len(s.data) == 0:
		return table{}, "No suppliers"
	}
	t := table{
		Columns: []column{{Title: "Name"}, {Title: "Email"}, {Title: "Phone", Width: 16}},
		Status:  -1,
	}
	for _, sup := range s.data {
		t.Rows = append(t.Rows, []string{sup.Name, sup.Email, sup.Phone})
	}
	return t, ""
}

// decodeRows reads a page's main list prop, either a bare array or a
// paginated {"data": [...]} object.
func decodeRows(page api.Page, prop string) ([]api.Row, error) {
	raw, ok := page.Props[prop]
	if !ok {
		return nil, fmt.Errorf("page %s has no %q list", page.Component, prop)
	}
	var rows []api.Row
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}
	var paged api.ListResponse[api.Row]
	if err := json.Unmarshal(raw, &paged); err != nil {
		return nil, fmt.Errorf("decode %q: %w", prop, err)
	}
	return paged.Data, nil
}

const maxGenericColumns = 6

// rowsTable renders untyped rows, preferring id, name and status columns.
func rowsTable(rows []api.Row) (table, string) {
	if len(rows) == 0 {
		return table{}, "Nothing here yet"
	}
	seen := map[string]bool{}
	for _, r := range rows {
		for k, v := range r {
			switch v.(type) {
			case map[string]any, []any:
				continue
			}
			seen[k] = true
		}
	}
	keys := slices.Sorted(maps.Keys(seen))
	rank := func(k string) int {
		switch k {
		case "id":
			return 0
		case "name", "code", "title":
			return 1
		case "status":
			return 2
		}
		return 3
	}
	sort.SliceStable(keys, func(i, j int) bool { return rank(keys[i]) < rank(keys[j]) })
	if len(keys) > maxGenericColumns {
		keys = keys[:maxGenericColumns]
	}

	t := table{Status: -1}
	for i, k := range keys {
		c := column{Title: titleCase(k)}
		if k == "id" {
			c.Width = 6
		}
		if k == "status" {
			t.Status = i
			c.Width = 12
		}
		t.Columns = append(t.Columns, c)
	}
	for _, r := range rows {
		cells := make([]string, len(keys))
		for i, k := range keys {
			cells[i] = formatCell(r[k])
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, ""
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatQuantity(x)
	case bool:
		if x {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprint(x)
	}
}

// statsLine summarizes numeric props such as the orders page "stats".
func statsLine(page api.Page) string {
	stats, err := api.DecodeProp[map[string]float64](page, "stats")
	if err != nil || len(stats) == 0 {
		return ""
	}
	parts := make([]string, 0, len(stats))
	for _, k := range slices.Sorted(maps.Keys(stats)) {
		parts = append(parts, fmt.Sprintf("%s %s", strings.ReplaceAll(k, "_", " "), formatQuantity(stats[k])))
	}
	return strings.Join(parts, " · ")
}

// rowCount is the number of selectable rows on the page.
func (m Model) rowCount() int {
	t, _ := m.pageTable()
	return len(t.Rows)
}

// selectedItem returns the highlighted item on the items page.
func (m Model) selectedItem() (api.Item, bool) {
	if pageKey(m.currentPath()) != "items" || m.row >= len(m.items.data) || m.row < 0 {
		return api.Item{}, false
	}
	return m.items.data[m.row], true
}

// renderPage renders the page content pane.
func (m Model) renderPage(width, height int) string {
	focused := m.focus == focusContent
	bgColor := m.theme.SurfaceAlt
	if focused {
		bgColor = m.theme.FocusBg
	}
	styles := m.theme.Styles().WithBackground(bgColor)
	inner := width - 2
	bodyHeight := height - 2

	var header string
	if pageKey(m.currentPath()) == "orders" {
		header = statsLine(m.snapshot.Page)
	}

	t, empty := m.pageTable()
	var body string
	if empty != "" {
		body = lipgloss.Place(inner, bodyHeight, lipgloss.Center, lipgloss.Center, styles.MutedText.Render(empty),
			lipgloss.WithWhitespaceBackground(lipgloss.Color(bgColor)))
	} else {
		tableHeight := bodyHeight
		if header != "" {
			tableHeight--
		}
		body = m.renderTable(t, m.row, inner, tableHeight, bgColor)
		if header != "" {
			body = styles.InfoText.Render(truncate(header, inner)) + "\n" + body
		}
	}

	title := pageTitle(m.currentPath())
	if n := len(t.Rows); n > 0 {
		title = fmt.Sprintf("%s (%d)", title, n)
	}
	return m.renderBox(title, body, width, height, focused)
}
