package ui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/backroom/internal/api"
	"github.com/five82/backroom/internal/netlog"
	"github.com/five82/backroom/internal/prefs"
	"github.com/five82/backroom/internal/preview"
	"github.com/five82/backroom/internal/query"
	"github.com/five82/backroom/internal/realtime"
	"github.com/five82/backroom/internal/sidebar"
	"github.com/five82/backroom/internal/state"
	"github.com/five82/backroom/internal/units"
)

// View represents the current active view.
type View int

const (
	ViewPage View = iota
	ViewRequests
	ViewDiagnostics
)

type focusArea int

const (
	focusContent focusArea = iota
	focusSidebar
)

// Navigator visits pages and reloads the current one.
type Navigator interface {
	realtime.Reloader
	Visit(ctx context.Context, path string) error
	Path() string
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *state.Store
	Router    Navigator
	Backend   api.Backend
	Cache     *query.Cache
	Transport realtime.Transport
	Metrics   *realtime.Metrics
	Connected func() bool
	Sidebar   *sidebar.Store
	Preview   *preview.Store
	Requests  *netlog.Store
	Units     *units.Store
	Prefs     *prefs.Store
	Session   api.Session
	LogFile   string
	Logger    *slog.Logger
	PollTick  time.Duration
}

const eventBuffer = 64

// Model is the root application state for Bubble Tea.
type Model struct {
	// Collaborators
	ctx          context.Context
	store        *state.Store
	router       Navigator
	backend      api.Backend
	cache        *query.Cache
	connected    func() bool
	sidebar      *sidebar.Store
	previewStore *preview.Store
	requests     *netlog.Store
	unitsStore   *units.Store
	prefs        *prefs.Store
	session      api.Session
	logFile      string
	logger       *slog.Logger
	pollTick     time.Duration

	events   chan tea.Msg
	live     *liveMount
	teardown []func()

	// UI state
	theme       Theme
	keys        keyMap
	currentView View
	focus       focusArea
	width       int
	height      int
	ready       bool
	showHelp    bool
	modal       Modal
	preview     *previewModal
	navCursor   int
	notice      string
	noticeErr   bool

	// Page state
	snapshot      state.Snapshot
	row           int
	reloading     bool
	lastPush      time.Time
	lastPushEvent string
	items         listState[api.Item]
	suppliers     listState[api.Supplier]

	// Requests state
	reqLogs   []netlog.RequestLog
	reqCursor int
	reqDetail bool

	// Diagnostics state
	diag diagState

	viewport viewport.Model
}

// New creates the model and subscribes it to the stores it renders.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}
	sb := opts.Sidebar
	if sb == nil {
		sb = sidebar.New(nil, nil)
	}
	pv := opts.Preview
	if pv == nil {
		pv = preview.New()
	}
	us := opts.Units
	if us == nil {
		us = units.New()
	}

	themeName := ""
	if opts.Prefs != nil {
		themeName = opts.Prefs.Get().Theme
	}

	m := Model{
		ctx:          ctx,
		store:        opts.Store,
		router:       opts.Router,
		backend:      opts.Backend,
		cache:        opts.Cache,
		connected:    opts.Connected,
		sidebar:      sb,
		previewStore: pv,
		requests:     opts.Requests,
		unitsStore:   us,
		prefs:        opts.Prefs,
		session:      opts.Session,
		logFile:      opts.LogFile,
		logger:       logger.With("component", "ui"),
		pollTick:     pollTick,
		events:       make(chan tea.Msg, eventBuffer),
		theme:        GetTheme(themeName),
		keys:         DefaultKeyMap(),
		diag:         diagState{level: slog.LevelInfo, follow: true},
		viewport:     viewport.New(0, 0),
	}
	post := m.post

	var invalidator realtime.Invalidator
	if m.cache != nil {
		invalidator = m.cache
	}
	var reloader realtime.Reloader
	if m.router != nil {
		reloader = m.router
	}
	m.live = &liveMount{
		transport:   opts.Transport,
		reloader:    reloader,
		invalidator: invalidator,
		opts:        realtime.Options{Context: ctx, Logger: logger, Metrics: opts.Metrics},
		post:        post,
	}

	if m.store != nil {
		m.snapshot = m.store.Snapshot()
		m.teardown = append(m.teardown, m.store.Subscribe(func() { post(storeChangedMsg{}) }))
	}
	if m.requests != nil {
		m.reqLogs = m.requests.Logs()
		m.teardown = append(m.teardown, m.requests.Subscribe(func(logs []netlog.RequestLog) {
			post(requestsChangedMsg(logs))
		}))
	}
	if m.cache != nil {
		m.teardown = append(m.teardown,
			m.cache.Observe(itemsKey, func() { post(queryInvalidatedMsg{Key: "items"}) }),
			m.cache.Observe(suppliersKey, func() { post(queryInvalidatedMsg{Key: "suppliers"}) }),
		)
	}
	if _, entry, ok := groupFor(m.currentPath()); ok {
		m.focusEntry(entry.Path)
	}
	return m
}

// post queues a message from a store subscriber or bridge callback. It never
// blocks; when the queue is full the message is dropped and the next tick
// resyncs from the stores.
func (m Model) post(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
	}
}

// close releases bridges, subscriptions and the preview handle.
func (m Model) close() {
	m.live.close()
	if m.preview != nil {
		m.preview.close()
	}
	for _, cancel := range m.teardown {
		cancel()
	}
}

// currentPath is the path of the page on screen.
func (m Model) currentPath() string {
	if m.router == nil {
		return ""
	}
	return m.router.Path()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	m.live.mount(pageKey(m.currentPath()))
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		waitForEvent(m.ctx, m.events),
	}
	if cmd := m.loadPageDataCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		next, cmd := m.Update(msg.msg)
		return next, tea.Batch(cmd, waitForEvent(m.ctx, m.events))

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case storeChangedMsg:
		if m.store != nil {
			m.snapshot = m.store.Snapshot()
		}
		m.clampRow()
		m.live.mount(pageKey(m.currentPath()))
		return m, nil

	case visitDoneMsg:
		return m.handleVisitDone(msg)

	case reloadedMsg:
		m.reloading = false
		if msg.err != nil {
			m.setError(msg.err)
		}
		return m, nil

	case pushMsg:
		m.lastPush = time.Now()
		m.lastPushEvent = msg.Event
		return m, nil

	case reloadDoneMsg:
		return m, nil

	case itemsMsg:
		m.items.loading, m.items.err = false, msg.err
		if msg.err == nil {
			m.items.data = msg.items
		}
		m.clampRow()
		return m, nil

	case suppliersMsg:
		m.suppliers.loading, m.suppliers.err = false, msg.err
		if msg.err == nil {
			m.suppliers.data = msg.suppliers
		}
		m.clampRow()
		return m, nil

	case queryInvalidatedMsg:
		if pageKey(m.currentPath()) != msg.Key {
			return m, nil
		}
		return m, m.loadPageDataCmd()

	case requestsChangedMsg:
		m.reqLogs = msg
		m.clampReqCursor()
		return m, nil

	case diagMsg:
		m.diag.records, m.diag.err = msg.records, msg.err
		m.refreshDiagViewport()
		return m, nil

	case unitsLoadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		itemID := msg.item.ID
		m.modal = newUnitsEditor(msg.item, msg.units, m.unitsStore, func(payload []byte) tea.Cmd {
			return saveUnitsCmd(m.ctx, m.backend, itemID, payload)
		})
		return m, nil

	case unitsSavedMsg:
		if m.modal == nil {
			return m, nil
		}
		next, cmd, closed := m.modal.Update(msg, m.keys)
		m.modal = next
		if closed {
			m.modal = nil
			m.setNotice("Units saved")
			if m.cache != nil {
				m.cache.InvalidateQueries(itemsKey)
			}
		}
		return m, cmd

	case assetMsg:
		if m.preview == nil {
			return m, nil
		}
		_, cmd, _ := m.preview.Update(msg, m.keys)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

func (m Model) renderMain() string {
	header := m.renderHeader()
	commands := m.renderCommandBar()
	bodyHeight := max(m.height-2, 3)

	contentWidth := m.width
	var side string
	if m.sidebar.State().IsOpen {
		side = m.renderSidebar(bodyHeight)
		contentWidth -= sidebarWidth
	}

	var content string
	switch m.currentView {
	case ViewRequests:
		content = m.renderRequests(contentWidth, bodyHeight)
	case ViewDiagnostics:
		content = m.renderDiagnostics(contentWidth, bodyHeight)
	default:
		content = m.renderPage(contentWidth, bodyHeight)
	}

	body := content
	if side != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, side, content)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, commands, body)
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.modal != nil {
		next, cmd, closed := m.modal.Update(msg, m.keys)
		m.modal = next
		if closed {
			m.modal = nil
			if _, ok := next.(*previewModal); ok {
				m.preview = nil
			}
		}
		return m, cmd
	}

	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.prefs != nil {
			m.prefs.SetTheme(m.theme.Name)
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.sidebar.Toggle()
		if !m.sidebar.State().IsOpen {
			m.focus = focusContent
		}
		m.resizeViewport()
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusSidebar || !m.sidebar.State().IsOpen {
			m.focus = focusContent
		} else {
			m.focus = focusSidebar
			m.clampNavCursor()
		}
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		switch {
		case m.focus == focusSidebar:
			m.focus = focusContent
		case m.reqDetail:
			m.reqDetail = false
		default:
			m.currentView = ViewPage
		}
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		return m.reload()

	case key.Matches(msg, m.keys.ViewPage):
		m.currentView = ViewPage
		m.focus = focusContent
		return m, nil

	case key.Matches(msg, m.keys.ViewRequests):
		m.currentView = ViewRequests
		m.focus = focusContent
		m.reqDetail = false
		return m, nil

	case key.Matches(msg, m.keys.ViewDiagnostics):
		m.currentView = ViewDiagnostics
		m.focus = focusContent
		return m, fetchDiagCmd(m.logFile)
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	switch m.currentView {
	case ViewRequests:
		return m.handleRequestsKey(msg)
	case ViewDiagnostics:
		return m.handleDiagnosticsKey(msg)
	default:
		return m.handlePageKey(msg)
	}
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := visibleRows(m.sidebar.State())
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.navCursor > 0 {
			m.navCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.navCursor < len(rows)-1 {
			m.navCursor++
		}
	case key.Matches(msg, m.keys.Top):
		m.navCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.navCursor = len(rows) - 1
	case key.Matches(msg, m.keys.Confirm):
		if m.navCursor >= len(rows) {
			return m, nil
		}
		r := rows[m.navCursor]
		g := menu[r.group]
		if r.isHeader() {
			m.sidebar.ToggleMenu(g.Label)
			m.clampNavCursor()
			return m, nil
		}
		m.focus = focusContent
		m.currentView = ViewPage
		return m, visitCmd(m.ctx, m.router, g.Entries[r.entry].Path)
	}
	return m, nil
}

func (m Model) handlePageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.rowCount()
	page := max(m.height-8, 1)
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.row > 0 {
			m.row--
		}
	case key.Matches(msg, m.keys.Down):
		if m.row < n-1 {
			m.row++
		}
	case key.Matches(msg, m.keys.Top):
		m.row = 0
	case key.Matches(msg, m.keys.Bottom):
		m.row = max(n-1, 0)
	case key.Matches(msg, m.keys.PageUp):
		m.row = max(m.row-page, 0)
	case key.Matches(msg, m.keys.PageDown):
		m.row = max(min(m.row+page, n-1), 0)

	case key.Matches(msg, m.keys.EditUnits):
		item, ok := m.selectedItem()
		if !ok || m.backend == nil {
			return m, nil
		}
		m.setNotice("Loading units for " + item.Name)
		return m, loadUnitsCmd(m.ctx, m.backend, item)

	case key.Matches(msg, m.keys.PreviewImage):
		item, ok := m.selectedItem()
		if !ok || m.backend == nil {
			return m, nil
		}
		if item.ImageURL == "" {
			m.setNotice(item.Name + " has no image")
			return m, nil
		}
		if m.preview != nil {
			m.preview.close()
		}
		m.previewStore.Show(preview.URLSource(item.ImageURL), item.Name, "")
		m.preview = newPreviewModal(m.previewStore)
		m.modal = m.preview
		return m, fetchAssetCmd(m.ctx, m.backend, item.ImageURL, item.Name)
	}
	return m, nil
}

func (m Model) handleRequestsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.reqDetail {
		if key.Matches(msg, m.keys.Confirm) {
			m.reqDetail = false
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.reqCursor > 0 {
			m.reqCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.reqCursor < len(m.reqLogs)-1 {
			m.reqCursor++
		}
	case key.Matches(msg, m.keys.Top):
		m.reqCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.reqCursor = max(len(m.reqLogs)-1, 0)
	case key.Matches(msg, m.keys.Confirm):
		if m.reqCursor < len(m.reqLogs) {
			m.reqDetail = true
			m.viewport.SetContent(requestDetail(m.reqLogs[m.reqCursor]))
			m.viewport.GotoTop()
		}
	case key.Matches(msg, m.keys.Clear):
		if m.requests != nil {
			m.requests.ClearLogs()
		}
		m.reqLogs, m.reqCursor = nil, 0
	}
	return m, nil
}

func (m Model) handleDiagnosticsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.CycleLevel):
		m.diag.level = nextLevel(m.diag.level)
		m.refreshDiagViewport()
		return m, nil
	case key.Matches(msg, m.keys.ToggleFollow):
		m.diag.follow = !m.diag.follow
		if m.diag.follow {
			m.viewport.GotoBottom()
			return m, fetchDiagCmd(m.logFile)
		}
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.diag.follow = true
		m.viewport.GotoBottom()
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.diag.follow = false
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Up, m.keys.PageUp):
		m.diag.follow = false
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// reload refetches the page on screen: query-backed pages invalidate their
// cache entry, server-rendered pages reload all props.
func (m Model) reload() (tea.Model, tea.Cmd) {
	switch page := pageKey(m.currentPath()); page {
	case "items", "suppliers":
		if m.cache == nil {
			return m, nil
		}
		m.cache.InvalidateQueries([]string{page})
		return m, nil
	}
	if m.router == nil || m.reloading {
		return m, nil
	}
	m.reloading = true
	return m, reloadCmd(m.ctx, m.router)
}

func (m Model) handleVisitDone(msg visitDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setError(msg.err)
		return m, nil
	}
	if pageKey(m.currentPath()) != pageKey(msg.path) {
		return m, nil
	}
	m.row = 0
	if m.prefs != nil {
		m.prefs.SetLastPage(msg.path)
	}
	m.focusEntry(msg.path)
	m.live.mount(pageKey(msg.path))
	return m, m.loadPageDataCmd()
}

// focusEntry expands the menu group holding path and moves the cursor to it.
func (m *Model) focusEntry(path string) {
	g, entry, ok := groupFor(path)
	if !ok {
		return
	}
	m.sidebar.SetMenuOpen(g.Label, true)
	for i, r := range visibleRows(m.sidebar.State()) {
		if !r.isHeader() && menu[r.group].Entries[r.entry].Path == entry.Path {
			m.navCursor = i
			return
		}
	}
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
	if m.requests != nil {
		m.reqLogs = m.requests.Logs()
		m.clampReqCursor()
	}
	if m.currentView == ViewDiagnostics && m.diag.follow {
		cmds = append(cmds, fetchDiagCmd(m.logFile))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) resizeViewport() {
	w := m.width - 2
	if m.sidebar.State().IsOpen {
		w -= sidebarWidth
	}
	m.viewport.Width = max(w, 1)
	m.viewport.Height = max(m.height-4, 1)
	m.refreshDiagViewport()
}

func (m *Model) refreshDiagViewport() {
	if m.currentView != ViewDiagnostics {
		return
	}
	m.viewport.SetContent(m.diagContent())
	if m.diag.follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) clampRow() {
	n := m.rowCount()
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

func (m *Model) clampReqCursor() {
	if m.reqCursor >= len(m.reqLogs) {
		m.reqCursor = len(m.reqLogs) - 1
	}
	if m.reqCursor < 0 {
		m.reqCursor = 0
	}
	if m.reqDetail && len(m.reqLogs) == 0 {
		m.reqDetail = false
	}
}

func (m *Model) setNotice(text string) {
	m.notice, m.noticeErr = text, false
}

func (m *Model) setError(err error) {
	m.logger.Warn("action failed", "error", err)
	m.notice, m.noticeErr = err.Error(), true
}

// Messages

type tickMsg time.Time

type storeChangedMsg struct{}

// eventMsg wraps a message posted from outside the program loop.
type eventMsg struct{ msg tea.Msg }

type visitDoneMsg struct {
	path string
	err  error
}

type reloadedMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEvent(ctx context.Context, events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-events:
			return eventMsg{msg: msg}
		case <-ctx.Done():
			return nil
		}
	}
}

func visitCmd(ctx context.Context, nav Navigator, path string) tea.Cmd {
	if nav == nil {
		return nil
	}
	return func() tea.Msg {
		return visitDoneMsg{path: path, err: nav.Visit(ctx, path)}
	}
}

func reloadCmd(ctx context.Context, nav Navigator) tea.Cmd {
	return func() tea.Msg {
		return reloadedMsg{err: nav.Reload(ctx, realtime.ReloadOptions{})}
	}
}

// Run starts the Bubble Tea program and releases the model's resources when
// it exits.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.close()
	} else {
		m.close()
	}
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
