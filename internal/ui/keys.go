package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit          key.Binding
	Help          key.Binding
	CycleTheme    key.Binding
	ToggleSidebar key.Binding
	Focus         key.Binding
	Escape        key.Binding
	Reload        key.Binding

	// View switching
	ViewPage        key.Binding
	ViewRequests    key.Binding
	ViewDiagnostics key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Confirm  key.Binding

	// Page actions
	EditUnits    key.Binding
	PreviewImage key.Binding

	// Requests / diagnostics
	Clear        key.Binding
	CycleLevel   key.Binding
	ToggleFollow key.Binding

	// Unit editor
	AddRow    key.Binding
	RemoveRow key.Binding
	NextField key.Binding
	PrevField key.Binding
	Save      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		ToggleSidebar: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Toggle sidebar"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "Sidebar/content focus"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back to page"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload page"),
		),

		ViewPage: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Page view"),
		),
		ViewRequests: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Network requests"),
		),
		ViewDiagnostics: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Diagnostics log"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("ctrl+u", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("ctrl+d", "Page down"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open"),
		),

		EditUnits: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Edit units"),
		),
		PreviewImage: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "Preview image"),
		),

		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Clear requests"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle level filter"),
		),
		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow"),
		),

		AddRow: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add row"),
		),
		RemoveRow: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Remove row"),
		),
		NextField: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "Previous field"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Save"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Focus, k.ToggleSidebar, k.ViewPage, k.ViewRequests, k.ViewDiagnostics, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown, k.Confirm},
		{k.Reload, k.EditUnits, k.PreviewImage},
		{k.Clear, k.CycleLevel, k.ToggleFollow},
		{k.AddRow, k.RemoveRow, k.NextField, k.PrevField, k.Save},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
