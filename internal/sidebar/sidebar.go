// Package sidebar tracks whether the navigation sidebar is open and which of
// its sub-menus are expanded. The state survives restarts.
package sidebar

import (
	"maps"

	"github.com/five82/backroom/internal/draft"
	"github.com/five82/backroom/internal/kv"
)

// StorageKey is the persistence namespace.
const StorageKey = "sidebar-storage"

// State is the sidebar state. A label missing from OpenMenus is closed.
type State struct {
	IsOpen    bool
	OpenMenus map[string]bool
}

type persisted struct {
	IsOpen    bool            `toml:"is_open"`
	OpenMenus map[string]bool `toml:"open_menus"`
}

// Store wraps a persisted draft store with the sidebar actions.
type Store struct {
	s *draft.Store[State]
}

// New restores the sidebar from storage. storage may be nil for a transient
// store; onError receives persistence failures.
func New(storage kv.Storage, onError func(error)) *Store {
	initial := State{IsOpen: true, OpenMenus: map[string]bool{}}
	opts := []draft.Option[State]{draft.WithClone(clone)}
	if storage != nil {
		opts = append(opts, draft.Persist(storage, StorageKey, partialize, merge, onError))
	}
	return &Store{s: draft.New(initial, opts...)}
}

func partialize(s State) persisted {
	return persisted{IsOpen: s.IsOpen, OpenMenus: s.OpenMenus}
}

func merge(s State, p persisted) State {
	s.IsOpen = p.IsOpen
	if p.OpenMenus != nil {
		s.OpenMenus = p.OpenMenus
	}
	return s
}

// State returns the current snapshot.
func (st *Store) State() State { return st.s.Get() }

// Subscribe forwards to the underlying store.
func (st *Store) Subscribe(fn func(State)) func() { return st.s.Subscribe(fn) }

func (st *Store) Toggle() {
	st.s.Update(func(s State) State { s.IsOpen = !s.IsOpen; return s })
}

func (st *Store) Open() {
	st.s.Update(func(s State) State { s.IsOpen = true; return s })
}

func (st *Store) Close() {
	st.s.Update(func(s State) State { s.IsOpen = false; return s })
}

// ToggleMenu flips the expansion flag of one sub-menu.
func (st *Store) ToggleMenu(label string) {
	st.s.Mutate(func(d *State) { d.OpenMenus[label] = !d.OpenMenus[label] })
}

// SetMenuOpen sets the expansion flag of one sub-menu.
func (st *Store) SetMenuOpen(label string, open bool) {
	st.s.Mutate(func(d *State) { d.OpenMenus[label] = open })
}

// IsMenuOpen reports whether label is expanded.
func (st *Store) IsMenuOpen(label string) bool {
	return st.s.Get().OpenMenus[label]
}

// clone copies s deeply enough for a Mutate recipe to edit OpenMenus.
func clone(s State) State {
	s.OpenMenus = maps.Clone(s.OpenMenus)
	if s.OpenMenus == nil {
		s.OpenMenus = make(map[string]bool)
	}
	return s
}
