// Package prefs handles backroom user preferences persistence.
// Preferences live in the client-local storage under the "preferences" key.
package prefs

import (
	"strings"

	"github.com/google/uuid"

	"github.com/five82/backroom/internal/draft"
	"github.com/five82/backroom/internal/kv"
)

// StorageKey is the persistence namespace.
const StorageKey = "preferences"

// Prefs holds user preferences for backroom.
type Prefs struct {
	Theme    string `toml:"theme"`
	LastPage string `toml:"last_page"`
	DeviceID string `toml:"device_id"` // identifies this install to the API
}

const (
	defaultTheme    = "Nightfox"
	defaultLastPage = "/orders"
)

// Defaults returns the preferences used before anything is saved.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme, LastPage: defaultLastPage}
}

// Store is a persisted preferences store.
type Store struct {
	s *draft.Store[Prefs]
}

// Load restores preferences from storage, falling back to defaults for missing
// or unreadable values. A device id is generated and saved on first use.
func Load(storage kv.Storage, onError func(error)) *Store {
	st := &Store{s: draft.New(Defaults(), draft.Persist(storage, StorageKey, identity, merge, onError))}
	if st.Get().DeviceID == "" {
		st.s.Update(func(p Prefs) Prefs {
			p.DeviceID = uuid.NewString()
			return p
		})
	}
	return st
}

func identity(p Prefs) Prefs { return p }

func merge(defaults, saved Prefs) Prefs {
	out := defaults
	if v := strings.TrimSpace(saved.Theme); v != "" {
		out.Theme = v
	}
	if v := strings.TrimSpace(saved.LastPage); strings.HasPrefix(v, "/") {
		out.LastPage = v
	}
	if _, err := uuid.Parse(saved.DeviceID); err == nil {
		out.DeviceID = saved.DeviceID
	}
	return out
}

// Get returns the current preferences.
func (st *Store) Get() Prefs { return st.s.Get() }

// SetTheme records the selected theme.
func (st *Store) SetTheme(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	st.s.Update(func(p Prefs) Prefs { p.Theme = name; return p })
}

// SetLastPage records the page to reopen on the next start.
func (st *Store) SetLastPage(path string) {
	if !strings.HasPrefix(path, "/") {
		return
	}
	st.s.Update(func(p Prefs) Prefs { p.LastPage = path; return p })
}
