package state

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/five82/backroom/internal/api"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Page                api.Page
	HasPage             bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive failed loads
}

// IsOffline returns true when the API has been unreachable for multiple loads.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	watchers []watcher
	nextID   uint64

	now func() time.Time
}

// Update replaces the stored page. When err is non-nil the previous page is
// kept but the error is recorded for visibility.
func (s *Store) Update(page *api.Page, err error) {
	s.mu.Lock()
	if err != nil {
		s.fail(err)
		s.mu.Unlock()
		s.notify()
		return
	}
	if page != nil {
		s.snapshot.Page = clonePage(*page)
		s.snapshot.HasPage = true
	} else {
		s.snapshot.Page = api.Page{}
		s.snapshot.HasPage = false
	}
	s.succeed()
	s.mu.Unlock()
	s.notify()
}

// Merge overlays a partial reload onto the current page. It reports false and
// leaves the store untouched when no page is loaded or partial belongs to a
// different component.
func (s *Store) Merge(partial api.Page) bool {
	s.mu.Lock()
	if !s.snapshot.HasPage || (partial.Component != "" && partial.Component != s.snapshot.Page.Component) {
		s.mu.Unlock()
		return false
	}
	s.snapshot.Page = s.snapshot.Page.Merge(partial)
	s.succeed()
	s.mu.Unlock()
	s.notify()
	return true
}

// Fail records a failed load without touching the page.
func (s *Store) Fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.fail(err)
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Page = clonePage(s.snapshot.Page)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

type watcher struct {
	id uint64
	fn func()
}

// Subscribe registers fn to run after every write. Callbacks run on the
// writer's goroutine and must not block. The returned func removes fn and is
// safe to call more than once.
func (s *Store) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers = append(s.watchers, watcher{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.watchers = slices.DeleteFunc(s.watchers, func(w watcher) bool { return w.id == id })
	}
}

func (s *Store) fail(err error) {
	s.snapshot.LastError = err
	s.snapshot.LastUpdated = s.clock()
	s.snapshot.ConsecutiveFailures++
}

func (s *Store) succeed() {
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = s.clock()
	s.snapshot.ConsecutiveFailures = 0
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Store) notify() {
	s.mu.RLock()
	watchers := slices.Clone(s.watchers)
	s.mu.RUnlock()
	for _, w := range watchers {
		w.fn()
	}
}

func clonePage(p api.Page) api.Page {
	if p.Props != nil {
		p.Props = maps.Clone(p.Props)
	}
	return p
}
