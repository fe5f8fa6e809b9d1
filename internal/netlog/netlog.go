// Package netlog records recent network calls for the request inspector view.
package netlog

import (
	"time"

	"github.com/five82/backroom/internal/draft"
)

// DefaultLimit bounds the log when no limit is configured.
const DefaultLimit = 200

// Kind classifies a request.
type Kind string

const (
	KindPage  Kind = "inertia"
	KindAPI   Kind = "api"
	KindOther Kind = "other"
)

// RequestLog is one observed call. Response stays nil until the call settles.
type RequestLog struct {
	ID        string
	Method    string
	URL       string
	Payload   any
	Response  any
	Status    int
	Duration  time.Duration
	StartTime time.Time
	Kind      Kind
	Error     bool
	Settled   bool
}

// Store keeps logs newest first.
type Store struct {
	s     *draft.Store[[]RequestLog]
	limit int
	now   func() time.Time
}

// New returns a store holding at most limit entries; limit <= 0 keeps every
// entry.
func New(limit int) *Store {
	return &Store{s: draft.New[[]RequestLog](nil), limit: limit, now: time.Now}
}

// Logs returns the current entries, newest first. Callers must not modify the
// returned slice.
func (st *Store) Logs() []RequestLog { return st.s.Get() }

func (st *Store) Subscribe(fn func([]RequestLog)) func() { return st.s.Subscribe(fn) }

// AddLog prepends entry, evicting the oldest entries past the limit. The
// caller supplies a unique ID and the StartTime.
func (st *Store) AddLog(entry RequestLog) {
	st.s.Update(func(logs []RequestLog) []RequestLog {
		n := len(logs) + 1
		if st.limit > 0 && n > st.limit {
			n = st.limit
		}
		next := make([]RequestLog, 0, n)
		next = append(next, entry)
		return append(next, logs[:n-1]...)
	})
}

// UpdateLogResponse settles the entry with the given id. response is recorded
// only when non-nil or when isErr is set. Unknown ids are ignored.
func (st *Store) UpdateLogResponse(id string, status int, response any, isErr bool) {
	st.s.Update(func(logs []RequestLog) []RequestLog {
		idx := -1
		for i := range logs {
			if logs[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return logs
		}

		next := make([]RequestLog, len(logs))
		copy(next, logs)
		entry := next[idx]
		entry.Status = status
		if response != nil || isErr {
			entry.Response = response
		}
		entry.Duration = max(st.now().Sub(entry.StartTime), 0)
		entry.Error = isErr
		entry.Settled = true
		next[idx] = entry
		return next
	})
}

// ClearLogs drops every entry.
func (st *Store) ClearLogs() {
	st.s.Update(func([]RequestLog) []RequestLog { return nil })
}
