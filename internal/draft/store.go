package draft

import "sync"

// Option configures a Store at construction.
type Option[S any] func(*options[S])

type options[S any] struct {
	clone     func(S) S
	persister persister[S]
}

type persister[S any] interface {
	hydrate(S) S
	save(S)
}

// WithClone sets the deep-copy function Mutate uses to build drafts. Without
// it, drafts are shallow copies and recipes must not edit shared maps or slices.
func WithClone[S any](clone func(S) S) Option[S] {
	return func(o *options[S]) { o.clone = clone }
}

type subscriber[S any] struct {
	id uint64
	fn func(S)
}

// Store coordinates reads and serialized writes of one state value.
type Store[S any] struct {
	writeMu  sync.Mutex // held across reduce, commit and persist
	notifyMu sync.Mutex // held by the goroutine draining pending

	mu      sync.RWMutex
	state   S
	pending []S // committed states not yet delivered, oldest first
	subs    []subscriber[S]
	next    uint64

	clone     func(S) S
	persister persister[S]
}

// New builds a store around initial, applying opts in order. A persisted store
// is hydrated before New returns.
func New[S any](initial S, opts ...Option[S]) *Store[S] {
	var o options[S]
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store[S]{
		state:     initial,
		clone:     o.clone,
		persister: o.persister,
	}
	if s.persister != nil {
		s.state = s.persister.hydrate(initial)
	}
	return s
}

// Get returns the latest committed state.
func (s *Store[S]) Get() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Update commits reduce(current). reduce must treat its argument as read-only
// apart from top-level fields.
func (s *Store[S]) Update(reduce func(S) S) {
	s.writeMu.Lock()
	next := reduce(s.Get())
	s.commit(next)
	s.writeMu.Unlock()

	s.drain()
}

// Mutate applies recipe to a draft clone of the current state and commits it.
func (s *Store[S]) Mutate(recipe func(*S)) {
	s.Update(func(cur S) S {
		draft := cur
		if s.clone != nil {
			draft = s.clone(cur)
		}
		recipe(&draft)
		return draft
	})
}

// Subscribe registers fn for every future commit. The returned func removes it.
func (s *Store[S]) Subscribe(fn func(S)) (cancel func()) {
	s.mu.Lock()
	s.next++
	id := s.next
	s.subs = append(s.subs, subscriber[S]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store[S]) commit(next S) {
	s.mu.Lock()
	s.state = next
	s.pending = append(s.pending, next)
	s.mu.Unlock()

	if s.persister != nil {
		s.persister.save(next)
	}
}

// drain delivers pending states in commit order. Only one goroutine delivers
// at a time; a write that finds delivery in progress, including one made by a
// subscriber, leaves its state queued for the active drainer.
func (s *Store[S]) drain() {
	for {
		if !s.notifyMu.TryLock() {
			return
		}
		for {
			state, subs, ok := s.nextPending()
			if !ok {
				break
			}
			for _, sub := range subs {
				sub.fn(state)
			}
		}
		s.notifyMu.Unlock()

		// A writer may have queued a state after the last check but before
		// the unlock, and given up on TryLock.
		s.mu.RLock()
		empty := len(s.pending) == 0
		s.mu.RUnlock()
		if empty {
			return
		}
	}
}

func (s *Store[S]) nextPending() (S, []subscriber[S], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero S
	if len(s.pending) == 0 {
		return zero, nil, false
	}
	state := s.pending[0]
	s.pending[0] = zero
	s.pending = s.pending[1:]
	subs := make([]subscriber[S], len(s.subs))
	copy(subs, s.subs)
	return state, subs, true
}
