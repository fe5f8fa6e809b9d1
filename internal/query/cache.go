// Package query is the client-side cache for list data fetched from the API.
//
// Entries are addressed by a key path such as ["items"] or ["items", "42"].
// InvalidateQueries marks every entry under a prefix stale and tells the
// observers of those keys, which refetch when they are on screen. Concurrent
// fetches of one key share a single request.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSize      = 256
	DefaultStaleTime = 30 * time.Second
)

// Fetcher loads the data for one key.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	key       []string
	data      any
	fetchedAt time.Time
	stale     bool
}

type observer struct {
	id  uint64
	key []string
	fn  func()
}

// Cache is safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	entries   *lru.Cache[string, *entry]
	inflight  map[string]bool // key -> invalidated while fetching
	observers []observer
	nextID    uint64

	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// New returns a cache holding up to size entries that stay fresh for
// staleTime. Non-positive values use the defaults.
func New(size int, staleTime time.Duration, logger *slog.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	return &Cache{
		entries:   entries,
		inflight:  make(map[string]bool),
		staleTime: staleTime,
		now:       time.Now,
		logger:    logger.With("component", "query_cache"),
	}, nil
}

func encode(key []string) string {
	return strings.Join(key, "\x1f")
}

func hasPrefix(key, prefix []string) bool {
	return len(prefix) <= len(key) && slices.Equal(key[:len(prefix)], prefix)
}

// Fetch returns fresh cached data for key or calls fn and caches its result.
// Errors are not cached.
func (c *Cache) Fetch(ctx context.Context, key []string, fn Fetcher) (any, error) {
	k := encode(key)

	c.mu.Lock()
	if e, ok := c.entries.Get(k); ok && !e.stale && c.now().Sub(e.fetchedAt) < c.staleTime {
		c.mu.Unlock()
		return e.data, nil
	}
	c.mu.Unlock()

	v, err, shared := c.group.Do(k, func() (any, error) {
		c.mu.Lock()
		c.inflight[k] = false
		c.mu.Unlock()

		data, err := fn(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		invalidated := c.inflight[k]
		delete(c.inflight, k)
		if err != nil {
			return nil, err
		}
		c.entries.Add(k, &entry{
			key:       slices.Clone(key),
			data:      data,
			fetchedAt: c.now(),
			stale:     invalidated,
		})
		return data, nil
	})
	if shared {
		c.logger.Debug("shared in-flight fetch", "key", key)
	}
	return v, err
}

// Peek returns cached data without fetching.
func (c *Cache) Peek(key []string) (data any, ok, stale bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Peek(encode(key))
	if !ok {
		return nil, false, false
	}
	return e.data, true, e.stale || c.now().Sub(e.fetchedAt) >= c.staleTime
}

// InvalidateQueries marks every entry whose key starts with prefix stale and
// notifies the matching observers.
func (c *Cache) InvalidateQueries(prefix []string) {
	c.mu.Lock()
	marked := 0
	for _, k := range c.entries.Keys() {
		if e, ok := c.entries.Peek(k); ok && hasPrefix(e.key, prefix) {
			e.stale = true
			marked++
		}
	}
	for k := range c.inflight {
		if hasPrefix(strings.Split(k, "\x1f"), prefix) {
			c.inflight[k] = true
		}
	}
	var notify []func()
	for _, o := range c.observers {
		if hasPrefix(o.key, prefix) {
			notify = append(notify, o.fn)
		}
	}
	c.mu.Unlock()

	c.logger.Debug("queries invalidated", "prefix", prefix, "entries", marked, "observers", len(notify))
	for _, fn := range notify {
		fn()
	}
}

// Observe calls fn whenever key is invalidated. The returned func removes the
// observer.
func (c *Cache) Observe(key []string, fn func()) (cancel func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.observers = append(c.observers, observer{id: id, key: slices.Clone(key), fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.observers = slices.DeleteFunc(c.observers, func(o observer) bool { return o.id == id })
	}
}

// Get is a typed wrapper around Fetch.
func Get[T any](ctx context.Context, c *Cache, key []string, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("query %v: cached %T, want %T", key, v, zero)
	}
	return out, nil
}
