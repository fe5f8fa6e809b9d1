// Package page navigates between server-rendered pages and applies partial
// reloads to the one on screen.
package page

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/five82/backroom/internal/api"
	"github.com/five82/backroom/internal/realtime"
	"github.com/five82/backroom/internal/state"
)

// Visitor is the part of api.Backend the router needs.
type Visitor interface {
	Visit(ctx context.Context, path string, partial *api.Partial) (api.Page, error)
}

// Router owns the current page.
type Router struct {
	visitor Visitor
	store   *state.Store
	logger  *slog.Logger

	mu   sync.Mutex
	path string
}

var _ realtime.Reloader = (*Router)(nil)

// NewRouter builds a router writing to store.
func NewRouter(visitor Visitor, store *state.Store, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		visitor: visitor,
		store:   store,
		logger:  logger.With("component", "router"),
	}
}

// Path returns the path of the last visit.
func (r *Router) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Visit loads path as a full page and makes it current.
func (r *Router) Visit(ctx context.Context, path string) error {
	path = normalizePath(path)
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()

	page, err := r.visitor.Visit(ctx, path, nil)
	if err != nil {
		r.store.Fail(err)
		return fmt.Errorf("visit %s: %w", path, err)
	}
	if r.Path() != path {
		r.logger.Debug("discarding stale visit", "path", path)
		return nil
	}
	r.store.Update(&page, nil)
	return nil
}

// Reload re-fetches the current page. Named props are fetched as a partial
// reload and merged; empty Only refetches the whole page.
func (r *Router) Reload(ctx context.Context, opts realtime.ReloadOptions) error {
	path := r.Path()
	if path == "" {
		return fmt.Errorf("reload: no page visited")
	}
	snap := r.store.Snapshot()

	var partial *api.Partial
	if len(opts.Only) > 0 && snap.HasPage {
		partial = &api.Partial{Component: snap.Page.Component, Only: opts.Only}
	}
	page, err := r.visitor.Visit(ctx, path, partial)
	if err != nil {
		r.store.Fail(err)
		return fmt.Errorf("reload %s: %w", path, err)
	}
	if r.Path() != path {
		r.logger.Debug("discarding stale reload", "path", path)
		return nil
	}
	if partial == nil {
		r.store.Update(&page, nil)
		return nil
	}
	if r.store.Merge(page) {
		return nil
	}

	// The server answered with another component; take the whole page.
	r.logger.Debug("partial reload did not match current page, refetching", "path", path, "component", page.Component)
	full, err := r.visitor.Visit(ctx, path, nil)
	if err != nil {
		r.store.Fail(err)
		return fmt.Errorf("reload %s: %w", path, err)
	}
	if r.Path() == path {
		r.store.Update(&full, nil)
	}
	return nil
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
