package page

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/backroom/internal/api"
	"github.com/five82/backroom/internal/realtime"
	"github.com/five82/backroom/internal/state"
)

type visit struct {
	path    string
	partial *api.Partial
}

type fakeVisitor struct {
	visits []visit
	pages  []api.Page
	err    error
}

func (f *fakeVisitor) Visit(_ context.Context, path string, partial *api.Partial) (api.Page, error) {
	f.visits = append(f.visits, visit{path: path, partial: partial})
	if f.err != nil {
		return api.Page{}, f.err
	}
	page := f.pages[0]
	if len(f.pages) > 1 {
		f.pages = f.pages[1:]
	}
	return page, nil
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestRouter_VisitStoresPage(t *testing.T) {
	visitor := &fakeVisitor{pages: []api.Page{{Component: "Orders/Index", Props: map[string]json.RawMessage{"orders": raw(`[]`)}}}}
	store := &state.Store{}
	r := NewRouter(visitor, store, nil)

	require.NoError(t, r.Visit(context.Background(), "orders"))

	assert.Equal(t, "/orders", r.Path())
	snap := store.Snapshot()
	assert.True(t, snap.HasPage)
	assert.Equal(t, "Orders/Index", snap.Page.Component)
	require.Len(t, visitor.visits, 1)
	assert.Nil(t, visitor.visits[0].partial)
}

func TestRouter_ReloadMergesNamedProps(t *testing.T) {
	visitor := &fakeVisitor{pages: []api.Page{
		{Component: "Orders/Index", Props: map[string]json.RawMessage{"orders": raw(`[1]`), "stats": raw(`{}`), "filters": raw(`{"q":""}`)}},
		{Component: "Orders/Index", Props: map[string]json.RawMessage{"orders": raw(`[1,2]`), "stats": raw(`{"open":2}`)}},
	}}
	store := &state.Store{}
	r := NewRouter(visitor, store, nil)
	require.NoError(t, r.Visit(context.Background(), "/orders"))

	require.NoError(t, r.Reload(context.Background(), realtime.ReloadOptions{Only: []string{"orders", "stats"}}))

	require.Len(t, visitor.visits, 2)
	require.NotNil(t, visitor.visits[1].partial)
	assert.Equal(t, "Orders/Index", visitor.visits[1].partial.Component)
	assert.Equal(t, []string{"orders", "stats"}, visitor.visits[1].partial.Only)

	props := store.Snapshot().Page.Props
	assert.JSONEq(t, `[1,2]`, string(props["orders"]))
	assert.JSONEq(t, `{"open":2}`, string(props["stats"]))
	assert.JSONEq(t, `{"q":""}`, string(props["filters"]))
}

func TestRouter_ReloadAllReplacesPage(t *testing.T) {
	visitor := &fakeVisitor{pages: []api.Page{
		{Component: "Discounts/Index", Props: map[string]json.RawMessage{"discounts": raw(`[1]`), "stale": raw(`true`)}},
		{Component: "Discounts/Index", Props: map[string]json.RawMessage{"discounts": raw(`[]`)}},
	}}
	store := &state.Store{}
	r := NewRouter(visitor, store, nil)
	require.NoError(t, r.Visit(context.Background(), "/discounts"))

	require.NoError(t, r.Reload(context.Background(), realtime.ReloadOptions{}))

	assert.Nil(t, visitor.visits[1].partial)
	props := store.Snapshot().Page.Props
	assert.NotContains(t, props, "stale")
}

func TestRouter_ReloadOtherComponentRefetchesPage(t *testing.T) {
	visitor := &fakeVisitor{pages: []api.Page{
		{Component: "Users/Index", Props: map[string]json.RawMessage{"users": raw(`[1]`)}},
		{Component: "Auth/Login", Props: map[string]json.RawMessage{"users": raw(`[]`)}},
		{Component: "Auth/Login", Props: map[string]json.RawMessage{"errors": raw(`{}`)}},
	}}
	store := &state.Store{}
	r := NewRouter(visitor, store, nil)
	require.NoError(t, r.Visit(context.Background(), "/users"))

	require.NoError(t, r.Reload(context.Background(), realtime.ReloadOptions{Only: []string{"users"}}))

	require.Len(t, visitor.visits, 3)
	assert.NotNil(t, visitor.visits[1].partial)
	assert.Nil(t, visitor.visits[2].partial)
	snap := store.Snapshot()
	assert.Equal(t, "Auth/Login", snap.Page.Component)
	assert.NotContains(t, snap.Page.Props, "users")
}

func TestRouter_Errors(t *testing.T) {
	store := &state.Store{}
	r := NewRouter(&fakeVisitor{err: errors.New("down")}, store, nil)

	err := r.Reload(context.Background(), realtime.ReloadOptions{})
	require.Error(t, err, "reload before any visit")

	err = r.Visit(context.Background(), "/items")
	require.Error(t, err)
	assert.Equal(t, 1, store.Snapshot().ConsecutiveFailures)

	err = r.Reload(context.Background(), realtime.ReloadOptions{Only: []string{"items"}})
	require.Error(t, err)
	assert.True(t, store.Snapshot().IsOffline())
}
