package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL, "tok", nil)
	require.NoError(t, err)
	return c
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	_, err := parseBaseURL("  ")
	assert.Error(t, err)

	u, err := parseBaseURL("shop.example.com:8080")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "shop.example.com:8080", u.Host)

	u, err = parseBaseURL("https://shop.example.com/admin?x=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com", u.String())
}

func TestVisit_FullAndPartial(t *testing.T) {
	var headers []http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Clone())
		assert.Equal(t, "/orders", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Page{
			Component: "Orders/Index",
			Props:     map[string]json.RawMessage{"orders": json.RawMessage(`[{"id":1,"number":"SO-1"}]`)},
			URL:       "/orders",
			Version:   "v1",
		})
	})
	ctx := testContext(t)

	page, err := c.Visit(ctx, "/orders", nil)
	require.NoError(t, err)
	assert.Equal(t, "Orders/Index", page.Component)

	orders, err := DecodeProp[[]Order](page, "orders")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "SO-1", orders[0].Number)

	_, err = c.Visit(ctx, "/orders", &Partial{Component: "Orders/Index", Only: []string{"orders", "stats"}})
	require.NoError(t, err)

	require.Len(t, headers, 2)
	assert.Equal(t, "true", headers[0].Get("X-Inertia"))
	assert.Equal(t, "Bearer tok", headers[0].Get("Authorization"))
	assert.Empty(t, headers[0].Get("X-Inertia-Partial-Data"))
	assert.Equal(t, "orders,stats", headers[1].Get("X-Inertia-Partial-Data"))
	assert.Equal(t, "Orders/Index", headers[1].Get("X-Inertia-Partial-Component"))
	assert.Equal(t, "v1", headers[1].Get("X-Inertia-Version"))
}

func TestVisit_RetriesOnVersionConflict(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("X-Inertia-Version") != "v2" {
			w.Header().Set("X-Inertia-Version", "v2")
			w.WriteHeader(http.StatusConflict)
			return
		}
		_ = json.NewEncoder(w).Encode(Page{Component: "Items/Index", Version: "v2"})
	})

	page, err := c.Visit(testContext(t), "/items", nil)
	require.NoError(t, err)
	assert.Equal(t, "Items/Index", page.Component)
	assert.Equal(t, 2, calls)
}

func TestFetchers_EncodeQueriesAndDecodeLists(t *testing.T) {
	var gotQuery url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/items":
			gotQuery = r.URL.Query()
			_, _ = io.WriteString(w, `{"data":[{"id":3,"sku":"FL-1","name":"Flour","stock":2.5}],"meta":{"total":1}}`)
		case "/api/suppliers":
			_, _ = io.WriteString(w, `{"data":[{"id":9,"name":"Mill Co"}]}`)
		case "/api/orders":
			_, _ = io.WriteString(w, `{"data":[]}`)
		case "/api/items/3/units":
			if r.Method == http.MethodPut {
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, `{"units":[{"child_item_id":4,"quantity":2}]}`, string(body))
				w.WriteHeader(http.StatusNoContent)
				return
			}
			_, _ = io.WriteString(w, `{"data":[{"purchase_uom_id":2,"base_uom_id":1,"conversion_factor":12}]}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := testContext(t)

	items, err := c.FetchItems(ctx, ListQuery{Search: " flour ", Page: 2, PerPage: 50})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Flour", items[0].Name)
	assert.Equal(t, "flour", gotQuery.Get("search"))
	assert.Equal(t, "2", gotQuery.Get("page"))
	assert.Equal(t, "50", gotQuery.Get("per_page"))

	suppliers, err := c.FetchSuppliers(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, "Mill Co", suppliers[0].Name)

	orders, err := c.FetchOrders(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, orders)

	rows, err := c.FetchUnits(ctx, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 12.0, *rows[0].ConversionFactor)

	require.NoError(t, c.SaveUnits(ctx, 3, []byte(`[{"child_item_id":4,"quantity":2}]`)))

	_, err = c.FetchUnits(ctx, 0)
	assert.Error(t, err)
}

func TestErrors_MapStatuses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/orders":
			w.WriteHeader(http.StatusUnauthorized)
		case "/api/items":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := testContext(t)

	_, err := c.FetchOrders(ctx, ListQuery{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.FetchItems(ctx, ListQuery{})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Status)

	_, err = c.Visit(ctx, "/nowhere", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchAsset_AndDeviceHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dev-1", r.Header.Get("X-Device-Id"))
		if r.URL.Path != "/storage/flour.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	c.SetDeviceID(" dev-1 ")

	data, mime, err := c.FetchAsset(testContext(t), "/storage/flour.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	_, _, err = c.FetchAsset(testContext(t), "/storage/missing.png")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = c.FetchAsset(testContext(t), "")
	assert.Error(t, err)
}

func TestAuthorizeChannel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1.2", r.PostForm.Get("socket_id"))
		assert.Equal(t, "private-users", r.PostForm.Get("channel_name"))
		_, _ = io.WriteString(w, `{"auth":"key:sig"}`)
	})

	auth, err := c.AuthorizeChannel(testContext(t), "1.2", "private-users")
	require.NoError(t, err)
	assert.Equal(t, "key:sig", auth)
}

func TestPageMerge(t *testing.T) {
	base := Page{
		Component: "Orders/Index",
		Props: map[string]json.RawMessage{
			"orders": json.RawMessage(`[1]`),
			"stats":  json.RawMessage(`{"open":1}`),
		},
		Version: "v1",
	}
	merged := base.Merge(Page{Props: map[string]json.RawMessage{"orders": json.RawMessage(`[1,2]`)}})

	assert.JSONEq(t, `[1,2]`, string(merged.Props["orders"]))
	assert.JSONEq(t, `{"open":1}`, string(merged.Props["stats"]))
	assert.JSONEq(t, `[1]`, string(base.Props["orders"]), "merge must not mutate the receiver")
	assert.Equal(t, "v1", merged.Version)
}

func TestParseSession(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "17",
		"name":  "Dana",
		"email": "dana@example.com",
		"exp":   exp.Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	s, err := ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, "17", s.Subject)
	assert.Equal(t, "Dana", s.Label())
	assert.True(t, s.Expires.Equal(exp))
	assert.False(t, s.Expired(time.Now()))
	assert.True(t, s.Expired(exp.Add(time.Second)))

	_, err = ParseSession("not-a-token")
	assert.Error(t, err)
	_, err = ParseSession("")
	assert.Error(t, err)
}
