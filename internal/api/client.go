package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/five82/backroom/internal/units"
)

// Sentinel errors for common statuses.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Backend is the subset of the client the console depends on. *Client
// implements it; tests substitute fakes.
type Backend interface {
	Visit(ctx context.Context, path string, partial *Partial) (Page, error)
	FetchOrders(ctx context.Context, q ListQuery) ([]Order, error)
	FetchItems(ctx context.Context, q ListQuery) ([]Item, error)
	FetchSuppliers(ctx context.Context, q ListQuery) ([]Supplier, error)
	FetchUnits(ctx context.Context, itemID int64) ([]units.ConversionUnit, error)
	SaveUnits(ctx context.Context, itemID int64, payload []byte) error
	FetchAsset(ctx context.Context, rawURL string) ([]byte, string, error)
}

var _ Backend = (*Client)(nil)

// Client talks to the back-office API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
	deviceID  string

	mu      sync.Mutex
	version string // last seen page asset version
}

const (
	defaultUserAgent = "backroom/0.1"
	requestTimeout   = 10 * time.Second
)

// NewClient builds a Client for baseURL. transport may be nil.
func NewClient(baseURL, token string, transport http.RoundTripper) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		token:     strings.TrimSpace(token),
		userAgent: defaultUserAgent,
	}, nil
}

// SetDeviceID tags every request with the install's device id. Call it before
// issuing requests.
func (c *Client) SetDeviceID(id string) {
	c.deviceID = strings.TrimSpace(id)
}

// BaseURL returns the normalized API base.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Partial restricts a visit to some props of the current component.
type Partial struct {
	Component string
	Only      []string
}

// Visit fetches a page. partial may be nil for a full visit.
func (c *Client) Visit(ctx context.Context, path string, partial *Partial) (Page, error) {
	if c == nil {
		return Page{}, fmt.Errorf("client is nil")
	}
	page, err := c.visit(ctx, path, partial)
	var conflict *versionConflict
	if errors.As(err, &conflict) {
		c.setVersion(conflict.version)
		page, err = c.visit(ctx, path, partial)
	}
	return page, err
}

type versionConflict struct{ version string }

func (e *versionConflict) Error() string { return "page version changed" }

func (c *Client) visit(ctx context.Context, path string, partial *Partial) (Page, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return Page{}, fmt.Errorf("parse page path %q: %w", path, err)
	}
	req, err := c.newRequest(ctx, http.MethodGet, rel, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("X-Inertia", "true")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if v := c.currentVersion(); v != "" {
		req.Header.Set("X-Inertia-Version", v)
	}
	if partial != nil && len(partial.Only) > 0 {
		req.Header.Set("X-Inertia-Partial-Component", partial.Component)
		req.Header.Set("X-Inertia-Partial-Data", strings.Join(partial.Only, ","))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("visit %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusConflict {
		return Page{}, &versionConflict{version: resp.Header.Get("X-Inertia-Version")}
	}
	if err := checkStatus(rel.Path, resp.StatusCode); err != nil {
		return Page{}, err
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return Page{}, fmt.Errorf("decode page %s: %w", path, err)
	}
	if page.Version != "" {
		c.setVersion(page.Version)
	}
	return page, nil
}

func (c *Client) currentVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *Client) setVersion(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = v
}

// ListQuery configures list requests.
type ListQuery struct {
	Search  string
	Page    int
	PerPage int
}

func (q ListQuery) values() url.Values {
	values := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		values.Set("search", s)
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return values
}

// FetchOrders lists orders.
func (c *Client) FetchOrders(ctx context.Context, q ListQuery) ([]Order, error) {
	var payload ListResponse[Order]
	if err := c.getJSON(ctx, "/api/orders", q.values(), &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// FetchItems lists inventory items.
func (c *Client) FetchItems(ctx context.Context, q ListQuery) ([]Item, error) {
	var payload ListResponse[Item]
	if err := c.getJSON(ctx, "/api/items", q.values(), &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// FetchSuppliers lists suppliers.
func (c *Client) FetchSuppliers(ctx context.Context, q ListQuery) ([]Supplier, error) {
	var payload ListResponse[Supplier]
	if err := c.getJSON(ctx, "/api/suppliers", q.values(), &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// FetchUnits returns the conversion units of one item.
func (c *Client) FetchUnits(ctx context.Context, itemID int64) ([]units.ConversionUnit, error) {
	if itemID <= 0 {
		return nil, fmt.Errorf("item id required")
	}
	var payload ListResponse[units.ConversionUnit]
	if err := c.getJSON(ctx, fmt.Sprintf("/api/items/%d/units", itemID), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// SaveUnits replaces the conversion units of one item with payload (a JSON
// array as produced by units.Store.Payload).
func (c *Client) SaveUnits(ctx context.Context, itemID int64, payload []byte) error {
	if itemID <= 0 {
		return fmt.Errorf("item id required")
	}
	body, err := json.Marshal(map[string]json.RawMessage{"units": payload})
	if err != nil {
		return fmt.Errorf("encode units: %w", err)
	}
	rel := &url.URL{Path: fmt.Sprintf("/api/items/%d/units", itemID)}
	req, err := c.newRequest(ctx, http.MethodPut, rel, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, rel.Path, nil)
}

// AuthorizeChannel signs a private channel subscription.
func (c *Client) AuthorizeChannel(ctx context.Context, socketID, channel string) (string, error) {
	form := url.Values{}
	form.Set("socket_id", socketID)
	form.Set("channel_name", channel)
	rel := &url.URL{Path: "/broadcasting/auth"}
	req, err := c.newRequest(ctx, http.MethodPost, rel, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var payload struct {
		Auth string `json:"auth"`
	}
	if err := c.do(req, rel.Path, &payload); err != nil {
		return "", err
	}
	if payload.Auth == "" {
		return "", fmt.Errorf("authorize %s: empty signature", channel)
	}
	return payload.Auth, nil
}

// maxAssetBytes caps downloaded preview images.
const maxAssetBytes = 8 << 20

// FetchAsset downloads an image or attachment. Relative URLs resolve against
// the API base. It returns the body and its content type.
func (c *Client) FetchAsset(ctx context.Context, rawURL string) ([]byte, string, error) {
	rel, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || rawURL == "" {
		return nil, "", fmt.Errorf("asset url %q is invalid", rawURL)
	}
	req, err := c.newRequest(ctx, http.MethodGet, rel, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "image/*,*/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch asset: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(rel.Path, resp.StatusCode); err != nil {
		return nil, "", err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read asset: %w", err)
	}
	if len(data) > maxAssetBytes {
		return nil, "", fmt.Errorf("asset %s exceeds %d bytes", rel.Path, maxAssetBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: path, RawQuery: query.Encode()}
	req, err := c.newRequest(ctx, http.MethodGet, rel, nil)
	if err != nil {
		return err
	}
	return c.do(req, path, dest)
}

func (c *Client) newRequest(ctx context.Context, method string, rel *url.URL, body io.Reader) (*http.Request, error) {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, path string, dest any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(path, resp.StatusCode); err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(path string, status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("api %s: %w", path, ErrUnauthorized)
	case status == http.StatusNotFound:
		return fmt.Errorf("api %s: %w", path, ErrNotFound)
	case status >= 400:
		return &StatusError{Path: path, Status: status}
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("api url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
