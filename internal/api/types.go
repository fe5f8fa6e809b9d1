package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Page is one server-rendered page: a component name and its props.
type Page struct {
	Component string                     `json:"component"`
	Props     map[string]json.RawMessage `json:"props"`
	URL       string                     `json:"url"`
	Version   string                     `json:"version"`
}

// PropNames lists the props present on the page.
func (p Page) PropNames() []string {
	names := make([]string, 0, len(p.Props))
	for name := range p.Props {
		names = append(names, name)
	}
	return names
}

// Merge overlays partial's props onto p. Props absent from partial are kept.
func (p Page) Merge(partial Page) Page {
	out := p
	out.Props = make(map[string]json.RawMessage, len(p.Props)+len(partial.Props))
	for k, v := range p.Props {
		out.Props[k] = v
	}
	for k, v := range partial.Props {
		out.Props[k] = v
	}
	if partial.URL != "" {
		out.URL = partial.URL
	}
	if partial.Version != "" {
		out.Version = partial.Version
	}
	return out
}

// DecodeProp unmarshals the named prop.
func DecodeProp[T any](p Page, name string) (T, error) {
	var out T
	raw, ok := p.Props[name]
	if !ok {
		return out, fmt.Errorf("page %s has no prop %q", p.Component, name)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode prop %q: %w", name, err)
	}
	return out, nil
}

// ListResponse wraps paginated list endpoints.
type ListResponse[T any] struct {
	Data []T `json:"data"`
	Meta struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
		Total       int `json:"total"`
	} `json:"meta"`
}

// Order is a sales order.
type Order struct {
	ID       int64     `json:"id"`
	Number   string    `json:"number"`
	Status   string    `json:"status"`
	Customer string    `json:"customer"`
	Total    float64   `json:"total"`
	PlacedAt time.Time `json:"placed_at"`
}

// NormalizedStatus lowercases the status for styling lookups.
func (o Order) NormalizedStatus() string {
	return strings.ToLower(strings.TrimSpace(o.Status))
}

// Item is an inventory item.
type Item struct {
	ID       int64   `json:"id"`
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Stock    float64 `json:"stock"`
	UnitName string  `json:"unit_name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url"`
	IsSet    bool    `json:"is_set"`
}

// LowStock reports whether stock is at or below threshold.
func (i Item) LowStock(threshold float64) bool {
	return i.Stock <= threshold
}

// Supplier is a purchasing supplier.
type Supplier struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Row is a generic table row used for pages the console has no typed view
// for (returns, discounts, vouchers, users, integrations).
type Row map[string]any

// StatusError is a non-2xx answer not covered by a sentinel error.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}
