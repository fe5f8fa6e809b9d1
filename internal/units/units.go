// Package units backs the unit-of-measure conversion editor on the item form.
//
// An item either has a "set" recipe (it is assembled from child items, each
// row naming a child and a quantity) or not, in which case each row converts a
// purchase unit into the base unit by a factor. The Type discriminator decides
// which fields a fresh row carries.
package units

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/five82/backroom/internal/draft"
)

// Type selects the row shape.
type Type string

const (
	TypeSet    Type = "set"
	TypeNotSet Type = "not_set"
)

// Field names an editable column.
type Field string

const (
	FieldPurchaseUOM      Field = "purchase_uom_id"
	FieldBaseUOM          Field = "base_uom_id"
	FieldConversionFactor Field = "conversion_factor"
	FieldChildItem        Field = "child_item_id"
	FieldQuantity         Field = "quantity"
)

// ConversionUnit is one editor row. Nil fields are absent from the row.
type ConversionUnit struct {
	PurchaseUOMID    *int64   `json:"purchase_uom_id,omitempty"`
	BaseUOMID        *int64   `json:"base_uom_id,omitempty"`
	ConversionFactor *float64 `json:"conversion_factor,omitempty"`
	ChildItemID      *int64   `json:"child_item_id,omitempty"`
	Quantity         *float64 `json:"quantity,omitempty"`
}

// Empty returns a fresh row for t.
func Empty(t Type) ConversionUnit {
	if t == TypeSet {
		return ConversionUnit{ChildItemID: ptr[int64](0), Quantity: ptr(1.0)}
	}
	return ConversionUnit{
		PurchaseUOMID:    ptr[int64](0),
		BaseUOMID:        ptr[int64](0),
		ConversionFactor: ptr(1.0),
	}
}

func ptr[T any](v T) *T { return &v }

// Store holds the rows being edited.
type Store struct {
	s *draft.Store[[]ConversionUnit]
}

func New() *Store {
	return &Store{s: draft.New[[]ConversionUnit](nil)}
}

// Units returns the current rows. Callers must not modify them.
func (st *Store) Units() []ConversionUnit { return st.s.Get() }

func (st *Store) Subscribe(fn func([]ConversionUnit)) func() { return st.s.Subscribe(fn) }

// InitializeUnits replaces the rows. An empty input seeds one empty row of t.
func (st *Store) InitializeUnits(units []ConversionUnit, t Type) {
	st.s.Update(func([]ConversionUnit) []ConversionUnit {
		if len(units) == 0 {
			return []ConversionUnit{Empty(t)}
		}
		return append([]ConversionUnit(nil), units...)
	})
}

// AddUnit appends an empty row of t.
func (st *Store) AddUnit(t Type) {
	st.s.Update(func(rows []ConversionUnit) []ConversionUnit {
		next := make([]ConversionUnit, len(rows), len(rows)+1)
		copy(next, rows)
		return append(next, Empty(t))
	})
}

// RemoveUnit deletes the row at index. Out of range does nothing.
func (st *Store) RemoveUnit(index int) {
	st.s.Update(func(rows []ConversionUnit) []ConversionUnit {
		if index < 0 || index >= len(rows) {
			return rows
		}
		next := make([]ConversionUnit, 0, len(rows)-1)
		next = append(next, rows[:index]...)
		return append(next, rows[index+1:]...)
	})
}

// UpdateUnit sets field on the row at index. Out of range and non-finite
// values do nothing. ID fields truncate value to an integer.
func (st *Store) UpdateUnit(index int, field Field, value float64) {
	st.s.Update(func(rows []ConversionUnit) []ConversionUnit {
		if index < 0 || index >= len(rows) || math.IsNaN(value) || math.IsInf(value, 0) {
			return rows
		}
		row := rows[index]
		switch field {
		case FieldPurchaseUOM:
			row.PurchaseUOMID = ptr(int64(value))
		case FieldBaseUOM:
			row.BaseUOMID = ptr(int64(value))
		case FieldConversionFactor:
			row.ConversionFactor = ptr(value)
		case FieldChildItem:
			row.ChildItemID = ptr(int64(value))
		case FieldQuantity:
			row.Quantity = ptr(value)
		default:
			return rows
		}
		next := make([]ConversionUnit, len(rows))
		copy(next, rows)
		next[index] = row
		return next
	})
}

// Reset empties the list without reseeding a row.
func (st *Store) Reset() {
	st.s.Update(func([]ConversionUnit) []ConversionUnit { return nil })
}

// Validation errors.
var (
	ErrMissingField = errors.New("missing field")
	ErrNotPositive  = errors.New("must be greater than zero")
)

// Validate checks every row against the shape for t. Rows are reported with
// their 1-based position.
func (st *Store) Validate(t Type) error {
	var errs []error
	for i, row := range st.Units() {
		if err := row.validate(t); err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

func (u ConversionUnit) validate(t Type) error {
	if t == TypeSet {
		if u.ChildItemID == nil || *u.ChildItemID <= 0 {
			return fmt.Errorf("%w: %s", ErrMissingField, FieldChildItem)
		}
		if u.Quantity == nil || *u.Quantity <= 0 {
			return fmt.Errorf("%s %w", FieldQuantity, ErrNotPositive)
		}
		return nil
	}
	if u.PurchaseUOMID == nil || *u.PurchaseUOMID <= 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, FieldPurchaseUOM)
	}
	if u.BaseUOMID == nil || *u.BaseUOMID <= 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, FieldBaseUOM)
	}
	if u.ConversionFactor == nil || *u.ConversionFactor <= 0 {
		return fmt.Errorf("%s %w", FieldConversionFactor, ErrNotPositive)
	}
	return nil
}

// Payload encodes the rows for the item API.
func (st *Store) Payload() ([]byte, error) {
	rows := st.Units()
	if rows == nil {
		rows = []ConversionUnit{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode units: %w", err)
	}
	return data, nil
}
