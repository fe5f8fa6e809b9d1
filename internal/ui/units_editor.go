package ui

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/backroom/internal/api"
	"github.com/five82/backroom/internal/units"
)

type unitsLoadedMsg struct {
	item  api.Item
	units []units.ConversionUnit
	err   error
}

type unitsSavedMsg struct {
	itemID int64
	err    error
}

func loadUnitsCmd(ctx context.Context, backend api.Backend, item api.Item) tea.Cmd {
	return func() tea.Msg {
		rows, err := backend.FetchUnits(ctx, item.ID)
		return unitsLoadedMsg{item: item, units: rows, err: err}
	}
}

func saveUnitsCmd(ctx context.Context, backend api.Backend, itemID int64, payload []byte) tea.Cmd {
	return func() tea.Msg {
		return unitsSavedMsg{itemID: itemID, err: backend.SaveUnits(ctx, itemID, payload)}
	}
}

// editorFields lists the editable columns for a row shape.
func editorFields(t units.Type) []units.Field {
	if t == units.TypeSet {
		return []units.Field{units.FieldChildItem, units.FieldQuantity}
	}
	return []units.Field{units.FieldPurchaseUOM, units.FieldBaseUOM, units.FieldConversionFactor}
}

func fieldValue(u units.ConversionUnit, f units.Field) string {
	var v *float64
	switch f {
	case units.FieldPurchaseUOM:
		if u.PurchaseUOMID != nil {
			return strconv.FormatInt(*u.PurchaseUOMID, 10)
		}
	case units.FieldBaseUOM:
		if u.BaseUOMID != nil {
			return strconv.FormatInt(*u.BaseUOMID, 10)
		}
	case units.FieldChildItem:
		if u.ChildItemID != nil {
			return strconv.FormatInt(*u.ChildItemID, 10)
		}
	case units.FieldConversionFactor:
		v = u.ConversionFactor
	case units.FieldQuantity:
		v = u.Quantity
	}
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// unitsEditor edits an item's conversion units through a units.Store.
type unitsEditor struct {
	item  api.Item
	kind  units.Type
	store *units.Store
	save  func(payload []byte) tea.Cmd

	row, field int
	editing    bool
	input      textinput.Model
	saving     bool
	err        error
}

func newUnitsEditor(item api.Item, rows []units.ConversionUnit, store *units.Store, save func([]byte) tea.Cmd) *unitsEditor {
	kind := units.TypeNotSet
	if item.IsSet {
		kind = units.TypeSet
	}
	store.InitializeUnits(rows, kind)
	input := textinput.New()
	input.CharLimit = 16
	input.Width = 12
	return &unitsEditor{item: item, kind: kind, store: store, save: save, input: input}
}

func (e *unitsEditor) clamp() {
	n := len(e.store.Units())
	if e.row >= n {
		e.row = n - 1
	}
	if e.row < 0 {
		e.row = 0
	}
}

// Update implements Modal.
func (e *unitsEditor) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case unitsSavedMsg:
		e.saving = false
		if msg.err != nil {
			e.err = msg.err
			return e, nil, false
		}
		e.store.Reset()
		return e, nil, true

	case tea.KeyMsg:
		if e.editing {
			return e.updateInput(msg)
		}
		if e.saving {
			return e, nil, false
		}
		fields := editorFields(e.kind)
		switch {
		case key.Matches(msg, keys.Escape):
			e.store.Reset()
			return e, nil, true
		case key.Matches(msg, keys.Up):
			if e.row > 0 {
				e.row--
			}
		case key.Matches(msg, keys.Down):
			if e.row < len(e.store.Units())-1 {
				e.row++
			}
		case key.Matches(msg, keys.PrevField):
			if e.field > 0 {
				e.field--
			}
		case key.Matches(msg, keys.NextField):
			if e.field < len(fields)-1 {
				e.field++
			}
		case key.Matches(msg, keys.AddRow):
			e.store.AddUnit(e.kind)
			e.row = len(e.store.Units()) - 1
		case key.Matches(msg, keys.RemoveRow):
			e.store.RemoveUnit(e.row)
			e.clamp()
		case key.Matches(msg, keys.Confirm):
			rows := e.store.Units()
			if e.row < len(rows) {
				e.input.SetValue(fieldValue(rows[e.row], fields[e.field]))
				e.input.CursorEnd()
				e.editing = true
				return e, e.input.Focus(), false
			}
		case key.Matches(msg, keys.Save):
			if err := e.store.Validate(e.kind); err != nil {
				e.err = err
				return e, nil, false
			}
			payload, err := e.store.Payload()
			if err != nil {
				e.err = err
				return e, nil, false
			}
			e.err = nil
			e.saving = true
			return e, e.save(payload), false
		}
	}
	return e, nil, false
}

func (e *unitsEditor) updateInput(msg tea.KeyMsg) (Modal, tea.Cmd, bool) {
	switch msg.String() {
	case "esc":
		e.editing = false
		e.input.Blur()
		return e, nil, false
	case "enter":
		raw := strings.TrimSpace(e.input.Value())
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			e.err = fmt.Errorf("%q is not a number", raw)
			return e, nil, false
		}
		e.store.UpdateUnit(e.row, editorFields(e.kind)[e.field], v)
		e.err = nil
		e.editing = false
		e.input.Blur()
		return e, nil, false
	}
	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	return e, cmd, false
}

// View implements Modal.
func (e *unitsEditor) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	fields := editorFields(e.kind)
	const cellWidth = 18

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Units · " + e.item.Name))
	b.WriteString("  ")
	b.WriteString(styles.MutedText.Render(string(e.kind)))
	b.WriteString("\n\n")

	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = padRight(titleCase(string(f)), cellWidth)
	}
	b.WriteString(styles.MutedText.Bold(true).Render("    " + strings.Join(header, " ")))
	b.WriteString("\n")

	rows := e.store.Units()
	if len(rows) == 0 {
		b.WriteString(styles.FaintText.Render("    no rows, press a to add one"))
		b.WriteString("\n")
	}
	for r, u := range rows {
		b.WriteString(styles.FaintText.Render(fmt.Sprintf("%3d ", r+1)))
		for f, field := range fields {
			text := fieldValue(u, field)
			if text == "" {
				text = "-"
			}
			cell := padRight(truncate(text, cellWidth), cellWidth)
			switch {
			case r == e.row && f == e.field && e.editing:
				cell = padRight(e.input.View(), cellWidth)
			case r == e.row && f == e.field:
				cell = styles.Selected.Render(cell)
			default:
				cell = styles.Text.Render(cell)
			}
			b.WriteString(cell)
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case e.saving:
		b.WriteString(styles.InfoText.Render("Saving..."))
	case e.err != nil:
		b.WriteString(styles.DangerText.Render(e.err.Error()))
	default:
		b.WriteString(styles.FaintText.Render("enter edit · a add · x remove · ctrl+s save · esc close"))
	}

	return placeModal(theme, width, height, 72, b.String())
}
