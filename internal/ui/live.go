package ui

import (
	"encoding/json"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/backroom/internal/realtime"
)

// pageWiring describes how pushes refresh one page. A non-nil Invalidate
// selects an invalidation bridge; otherwise a reload bridge reloads Props
// (all props when empty).
type pageWiring struct {
	Channel    string
	Event      string
	Props      []string
	Invalidate []string
}

var wiring = map[string]pageWiring{
	"orders":       {Channel: "orders", Event: "OrderUpdated", Props: []string{"orders", "stats"}},
	"returns":      {Channel: "returns", Event: "ReturnUpdated", Props: []string{"returns"}},
	"items":        {Channel: "inventory", Event: "StockChanged", Invalidate: []string{"items"}},
	"suppliers":    {Channel: "suppliers", Event: "SupplierUpdated", Invalidate: []string{"suppliers"}},
	"discounts":    {Channel: "promotions", Event: "PromotionChanged"},
	"vouchers":     {Channel: "promotions", Event: "PromotionChanged"},
	"users":        {Channel: "private-users", Event: "UserChanged", Props: []string{"users"}},
	"integrations": {Channel: "integrations", Event: "SyncFinished", Props: []string{"integrations"}},
}

// pushMsg reports a push that triggered a reload.
type pushMsg struct {
	Channel string
	Event   string
}

// reloadDoneMsg reports a settled push-triggered reload.
type reloadDoneMsg struct {
	Channel string
}

// liveMount owns the bridge for the page on screen. It is shared by pointer
// across Model copies.
type liveMount struct {
	transport   realtime.Transport
	reloader    realtime.Reloader
	invalidator realtime.Invalidator
	opts        realtime.Options
	post        func(tea.Msg)

	mu     sync.Mutex
	page   string
	closer interface{ Close() }
	reload *realtime.ReloadBridge
}

// mount switches the bridge to page. Mounting the page already mounted is a
// no-op.
func (l *liveMount) mount(page string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if page == l.page {
		return
	}
	l.unmountLocked()
	l.page = page

	w, ok := wiring[page]
	if !ok || l.transport == nil {
		return
	}
	if w.Invalidate != nil {
		if l.invalidator == nil {
			return
		}
		l.closer = realtime.NewInvalidationBridge(l.transport, l.invalidator, w.Channel, w.Event, w.Invalidate, l.opts)
		return
	}
	if l.reloader == nil {
		return
	}
	channel, event := w.Channel, w.Event
	rb := realtime.NewReloadBridge(l.transport, l.reloader,
		realtime.Subscription{Channel: channel, Event: event, Props: w.Props},
		realtime.Callbacks{
			OnEvent:  func(json.RawMessage) { l.post(pushMsg{Channel: channel, Event: event}) },
			OnFinish: func() { l.post(reloadDoneMsg{Channel: channel}) },
		},
		l.opts)
	l.closer, l.reload = rb, rb
}

// reloading reports whether a push-triggered reload is in flight.
func (l *liveMount) reloading() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reload != nil && l.reload.Reloading()
}

// channel returns the channel of the mounted bridge, if any.
func (l *liveMount) channel() string {
	if l == nil {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return ""
	}
	return wiring[l.page].Channel
}

func (l *liveMount) close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unmountLocked()
	l.page = ""
}

func (l *liveMount) unmountLocked() {
	if l.closer != nil {
		l.closer.Close()
	}
	l.closer, l.reload = nil, nil
}
