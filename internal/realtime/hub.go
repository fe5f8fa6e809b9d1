package realtime

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
)

// Handler receives the raw payload of one push event.
type Handler func(payload json.RawMessage)

// Channel is a subscribed push channel.
type Channel interface {
	Listen(event string, h Handler)
	StopListening(event string)
	Error(h func(error))
}

// Transport hands out channels and leaves them.
type Transport interface {
	Channel(name string) Channel
	Leave(name string)
}

// ChannelObserver learns when the hub starts or stops needing a channel.
type ChannelObserver interface {
	Join(name string)
	Leave(name string)
}

var _ Transport = (*Hub)(nil)

// Hub is an in-process channel registry.
type Hub struct {
	mu       sync.Mutex
	channels map[string]*hubChannel
	observer ChannelObserver
	logger   *slog.Logger
}

// NewHub returns an empty hub. Pass nil logger for default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		channels: make(map[string]*hubChannel),
		logger:   logger.With("component", "realtime_hub"),
	}
}

// SetObserver registers the observer and replays joins for channels that are
// already active.
func (h *Hub) SetObserver(o ChannelObserver) {
	h.mu.Lock()
	h.observer = o
	names := make([]string, 0, len(h.channels))
	for name := range h.channels {
		names = append(names, name)
	}
	h.mu.Unlock()

	if o == nil {
		return
	}
	for _, name := range names {
		o.Join(name)
	}
}

// Channel returns the named channel, joining it on first use.
func (h *Hub) Channel(name string) Channel {
	h.mu.Lock()
	ch, ok := h.channels[name]
	if !ok {
		ch = &hubChannel{name: name, listeners: make(map[string][]Handler)}
		h.channels[name] = ch
	}
	observer := h.observer
	h.mu.Unlock()

	if !ok {
		h.logger.Debug("channel joined", "channel", name)
		if observer != nil {
			observer.Join(name)
		}
	}
	return ch
}

// Leave drops the channel with every listener on it.
func (h *Hub) Leave(name string) {
	h.mu.Lock()
	_, ok := h.channels[name]
	delete(h.channels, name)
	observer := h.observer
	h.mu.Unlock()

	if !ok {
		return
	}
	h.logger.Debug("channel left", "channel", name)
	if observer != nil {
		observer.Leave(name)
	}
}

// Channels lists the active channel names.
func (h *Hub) Channels() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.channels))
	for name := range h.channels {
		names = append(names, name)
	}
	return names
}

// Publish delivers payload to the listeners of event on channel. It returns
// the number of handlers invoked.
func (h *Hub) Publish(channel, event string, payload json.RawMessage) int {
	h.mu.Lock()
	ch, ok := h.channels[channel]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	handlers := ch.handlers(event)
	for _, fn := range handlers {
		fn(payload)
	}
	return len(handlers)
}

// Fail reports err to the error handlers of channel, or of every channel when
// channel is empty.
func (h *Hub) Fail(channel string, err error) {
	h.mu.Lock()
	var targets []*hubChannel
	for name, ch := range h.channels {
		if channel == "" || name == channel {
			targets = append(targets, ch)
		}
	}
	h.mu.Unlock()

	for _, ch := range targets {
		for _, fn := range ch.errorHandlers() {
			fn(err)
		}
	}
}

type hubChannel struct {
	name string

	mu        sync.Mutex
	listeners map[string][]Handler
	onError   []func(error)
}

func (c *hubChannel) Listen(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[event] = append(c.listeners[event], h)
}

func (c *hubChannel) StopListening(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listeners, event)
}

func (c *hubChannel) Error(h func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = append(c.onError, h)
}

func (c *hubChannel) handlers(event string) []Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.listeners[event])
}

func (c *hubChannel) errorHandlers() []func(error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.onError)
}
