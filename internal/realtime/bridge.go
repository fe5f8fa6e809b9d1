package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// ReloadOptions restricts a page reload to named props. Empty Only reloads
// everything.
type ReloadOptions struct {
	Only []string
}

// Reloader re-fetches the current page's server props.
type Reloader interface {
	Reload(ctx context.Context, opts ReloadOptions) error
}

// Invalidator marks cached queries whose key starts with key as stale.
type Invalidator interface {
	InvalidateQueries(key []string)
}

// Subscription names the channel and event a bridge listens to.
type Subscription struct {
	Channel string
	Event   string
	Props   []string // reload only these props; empty reloads all
}

// Callbacks are optional hooks around a reload.
type Callbacks struct {
	OnEvent  func(payload json.RawMessage)
	OnFinish func()
}

// Options carries the ambient dependencies of a bridge.
type Options struct {
	Context context.Context // parent context for reloads
	Logger  *slog.Logger
	Metrics *Metrics
}

func (o Options) withDefaults() Options {
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// ReloadBridge reloads page props when an event arrives, one reload at a time.
type ReloadBridge struct {
	transport Transport
	channel   Channel
	reloader  Reloader
	sub       Subscription
	opts      Options
	logger    *slog.Logger

	callbacks atomic.Pointer[Callbacks]
	inFlight  atomic.Bool
	closed    atomic.Bool
	wg        sync.WaitGroup
}

// NewReloadBridge subscribes to sub and returns the mounted bridge.
func NewReloadBridge(transport Transport, reloader Reloader, sub Subscription, cb Callbacks, opts Options) *ReloadBridge {
	opts = opts.withDefaults()
	b := &ReloadBridge{
		transport: transport,
		reloader:  reloader,
		sub: Subscription{
			Channel: sub.Channel,
			Event:   sub.Event,
			Props:   slices.Clone(sub.Props),
		},
		opts: opts,
		logger: opts.Logger.With(
			"component", "reload_bridge",
			"channel", sub.Channel,
			"event", sub.Event),
	}
	b.SetCallbacks(cb)

	b.channel = transport.Channel(sub.Channel)
	b.channel.Listen(sub.Event, b.handle)
	b.channel.Error(func(err error) {
		b.logger.Warn("channel error", "error", err)
	})
	return b
}

// SetCallbacks replaces the hooks used by future and in-flight reloads.
func (b *ReloadBridge) SetCallbacks(cb Callbacks) {
	b.callbacks.Store(&cb)
}

// Reloading reports whether a reload is in flight.
func (b *ReloadBridge) Reloading() bool {
	return b.inFlight.Load()
}

func (b *ReloadBridge) handle(payload json.RawMessage) {
	if b.closed.Load() {
		return
	}
	b.opts.Metrics.event(b.sub.Channel, b.sub.Event)

	if !b.inFlight.CompareAndSwap(false, true) {
		b.opts.Metrics.drop(b.sub.Channel, b.sub.Event)
		b.logger.Debug("reload already in flight, dropping event")
		return
	}

	if cb := b.callbacks.Load(); cb.OnEvent != nil {
		cb.OnEvent(payload)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		err := b.reloader.Reload(b.opts.Context, ReloadOptions{Only: b.sub.Props})
		b.opts.Metrics.reload(b.sub.Channel, err)
		if err != nil {
			b.logger.Warn("realtime reload failed", "error", err, "props", b.sub.Props)
		}

		b.inFlight.Store(false)
		if cb := b.callbacks.Load(); cb.OnFinish != nil {
			cb.OnFinish()
		}
	}()
}

// Close stops listening and leaves the channel. A reload already in flight is
// not cancelled.
func (b *ReloadBridge) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.channel.StopListening(b.sub.Event)
	b.transport.Leave(b.sub.Channel)
}

// Wait blocks until any in-flight reload has settled.
func (b *ReloadBridge) Wait() {
	b.wg.Wait()
}

// InvalidationBridge invalidates a query key whenever an event arrives.
type InvalidationBridge struct {
	transport   Transport
	ch          Channel
	invalidator Invalidator
	channel     string
	event       string
	key         []string
	opts        Options
	logger      *slog.Logger
	closed      atomic.Bool
}

// NewInvalidationBridge subscribes to channel/event and returns the mounted
// bridge.
func NewInvalidationBridge(transport Transport, invalidator Invalidator, channel, event string, key []string, opts Options) *InvalidationBridge {
	opts = opts.withDefaults()
	b := &InvalidationBridge{
		transport:   transport,
		invalidator: invalidator,
		channel:     channel,
		event:       event,
		key:         slices.Clone(key),
		opts:        opts,
		logger: opts.Logger.With(
			"component", "invalidation_bridge",
			"channel", channel,
			"event", event),
	}

	b.ch = transport.Channel(channel)
	b.ch.Listen(event, b.handle)
	b.ch.Error(func(err error) {
		b.logger.Warn("channel error", "error", err)
	})
	return b
}

func (b *InvalidationBridge) handle(json.RawMessage) {
	if b.closed.Load() {
		return
	}
	b.opts.Metrics.event(b.channel, b.event)
	b.opts.Metrics.invalidate(b.channel)
	b.invalidator.InvalidateQueries(b.key)
}

// Close stops listening and leaves the channel.
func (b *InvalidationBridge) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.ch.StopListening(b.event)
	b.transport.Leave(b.channel)
}
