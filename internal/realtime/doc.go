// Package realtime connects server push events to client data refreshes.
//
// # Overview
//
// The server announces changes on named channels ("orders", "inventory", ...)
// with named events ("OrderUpdated", "StockChanged", ...). A view that shows
// data affected by those changes mounts a bridge while it is visible:
//
//   - ReloadBridge asks the page router to re-fetch some or all of the current
//     page's props.
//   - InvalidationBridge marks a query cache key stale and lets the cache
//     refetch on its own terms.
//
// Closing a bridge stops listening and leaves the channel.
//
// # Reentrancy
//
// A ReloadBridge runs at most one reload at a time. Events that arrive while a
// reload is in flight are dropped (counted and logged at debug level), so a
// burst of pushes collapses into one refresh. The flag clears when the reload
// settles, successfully or not, and OnFinish runs after that.
//
// InvalidationBridge has no such guard. Invalidating a key twice is cheap and
// the query cache already collapses concurrent fetches for one key.
//
// # Callbacks
//
// OnEvent and OnFinish live in a cell that SetCallbacks replaces atomically.
// Handlers always read the cell when they run, so a reload that started under
// one set of callbacks finishes with whatever set is current at completion.
//
// # Transport
//
// Bridges depend only on the Transport and Channel interfaces. Hub is the
// in-process implementation: remote connections (see package pusher) feed it
// with Publish and learn about joins and leaves through a ChannelObserver.
// Handlers for one channel run in the order the transport delivered the
// events.
package realtime
