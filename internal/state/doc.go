// Package state holds the page snapshot shared between the background
// workers and the UI.
//
// # Overview
//
// The console shows one server-rendered page at a time. Three producers write
// to it: explicit visits from the UI, partial reloads triggered by realtime
// pushes, and the fallback poller. The UI reads it on every render. The Store
// mediates between those goroutines:
//
//	Producers:                      Consumer (UI):
//	┌──────────────────┐           ┌──────────────────┐
//	│ router.Visit()   │           │                  │
//	│ router.Reload()  │──────────→│ store.Snapshot() │
//	│ poller tick      │  (mutex)  │        ↓         │
//	└──────────────────┘           │   render page    │
//	                               └──────────────────┘
//
// # Update Semantics
//
//	// Success: replace the page, clear the error
//	store.Update(&page, nil)
//
//	// Failure: keep the last good page, record the error
//	store.Update(nil, err)
//
// Merge applies a partial reload: props named by the partial replace those on
// the current page and every other prop is kept. A partial for a different
// component than the one on screen is discarded, since the user navigated
// away while it was in flight.
//
// # Defensive Copying
//
// Snapshot clones the props map so the UI may hold a snapshot while a reload
// merges into the store. Prop values are json.RawMessage and are never
// mutated in place, so the map copy is enough.
//
// # Offline Detection
//
// ConsecutiveFailures counts failed writes since the last success. The header
// shows an offline badge once IsOffline reports true.
//
// # Notification
//
// Subscribe registers a callback invoked after each write, failed or not. The UI
// uses it to schedule a redraw instead of polling snapshots, and calls the
// returned cancel func on exit.
package state
