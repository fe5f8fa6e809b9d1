// Package app is the composition root for backroom.
//
// # Overview
//
// Run wires configuration, logging, client-local storage, the API client, the
// page router, the query cache, the realtime hub and push connection, the
// fallback poller, and the UI. Stores are created here and injected; nothing
// in the tree reaches for a global.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()          Read ~/.config/backroom/config.toml
//	       ├─────> openLogger()           JSON slog handler on log_file
//	       ├─────> openStorage()          file or sqlite kv.Storage
//	       ├─────> prefs.Load()           theme, last page, device id
//	       ├─────> api.NewClient()        HTTP client over netlog.Transport
//	       ├─────> page.NewRouter()       owns the page in state.Store
//	       ├─────> realtime.NewHub()      channel registry
//	       ├─────> pusher.New().Run()     websocket feed into the hub (optional)
//	       ├─────> serveMetrics()         Prometheus endpoint (optional)
//	       ├─────> RunPoller()            fallback refresh
//	       └─────> ui.Run()               TUI (blocks)
//
// The UI mounts one realtime bridge for the page on screen and closes it on
// navigation, so pushes for pages the user is not looking at are never
// listened to.
//
// # Poller
//
// RunPoller reloads the current page every poll interval while the push
// connection is down. Consecutive failures double the wait, capped at five
// minutes, and the header shows an offline badge after two of them.
//
// # Shutdown
//
// When the UI returns, Run cancels the shared context and waits for the push
// connection, metrics server and poller to stop before closing storage and the
// log file.
package app
