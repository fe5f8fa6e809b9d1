// Package pusher keeps a websocket connection to a Pusher-protocol server
// (Laravel Reverb, Soketi, Pusher Channels) and feeds received events into a
// realtime.Hub.
//
// # Protocol
//
// The client connects to {url}/app/{key}?protocol=7 and waits for
// pusher:connection_established, which carries the socket id used for
// private channel authorization. It then subscribes every channel the hub
// currently holds. Afterwards:
//
//   - hub joins and leaves become pusher:subscribe / pusher:unsubscribe frames,
//     sent in the order they happened
//   - private-* channels are authorized through an Authorizer (the back-office
//     API's /broadcasting/auth endpoint) before subscribing
//   - pusher:ping is answered with pusher:pong; the client pings on its own
//     when the connection has been idle for the server's activity timeout
//   - every other frame with a channel is published to the hub, with the
//     event name stripped of the broadcaster namespace (App\Events\)
//
// # Reconnects
//
// A dropped connection is reported to every channel's error handlers and
// retried with exponential backoff, capped at MaxBackoff. After reconnecting
// the full channel set is subscribed again, so bridges never need to know the
// connection went away.
package pusher
