// Package api provides an HTTP client for the back-office API.
//
// # Overview
//
// The back office is a server-rendered application: each page is a component
// name plus a set of named props. The client speaks the same page protocol a
// browser would (Inertia-style JSON visits), plus a handful of JSON endpoints
// for lists the console caches separately.
//
// # Architecture
//
//   - client.go: HTTP plumbing, page visits, list fetchers, channel auth
//   - types.go: data structures mirroring the API schema
//   - session.go: decoding of the bearer token's claims for display
//
// # Page Visits
//
// Visit issues GET {path} with X-Inertia: true and returns a Page. When a
// partial reload is requested the client adds
//
//	X-Inertia-Partial-Component: <current component>
//	X-Inertia-Partial-Data: orders,stats
//
// and the server answers with only those props. A 409 with X-Inertia-Location
// means the asset version changed; the client adopts the new version and
// retries once.
//
// # Endpoints
//
//   - GET  /api/orders, /api/items, /api/suppliers: paginated lists ({"data": [...]})
//   - GET  /api/items/{id}/units: conversion units of one item
//   - PUT  /api/items/{id}/units: replace the conversion units
//   - POST /broadcasting/auth: sign a private push channel subscription
//
// # Error Handling
//
// Every failure is wrapped with what was being requested. 401/403 map to
// ErrUnauthorized and 404 to ErrNotFound so callers can react with
// errors.Is; other statuses surface as *StatusError.
//
// # Transport
//
// NewClient accepts an http.RoundTripper. The app passes a netlog.Transport
// so every request shows up in the request inspector.
package api
