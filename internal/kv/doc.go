// Package kv provides the durable client-local storage used by persisted stores.
//
// # Overview
//
// Storage is a flat key to serialized-string map. Each persisted store owns one
// key (its namespace) and writes its whole partial state to it after every
// commit. Nothing here understands the values; encoding is the caller's job.
//
// # Backends
//
//   - FileStorage: one file per key under a directory (default
//     ~/.local/share/backroom/storage). Writes go through a temp file and a
//     rename so a crash never leaves a half-written slot.
//   - SQLiteStorage: a single "kv" table in a SQLite database, for setups that
//     prefer one file. Uses the pure-Go modernc.org/sqlite driver.
//   - MemoryStorage: process-local map, used by tests and as a fallback when
//     the configured backend cannot be opened.
//
// # Sharing
//
// Several processes may point at the same directory or database. There is no
// cross-process coordination: the last write wins.
package kv
