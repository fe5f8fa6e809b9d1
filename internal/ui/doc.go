// Package ui provides the Bubble Tea console: a sidebar menu, server-rendered
// page tables, the request log, the diagnostics tail, and modal editors for
// item units and image previews.
package ui
