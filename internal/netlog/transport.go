package netlog

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// maxBodySnippet caps how much of a body is kept for display.
const maxBodySnippet = 4 << 10

// Transport records every round trip into a Store.
type Transport struct {
	Base  http.RoundTripper
	Store *Store
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Store == nil {
		return base.RoundTrip(req)
	}

	id := ulid.Make().String()
	entry := RequestLog{
		ID:        id,
		Method:    req.Method,
		URL:       req.URL.String(),
		StartTime: time.Now(),
		Kind:      classify(req),
	}
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			entry.Payload = snippet(body)
			_ = body.Close()
		}
	}
	t.Store.AddLog(entry)

	resp, err := base.RoundTrip(req)
	if err != nil {
		t.Store.UpdateLogResponse(id, 0, err.Error(), true)
		return nil, err
	}

	status := resp.StatusCode
	resp.Body = &recordingBody{
		ReadCloser: resp.Body,
		settle: func(data []byte, err error) {
			if err != nil {
				t.Store.UpdateLogResponse(id, status, err.Error(), true)
				return
			}
			t.Store.UpdateLogResponse(id, status, truncate(data), status >= 400)
		},
	}
	return resp, nil
}

// recordingBody streams a response body to the caller and keeps the first
// maxBodySnippet bytes for the log. The entry settles once, on EOF, on a read
// error or on Close.
type recordingBody struct {
	io.ReadCloser
	settle func([]byte, error)

	buf     bytes.Buffer
	settled atomic.Bool
}

func (b *recordingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.keep(p[:n])
	switch {
	case err == io.EOF:
		b.finish(nil)
	case err != nil:
		b.finish(err)
	}
	return n, err
}

// Close tops the snippet up from an unread body before closing it, so a
// caller that only checks the status still leaves a useful log entry.
func (b *recordingBody) Close() error {
	if !b.settled.Load() {
		if room := maxBodySnippet + 1 - b.buf.Len(); room > 0 {
			rest, _ := io.ReadAll(io.LimitReader(b.ReadCloser, int64(room)))
			b.keep(rest)
		}
		b.finish(nil)
	}
	return b.ReadCloser.Close()
}

func (b *recordingBody) keep(p []byte) {
	if room := maxBodySnippet + 1 - b.buf.Len(); room > 0 {
		b.buf.Write(p[:min(len(p), room)])
	}
}

func (b *recordingBody) finish(err error) {
	if b.settled.CompareAndSwap(false, true) {
		b.settle(b.buf.Bytes(), err)
	}
}

func classify(req *http.Request) Kind {
	switch {
	case req.Header.Get("X-Inertia") != "":
		return KindPage
	case strings.HasPrefix(req.URL.Path, "/api/"):
		return KindAPI
	default:
		return KindOther
	}
}

func snippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxBodySnippet+1))
	return truncate(data)
}

func truncate(data []byte) string {
	if len(data) > maxBodySnippet {
		return string(data[:maxBodySnippet]) + "…"
	}
	return string(data)
}
