package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/backroom/internal/realtime"
	"github.com/five82/backroom/internal/state"
)

type countingReloader struct {
	mu    sync.Mutex
	calls int
	err   error
	store *state.Store
}

func (r *countingReloader) Reload(context.Context, realtime.ReloadOptions) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		r.store.Fail(r.err)
	}
	return r.err
}

func (r *countingReloader) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestRunPoller_ReloadsUntilCancelled(t *testing.T) {
	store := &state.Store{}
	reloader := &countingReloader{store: store}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunPoller(ctx, reloader, store, nil, 5*time.Millisecond, nil)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for reloader.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("reloads = %d, want >= 3", reloader.count())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestRunPoller_SkipsWhileConnected(t *testing.T) {
	store := &state.Store{}
	reloader := &countingReloader{store: store}
	var connected atomic.Bool
	connected.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	RunPoller(ctx, reloader, store, connected.Load, 5*time.Millisecond, nil)

	if got := reloader.count(); got != 0 {
		t.Fatalf("reloads while connected = %d, want 0", got)
	}
}

func TestRunPoller_FailuresRecordOffline(t *testing.T) {
	store := &state.Store{}
	reloader := &countingReloader{store: store, err: errors.New("down")}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	RunPoller(ctx, reloader, store, nil, 2*time.Millisecond, nil)

	if !store.Snapshot().IsOffline() {
		t.Fatalf("store should be offline after repeated failures, failures = %d", store.Snapshot().ConsecutiveFailures)
	}
}
