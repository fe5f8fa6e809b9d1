package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/five82/backroom/internal/realtime"
	"github.com/five82/backroom/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 5 * time.Minute
)

// RunPoller reloads the current page at a fixed cadence until ctx is done.
// Ticks are skipped while the push connection is up; failures back off
// exponentially up to maxBackoff.
func RunPoller(ctx context.Context, reloader realtime.Reloader, store *state.Store, connected func() bool, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "poller")

	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if connected == nil || !connected() {
			if err := reloader.Reload(ctx, realtime.ReloadOptions{}); err != nil && ctx.Err() == nil {
				logger.Warn("page poll failed", "error", err)
			}
		}
		timer.Reset(realtime.Backoff(store.Snapshot().ConsecutiveFailures, interval, maxBackoff))
	}
}
