package realtime

import "time"

// Backoff doubles base for each consecutive failure, capped at limit. The
// push client uses it between reconnects and the poller between reloads.
func Backoff(failures int, base, limit time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return d
}
