package realtime

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	base := 2 * time.Second
	limit := 5 * time.Minute

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"seven failures", 7, 256 * time.Second},
		{"eight failures capped", 8, limit}, // Would be 512s
		{"many failures capped", 100, limit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Backoff(tt.failures, base, limit)
			if got != tt.want {
				t.Errorf("Backoff(%d, %v, %v) = %v, want %v", tt.failures, base, limit, got, tt.want)
			}
		})
	}
}

func TestBackoff_NeverExceedsLimit(t *testing.T) {
	for failures := 0; failures <= 64; failures++ {
		if got := Backoff(failures, time.Second, 30*time.Second); got > 30*time.Second {
			t.Errorf("Backoff(%d) = %v, exceeds limit", failures, got)
		}
	}
}
