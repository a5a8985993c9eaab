package rpcselect

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	cfg := BackoffConfig{Base: time.Minute, Max: 30 * time.Minute}

	tests := []struct {
		name string
		n    int
		want time.Duration
	}{
		{"zero errors", 0, 0},
		{"negative errors clamped to zero", -1, 0},
		{"first error", 1, time.Minute},
		{"second error doubles", 2, 2 * time.Minute},
		{"third error doubles again", 3, 4 * time.Minute},
		{"capped at max", 10, 30 * time.Minute},
		{"far beyond max stays capped", 1000, 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Backoff(tt.n, cfg)
			if got != tt.want {
				t.Errorf("Backoff(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestBackoff_MonotonicUntilCapped(t *testing.T) {
	cfg := BackoffConfig{Base: time.Second, Max: time.Hour}
	prev := time.Duration(0)
	for n := 1; n <= 20; n++ {
		d := Backoff(n, cfg)
		if d < prev {
			t.Fatalf("Backoff(%d) = %v is less than Backoff(%d) = %v", n, d, n-1, prev)
		}
		prev = d
	}
}
