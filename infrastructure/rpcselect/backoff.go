package rpcselect

import "time"

// Backoff returns the delay an endpoint with n consecutive errors must
// wait, measured from its last error, before it becomes eligible again.
//
//	backoff(0) = 0
//	backoff(n) = min(base * 2^(n-1), max)   for n >= 1
//
// n is clamped at 63 to keep the shift from overflowing; cfg.Max already
// caps the result well below that point in any realistic configuration.
func Backoff(n int, cfg BackoffConfig) time.Duration {
	if n <= 0 {
		return 0
	}
	if n > 63 {
		n = 63
	}
	d := cfg.Base << uint(n-1)
	if d <= 0 || d > cfg.Max {
		return cfg.Max
	}
	return d
}
