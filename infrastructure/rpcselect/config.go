package rpcselect

import "time"

// Config holds the selection-policy, cache, and backoff parameters that
// control Selector and HealthLoop. All fields are optional; DefaultConfig
// describes the values applied when a field is left at its zero value.
type Config struct {
	// CacheDuration is the TTL written on cache entries by the selector.
	CacheDuration time.Duration
	// MaxConsecutiveErrors is the failure count at which an Active
	// endpoint transitions to Error.
	MaxConsecutiveErrors int
	// RequestTimeout bounds each health-loop probe.
	RequestTimeout time.Duration
	// AllowDisabledFallback permits GetBest to return a Disabled
	// endpoint when nothing healthier exists.
	AllowDisabledFallback bool
	// HealthCheckInterval is the sleep between health loop iterations.
	HealthCheckInterval time.Duration
	// EnableHealthChecks, when false, causes the health loop to exit at
	// startup without iterating.
	EnableHealthChecks bool
	// Backoff holds the exponential backoff base/cap (see backoff.go).
	Backoff BackoffConfig
	// CacheKeyPrefix, when non-empty, is appended to cache keys to
	// isolate tenants sharing one cache backend.
	CacheKeyPrefix string
}

// BackoffConfig holds the base and cap of the exponential backoff curve
// in Backoff.
type BackoffConfig struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoffConfig matches the spec's defaults: 1 minute base, 30
// minute cap.
var DefaultBackoffConfig = BackoffConfig{
	Base: time.Minute,
	Max:  30 * time.Minute,
}

// DefaultConfig returns the engine defaults from the specification.
func DefaultConfig() Config {
	return Config{
		CacheDuration:         5 * time.Minute,
		MaxConsecutiveErrors:  5,
		RequestTimeout:        30 * time.Second,
		AllowDisabledFallback: false,
		HealthCheckInterval:   5 * time.Minute,
		EnableHealthChecks:    true,
		Backoff:               DefaultBackoffConfig,
	}
}

// withDefaults fills zero-valued fields of cfg with DefaultConfig's
// values, leaving explicit non-zero choices untouched.
func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.CacheDuration == 0 {
		cfg.CacheDuration = def.CacheDuration
	}
	if cfg.MaxConsecutiveErrors == 0 {
		cfg.MaxConsecutiveErrors = def.MaxConsecutiveErrors
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = def.HealthCheckInterval
	}
	if cfg.Backoff.Base == 0 {
		cfg.Backoff.Base = def.Backoff.Base
	}
	if cfg.Backoff.Max == 0 {
		cfg.Backoff.Max = def.Backoff.Max
	}
	return cfg
}
