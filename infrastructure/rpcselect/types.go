package rpcselect

import "time"

// State is one of the three states an Endpoint can occupy.
type State string

const (
	StateActive   State = "active"
	StateError    State = "error"
	StateDisabled State = "disabled"
)

// Endpoint is one (chain, URL) pair tracked by the engine. Endpoints are
// created by operators outside this package and mutated only by Selector
// and HealthLoop; this package never deletes or disables one.
type Endpoint struct {
	ID                string
	Chain             int64
	URL               string
	State             State
	Priority          int
	ConsecutiveErrors int
	ErrorMessage      string
	LastErrorAt       *time.Time
	CreatedAt         time.Time
	ModifiedAt        time.Time
}

// eligible reports whether e may participate in selection at time now,
// given cfg's backoff parameters. Active endpoints are always eligible.
// Error endpoints are eligible once their backoff window has elapsed.
// Disabled endpoints are never eligible here — the disabled-as-fallback
// tier is handled explicitly by Selector.GetBest.
func (e Endpoint) eligible(now time.Time, cfg BackoffConfig) bool {
	switch e.State {
	case StateActive:
		return true
	case StateError:
		return !now.Before(e.backoffDeadline(cfg))
	default:
		return false
	}
}

// backoffDeadline returns the earliest time at which e becomes eligible
// again. An endpoint with a nil LastErrorAt is always eligible — a
// defensive default for data that violates the state invariant.
func (e Endpoint) backoffDeadline(cfg BackoffConfig) time.Time {
	if e.LastErrorAt == nil {
		return time.Time{}
	}
	return e.LastErrorAt.Add(Backoff(e.ConsecutiveErrors, cfg))
}
