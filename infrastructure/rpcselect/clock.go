package rpcselect

import "time"

// Clock supplies the current time, injected so that backoff and health
// loop behavior can be driven deterministically from tests instead of
// the system clock.
type Clock func() time.Time

// systemClock is the default Clock used when New is not given one.
func systemClock() time.Time {
	return time.Now().UTC()
}
