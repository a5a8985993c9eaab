package rpcselect

import (
	"context"
	"time"
)

// Store is the persistence collaborator: a per-chain list of endpoints
// with their state and error bookkeeping. Implementations may be
// relational, document-oriented, or in-memory; a composite index on
// (chain, state, priority) is recommended for GetByChainAndState.
//
// GetByURL and GetByID return (nil, nil) on a miss — idiomatic Go favors
// a nil pointer over a sentinel "not found" error for lookups that
// callers routinely treat as optional (MarkSuccess/MarkFailure on an
// unknown URL are no-ops, not errors).
type Store interface {
	// GetByChainAndState returns chain's endpoints in the given state,
	// ordered by (priority, consecutive_errors) ascending.
	GetByChainAndState(ctx context.Context, chain int64, state State) ([]Endpoint, error)
	GetByChain(ctx context.Context, chain int64) ([]Endpoint, error)
	GetByURL(ctx context.Context, url string) (*Endpoint, error)
	GetByID(ctx context.Context, id string) (*Endpoint, error)
	GetAll(ctx context.Context) ([]Endpoint, error)
	// Add inserts ep, setting CreatedAt and ModifiedAt.
	Add(ctx context.Context, ep *Endpoint) error
	// Update persists ep's current fields, setting ModifiedAt.
	Update(ctx context.Context, ep *Endpoint) error
}

// Cache is the selection cache collaborator: a short-TTL mapping from a
// cache key to the last URL chosen for a chain. Get and Remove return a
// nil error on a miss; any error returned by a Cache method is treated
// by Selector as a miss and never propagates to callers.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

// Prober is the abstract network probe used by the health loop to test
// whether an Error-state endpoint has recovered. A successful call
// returns the latest block number as reported by the endpoint; any
// non-negative value is treated as healthy. The wire format used to
// obtain that number is an implementation detail of the Prober.
type Prober interface {
	Probe(ctx context.Context, url string, timeout time.Duration) (int64, error)
}
