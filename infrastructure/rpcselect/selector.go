package rpcselect

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"

	rpcerrors "github.com/R3E-Network/service_layer/infrastructure/errors"
	"github.com/R3E-Network/service_layer/pkg/logger"
)

// lockStripes bounds the number of mutexes Selector stripes its per-URL
// locking across; the exact count is not load-bearing, only the absence
// of a single global lock on the read-modify-write path.
const lockStripes = 64

// cacheEntry is the JSON payload written to Cache by GetBest/GetNext.
type cacheEntry struct {
	URL string `json:"url"`
}

// Selector is the Selector/Marker component: it chooses the best
// eligible endpoint for a chain and records the outcome of using it.
// A Selector is safe for concurrent use.
type Selector struct {
	store   Store
	cache   Cache
	clock   Clock
	log     *logger.Logger
	cfg     Config
	metrics *Metrics
	stripe  [lockStripes]sync.Mutex
}

// WithMetrics attaches a Metrics instance, returning s for chaining.
// Passing nil disables metrics reporting.
func (s *Selector) WithMetrics(m *Metrics) *Selector {
	s.metrics = m
	return s
}

// NewSelector builds a Selector. clock and log may be nil, in which
// case the system clock and a default logger are used.
func NewSelector(store Store, cache Cache, clock Clock, log *logger.Logger, cfg Config) *Selector {
	if clock == nil {
		clock = systemClock
	}
	if log == nil {
		log = logger.New(logger.LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
	}
	return &Selector{
		store: store,
		cache: cache,
		clock: clock,
		log:   log,
		cfg:   withDefaults(cfg),
	}
}

func (s *Selector) cacheKey(chain int64) string {
	if s.cfg.CacheKeyPrefix != "" {
		return fmt.Sprintf("rpc:best:%s:%d", s.cfg.CacheKeyPrefix, chain)
	}
	return fmt.Sprintf("rpc:best:%d", chain)
}

func (s *Selector) lockFor(url string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(url))
	return &s.stripe[h.Sum32()%lockStripes]
}

// GetBest returns the URL of the best endpoint currently available for
// chain. It first consults the cache; on a miss it loads candidates from
// Store, applies the selection policy, and writes the winner back to
// the cache with CacheDuration's TTL.
//
// Candidates are, in order of preference: Active endpoints; Error
// endpoints whose backoff window has elapsed; and, only if
// AllowDisabledFallback is set, Disabled endpoints. GetBest returns a
// NoHealthyEndpointError if no candidate qualifies.
func (s *Selector) GetBest(ctx context.Context, chain int64) (string, error) {
	chainLabel := fmt.Sprintf("%d", chain)

	key := s.cacheKey(chain)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != nil {
			var entry cacheEntry
			if json.Unmarshal(raw, &entry) == nil && entry.URL != "" {
				if s.metrics != nil {
					s.metrics.CacheHitsTotal.WithLabelValues(chainLabel).Inc()
					s.metrics.SelectionsTotal.WithLabelValues(chainLabel, "cache").Inc()
				}
				return entry.URL, nil
			}
		}
		if s.metrics != nil {
			s.metrics.CacheMissesTotal.WithLabelValues(chainLabel).Inc()
		}
	}

	winner, err := s.pickBest(ctx, chain)
	if err != nil {
		if s.metrics != nil && rpcerrors.IsNoHealthyEndpoint(err) {
			s.metrics.SelectionFailuresTotal.WithLabelValues(chainLabel).Inc()
		}
		return "", err
	}

	if s.metrics != nil {
		s.metrics.SelectionsTotal.WithLabelValues(chainLabel, tierOf(winner.State)).Inc()
	}
	s.writeCache(ctx, key, winner.URL)
	return winner.URL, nil
}

// tierOf names the selection tier a winning endpoint's state belongs
// to, for the rpcselect_selections_total{tier} label.
func tierOf(state State) string {
	switch state {
	case StateActive:
		return "active"
	case StateError:
		return "error"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// GetNext returns the best endpoint for chain other than failedURL,
// intended for immediate in-request failover without waiting on a
// caller to call MarkFailure first. It does not consult the cache
// (the cached entry may still reference failedURL) but overwrites it
// with the winner on success. GetNext does not honor the
// disabled-as-fallback policy.
func (s *Selector) GetNext(ctx context.Context, chain int64, failedURL string) (string, error) {
	if failedURL == "" {
		return "", rpcerrors.InvalidArgument("GetNext: failedURL must not be empty")
	}

	all, err := s.store.GetByChain(ctx, chain)
	if err != nil {
		return "", rpcerrors.Store("get_by_chain", err)
	}
	now := s.clock()
	var candidates []Endpoint
	for _, e := range all {
		if e.URL == failedURL {
			continue
		}
		if e.eligible(now, s.cfg.Backoff) {
			candidates = append(candidates, e)
		}
	}
	chainLabel := fmt.Sprintf("%d", chain)
	if len(candidates) == 0 {
		if s.metrics != nil {
			s.metrics.SelectionFailuresTotal.WithLabelValues(chainLabel).Inc()
		}
		return "", rpcerrors.NoHealthyEndpoint(chain)
	}
	winner := best(candidates)
	if s.metrics != nil {
		s.metrics.SelectionsTotal.WithLabelValues(chainLabel, tierOf(winner.State)).Inc()
	}
	s.writeCache(ctx, s.cacheKey(chain), winner.URL)
	return winner.URL, nil
}

func (s *Selector) pickBest(ctx context.Context, chain int64) (Endpoint, error) {
	candidates, err := s.eligibleCandidates(ctx, chain)
	if err != nil {
		return Endpoint{}, err
	}
	if len(candidates) == 0 {
		return Endpoint{}, rpcerrors.NoHealthyEndpoint(chain)
	}
	return best(candidates), nil
}

// eligibleCandidates gathers the tiered candidate set described on
// GetBest, without applying policy selection yet. Tiers never mix: an
// Active endpoint always outranks an Error endpoint regardless of
// priority, so the policy comparison in best() only ever runs within
// a single tier.
func (s *Selector) eligibleCandidates(ctx context.Context, chain int64) ([]Endpoint, error) {
	all, err := s.store.GetByChain(ctx, chain)
	if err != nil {
		return nil, rpcerrors.Store("get_by_chain", err)
	}

	now := s.clock()

	var active []Endpoint
	for _, e := range all {
		if e.State == StateActive {
			active = append(active, e)
		}
	}
	if len(active) > 0 {
		return active, nil
	}

	var backoffElapsed []Endpoint
	for _, e := range all {
		if e.State == StateError && e.eligible(now, s.cfg.Backoff) {
			backoffElapsed = append(backoffElapsed, e)
		}
	}
	if len(backoffElapsed) > 0 || !s.cfg.AllowDisabledFallback {
		return backoffElapsed, nil
	}

	var disabled []Endpoint
	for _, e := range all {
		if e.State == StateDisabled {
			disabled = append(disabled, e)
		}
	}
	return disabled, nil
}

func (s *Selector) writeCache(ctx context.Context, key, url string) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(cacheEntry{URL: url})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cfg.CacheDuration); err != nil {
		s.log.WithError(err).Debug("rpcselect: cache set failed, continuing without cache")
	}
}

// InvalidateChain removes chain's cached selection, if any. It is
// exposed so a HealthLoop sharing this Selector's cache can drop a
// stale entry after promoting a recovered endpoint back to Active.
func (s *Selector) InvalidateChain(ctx context.Context, chain int64) {
	s.invalidateCache(ctx, chain)
}

func (s *Selector) invalidateCache(ctx context.Context, chain int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Remove(ctx, s.cacheKey(chain)); err != nil {
		s.log.WithError(err).Debug("rpcselect: cache invalidation failed")
	}
}

// MarkSuccess records a successful call to url: its consecutive error
// count is reset to zero and, if it was in the Error state, it
// transitions to Active. The chain's selection cache is invalidated
// whenever the endpoint was erroring in either sense — State == Error,
// or State == Active with a nonzero ConsecutiveErrors left over from a
// run that didn't reach MaxConsecutiveErrors. MarkSuccess on an unknown
// URL is a no-op.
func (s *Selector) MarkSuccess(ctx context.Context, url string) error {
	if url == "" {
		return rpcerrors.InvalidArgument("MarkSuccess: url must not be empty")
	}

	mu := s.lockFor(url)
	mu.Lock()
	defer mu.Unlock()

	ep, err := s.store.GetByURL(ctx, url)
	if err != nil {
		return rpcerrors.Store("get_by_url", err)
	}
	if ep == nil {
		return nil
	}

	wasErroring := ep.State == StateError || ep.ConsecutiveErrors > 0
	ep.ConsecutiveErrors = 0
	ep.ErrorMessage = ""
	ep.LastErrorAt = nil
	if wasErroring {
		ep.State = StateActive
	}

	if err := s.store.Update(ctx, ep); err != nil {
		return rpcerrors.Store("update", err)
	}
	if wasErroring {
		s.invalidateCache(ctx, ep.Chain)
	}
	return nil
}

// MarkFailure records a failed call to url: its consecutive error count
// is incremented, the reason is recorded (an empty reason is stored as
// "unknown"), and — once the count reaches MaxConsecutiveErrors — the
// endpoint transitions from Active to Error. The chain's selection
// cache is always invalidated, since the failing
// URL may be the one currently cached. MarkFailure on an unknown URL is
// a no-op.
func (s *Selector) MarkFailure(ctx context.Context, url string, reason string) error {
	if url == "" {
		return rpcerrors.InvalidArgument("MarkFailure: url must not be empty")
	}

	mu := s.lockFor(url)
	mu.Lock()
	defer mu.Unlock()

	ep, err := s.store.GetByURL(ctx, url)
	if err != nil {
		return rpcerrors.Store("get_by_url", err)
	}
	if ep == nil {
		return nil
	}

	if reason == "" {
		reason = "unknown"
	}

	now := s.clock()
	ep.ConsecutiveErrors++
	ep.ErrorMessage = reason
	ep.LastErrorAt = &now
	chainLabel := fmt.Sprintf("%d", ep.Chain)
	if s.metrics != nil {
		s.metrics.FailuresTotal.WithLabelValues(chainLabel).Inc()
	}

	if ep.State == StateActive && ep.ConsecutiveErrors >= s.cfg.MaxConsecutiveErrors {
		ep.State = StateError
		if s.metrics != nil {
			s.metrics.StateTransitions.WithLabelValues(chainLabel, string(StateActive), string(StateError)).Inc()
		}
	}

	if err := s.store.Update(ctx, ep); err != nil {
		return rpcerrors.Store("update", err)
	}
	s.invalidateCache(ctx, ep.Chain)
	return nil
}
