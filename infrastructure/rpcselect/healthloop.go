package rpcselect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/R3E-Network/service_layer/pkg/logger"
)

// HealthLoop periodically probes every Error-state endpoint across all
// chains and promotes the ones that respond back to Active. It owns no
// chain list of its own — it discovers chains by scanning the full
// endpoint set in Store on each tick.
type HealthLoop struct {
	store   Store
	prober  Prober
	clock   Clock
	log     *logger.Logger
	cfg     Config
	metrics *Metrics

	// onRecovered is invoked after an endpoint is promoted back to
	// Active, so callers can invalidate the relevant cache entry. It is
	// set by NewHealthLoop to Selector.invalidateCache when the two are
	// wired together by the caller; it may be nil.
	onRecovered func(ctx context.Context, chain int64)
}

// NewHealthLoop builds a HealthLoop. onRecovered may be nil.
func NewHealthLoop(store Store, prober Prober, clock Clock, log *logger.Logger, cfg Config, onRecovered func(ctx context.Context, chain int64)) *HealthLoop {
	if clock == nil {
		clock = systemClock
	}
	if log == nil {
		log = logger.New(logger.LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
	}
	return &HealthLoop{
		store:       store,
		prober:      prober,
		clock:       clock,
		log:         log,
		cfg:         withDefaults(cfg),
		onRecovered: onRecovered,
	}
}

// WithMetrics attaches a Metrics instance, returning h for chaining.
// Passing nil disables metrics reporting.
func (h *HealthLoop) WithMetrics(m *Metrics) *HealthLoop {
	h.metrics = m
	return h
}

// Run blocks, probing Error-state endpoints every HealthCheckInterval,
// until ctx is canceled. If EnableHealthChecks is false, Run logs a
// notice and returns immediately without probing.
func (h *HealthLoop) Run(ctx context.Context) {
	if !h.cfg.EnableHealthChecks {
		h.log.Info("rpcselect: health checks disabled, health loop not started")
		return
	}

	ticker := time.NewTicker(h.cfg.HealthCheckInterval)
	defer ticker.Stop()

	h.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.tick(ctx)
		}
	}
}

// tick runs one probing pass over every Error-state endpoint, concurrently.
func (h *HealthLoop) tick(ctx context.Context) {
	start := h.clock()
	endpoints, err := h.store.GetAll(ctx)
	if err != nil {
		h.log.WithError(err).Warn("rpcselect: health loop failed to load endpoints")
		return
	}

	h.refreshStateGauge(endpoints)

	var wg sync.WaitGroup
	for _, ep := range endpoints {
		if ep.State != StateError {
			continue
		}
		ep := ep
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.probeOne(ctx, ep)
		}()
	}
	wg.Wait()

	if h.metrics != nil {
		h.metrics.HealthRoundDuration.Observe(h.clock().Sub(start).Seconds())
	}
}

// refreshStateGauge recomputes the endpoints-in-state gauge from a full
// snapshot. The gauge is reset first so a chain/state combination that
// drops to zero doesn't linger at its last nonzero value.
func (h *HealthLoop) refreshStateGauge(endpoints []Endpoint) {
	if h.metrics == nil {
		return
	}
	counts := make(map[[2]string]int)
	for _, ep := range endpoints {
		counts[[2]string{fmt.Sprintf("%d", ep.Chain), string(ep.State)}]++
	}
	h.metrics.EndpointsInState.Reset()
	for k, n := range counts {
		h.metrics.EndpointsInState.WithLabelValues(k[0], k[1]).Set(float64(n))
	}
}

// probeOne probes a single Error-state endpoint and, on success,
// promotes it back to Active.
func (h *HealthLoop) probeOne(ctx context.Context, ep Endpoint) {
	chainLabel := fmt.Sprintf("%d", ep.Chain)
	_, err := h.prober.Probe(ctx, ep.URL, h.cfg.RequestTimeout)
	if err != nil {
		h.log.WithField("url", ep.URL).WithError(err).Debug("rpcselect: health probe failed, endpoint remains in error state")
		if h.metrics != nil {
			h.metrics.HealthProbesTotal.WithLabelValues(chainLabel, "failure").Inc()
		}
		return
	}
	if h.metrics != nil {
		h.metrics.HealthProbesTotal.WithLabelValues(chainLabel, "success").Inc()
	}

	ep.State = StateActive
	ep.ConsecutiveErrors = 0
	ep.ErrorMessage = ""
	ep.LastErrorAt = nil
	if err := h.store.Update(ctx, &ep); err != nil {
		h.log.WithField("url", ep.URL).WithError(err).Warn("rpcselect: health probe succeeded but failed to persist recovery")
		return
	}
	if h.metrics != nil {
		h.metrics.StateTransitions.WithLabelValues(chainLabel, string(StateError), string(StateActive)).Inc()
		h.metrics.HealthRecoveriesTotal.WithLabelValues(chainLabel).Inc()
	}

	h.log.WithField("url", ep.URL).Info("rpcselect: endpoint recovered")
	if h.onRecovered != nil {
		h.onRecovered(ctx, ep.Chain)
	}
}
