package rpcselect

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors the selection engine updates.
// A nil *Metrics is valid everywhere it is used — Selector and
// HealthLoop treat it as "metrics disabled".
type Metrics struct {
	SelectionsTotal        *prometheus.CounterVec
	SelectionFailuresTotal *prometheus.CounterVec
	CacheHitsTotal         *prometheus.CounterVec
	CacheMissesTotal       *prometheus.CounterVec
	FailuresTotal          *prometheus.CounterVec
	StateTransitions       *prometheus.CounterVec
	HealthProbesTotal      *prometheus.CounterVec
	HealthRoundDuration    prometheus.Histogram
	HealthRecoveriesTotal  *prometheus.CounterVec
	EndpointsInState       *prometheus.GaugeVec
}

// NewMetrics builds a Metrics registered against registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		SelectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpcselect_selections_total",
				Help: "Total number of endpoint selections performed, by the tier the winner came from",
			},
			[]string{"chain", "tier"},
		),
		SelectionFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpcselect_selection_failures_total",
				Help: "Total number of selections that exhausted every eligible tier",
			},
			[]string{"chain"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpcselect_cache_hits_total",
				Help: "Total number of selection cache hits",
			},
			[]string{"chain"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpcselect_cache_misses_total",
				Help: "Total number of selection cache misses",
			},
			[]string{"chain"},
		),
		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpcselect_failures_total",
				Help: "Total number of endpoint failures reported to MarkFailure",
			},
			[]string{"chain"},
		),
		StateTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpcselect_state_transitions_total",
				Help: "Total number of endpoint state transitions",
			},
			[]string{"chain", "from", "to"},
		),
		HealthProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpcselect_health_probes_total",
				Help: "Total number of health probes performed",
			},
			[]string{"chain", "result"},
		),
		HealthRoundDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rpcselect_health_round_duration_seconds",
				Help:    "Duration of one health-loop tick across every chain",
				Buckets: prometheus.DefBuckets,
			},
		),
		HealthRecoveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpcselect_health_recoveries_total",
				Help: "Total number of endpoints promoted from Error back to Active by the health loop",
			},
			[]string{"chain"},
		),
		EndpointsInState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rpcselect_endpoints_in_state",
				Help: "Current number of endpoints by chain and state",
			},
			[]string{"chain", "state"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.SelectionsTotal, m.SelectionFailuresTotal, m.CacheHitsTotal, m.CacheMissesTotal,
		m.FailuresTotal, m.StateTransitions, m.HealthProbesTotal, m.HealthRoundDuration,
		m.HealthRecoveriesTotal, m.EndpointsInState,
	} {
		registerer.MustRegister(c)
	}
	return m
}
