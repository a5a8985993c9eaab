package rpcselect

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

func TestSelector_WithMetrics_RecordsSelectionTierAndFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	store := newFakeStore(
		Endpoint{Chain: testChain, URL: "only", State: StateActive, Priority: 1},
	)
	sel := NewSelector(store, newFakeCache(), nil, nil, testConfig()).WithMetrics(metrics)
	ctx := context.Background()

	if _, err := sel.GetBest(ctx, testChain); err != nil {
		t.Fatalf("GetBest() error = %v", err)
	}
	if !metricCounterEquals(t, reg, "rpcselect_selections_total", map[string]string{"chain": "1", "tier": "active"}, 1) {
		t.Error("expected rpcselect_selections_total{chain=1,tier=active} = 1")
	}

	if _, err := sel.GetBest(ctx, 999); err == nil {
		t.Fatal("GetBest() on an empty chain expected error, got nil")
	}
	if !metricCounterEquals(t, reg, "rpcselect_selection_failures_total", map[string]string{"chain": "999"}, 1) {
		t.Error("expected rpcselect_selection_failures_total{chain=999} = 1")
	}
}

func TestHealthLoop_WithMetrics_RecordsRoundDurationAndRecoveries(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	store := newFakeStore(
		Endpoint{Chain: testChain, URL: "recovering", State: StateError, Priority: 1, ConsecutiveErrors: 4},
	)
	loop := NewHealthLoop(store, newFakeProber(nil), nil, nil, testConfig(), nil).WithMetrics(metrics)

	loop.tick(context.Background())

	if !metricCounterEquals(t, reg, "rpcselect_health_recoveries_total", map[string]string{"chain": "1"}, 1) {
		t.Error("expected rpcselect_health_recoveries_total{chain=1} = 1")
	}
	if !metricHistogramCountGreaterOrEqual(t, reg, "rpcselect_health_round_duration_seconds", 1) {
		t.Error("expected rpcselect_health_round_duration_seconds to record a sample")
	}
	if !metricGaugeEquals(t, reg, "rpcselect_endpoints_in_state", map[string]string{"chain": "1", "state": "active"}, 1) {
		t.Error("expected rpcselect_endpoints_in_state{chain=1,state=active} = 1 after recovery")
	}
}

func metricCounterEquals(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string, want float64) bool {
	t.Helper()
	for _, mf := range gather(t, reg) {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if labelsMatch(metric, labels) && metric.GetCounter() != nil {
				return metric.GetCounter().GetValue() == want
			}
		}
	}
	return false
}

func metricGaugeEquals(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string, want float64) bool {
	t.Helper()
	for _, mf := range gather(t, reg) {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if labelsMatch(metric, labels) && metric.GetGauge() != nil {
				return metric.GetGauge().GetValue() == want
			}
		}
	}
	return false
}

func metricHistogramCountGreaterOrEqual(t *testing.T, reg *prometheus.Registry, name string, min uint64) bool {
	t.Helper()
	for _, mf := range gather(t, reg) {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if metric.GetHistogram() != nil {
				return metric.GetHistogram().GetSampleCount() >= min
			}
		}
	}
	return false
}

func gather(t *testing.T, reg *prometheus.Registry) []*io_prometheus_client.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	return families
}

func labelsMatch(metric *io_prometheus_client.Metric, labels map[string]string) bool {
	if len(metric.GetLabel()) < len(labels) {
		return false
	}
	matched := 0
	for _, lbl := range metric.GetLabel() {
		if val, ok := labels[lbl.GetName()]; ok && val == lbl.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}
