package rpcselect

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHealthLoop_Tick_PromotesSuccessfulProbe(t *testing.T) {
	store := newFakeStore(
		Endpoint{Chain: testChain, URL: "recovering", State: StateError, Priority: 1, ConsecutiveErrors: 4},
	)
	prober := newFakeProber(nil)
	loop := NewHealthLoop(store, prober, nil, nil, testConfig(), nil)

	loop.tick(context.Background())

	ep, _ := store.GetByURL(context.Background(), "recovering")
	if ep.State != StateActive {
		t.Errorf("State = %v, want %v", ep.State, StateActive)
	}
	if ep.ConsecutiveErrors != 0 {
		t.Errorf("ConsecutiveErrors = %d, want 0", ep.ConsecutiveErrors)
	}
}

func TestHealthLoop_Tick_LeavesFailedProbeInError(t *testing.T) {
	store := newFakeStore(
		Endpoint{Chain: testChain, URL: "still-down", State: StateError, Priority: 1, ConsecutiveErrors: 4},
	)
	prober := newFakeProber(map[string]error{"still-down": errors.New("connection refused")})
	loop := NewHealthLoop(store, prober, nil, nil, testConfig(), nil)

	loop.tick(context.Background())

	ep, _ := store.GetByURL(context.Background(), "still-down")
	if ep.State != StateError {
		t.Errorf("State = %v, want %v", ep.State, StateError)
	}
}

func TestHealthLoop_Tick_IgnoresActiveEndpoints(t *testing.T) {
	store := newFakeStore(
		Endpoint{Chain: testChain, URL: "already-fine", State: StateActive, Priority: 1},
	)
	prober := newFakeProber(nil)
	loop := NewHealthLoop(store, prober, nil, nil, testConfig(), nil)

	loop.tick(context.Background())

	if prober.calls != 0 {
		t.Errorf("Probe called %d times for an Active endpoint, want 0", prober.calls)
	}
}

func TestHealthLoop_Tick_InvokesOnRecovered(t *testing.T) {
	store := newFakeStore(
		Endpoint{Chain: testChain, URL: "recovering", State: StateError, Priority: 1, ConsecutiveErrors: 4},
	)
	prober := newFakeProber(nil)

	var invoked int64 = -1
	loop := NewHealthLoop(store, prober, nil, nil, testConfig(), func(ctx context.Context, chain int64) {
		invoked = chain
	})

	loop.tick(context.Background())

	if invoked != testChain {
		t.Errorf("onRecovered called with chain %d, want %d", invoked, testChain)
	}
}

func TestHealthLoop_Run_DisabledExitsImmediately(t *testing.T) {
	store := newFakeStore(
		Endpoint{Chain: testChain, URL: "recovering", State: StateError, Priority: 1, ConsecutiveErrors: 4},
	)
	prober := newFakeProber(nil)
	cfg := testConfig()
	cfg.EnableHealthChecks = false
	loop := NewHealthLoop(store, prober, nil, nil, cfg, nil)

	done := make(chan struct{})
	go func() {
		loop.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return immediately when health checks are disabled")
	}

	if prober.calls != 0 {
		t.Errorf("Probe called %d times with health checks disabled, want 0", prober.calls)
	}
}

func TestHealthLoop_Run_StopsOnContextCancel(t *testing.T) {
	store := newFakeStore()
	prober := newFakeProber(nil)
	cfg := testConfig()
	cfg.HealthCheckInterval = 10 * time.Millisecond
	loop := NewHealthLoop(store, prober, nil, nil, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
