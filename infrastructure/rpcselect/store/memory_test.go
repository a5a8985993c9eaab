package store

import (
	"context"
	"testing"

	"github.com/R3E-Network/service_layer/infrastructure/rpcselect"
)

func TestMemory_AddAndGetByURL(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	ep := &rpcselect.Endpoint{Chain: 1, URL: "http://a", State: rpcselect.StateActive, Priority: 1}
	if err := m.Add(ctx, ep); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if ep.ID == "" {
		t.Fatal("Add() did not assign an ID")
	}

	got, err := m.GetByURL(ctx, "http://a")
	if err != nil {
		t.Fatalf("GetByURL() error = %v", err)
	}
	if got == nil || got.URL != "http://a" {
		t.Fatalf("GetByURL() = %+v, want an endpoint for http://a", got)
	}
}

func TestMemory_GetByURL_Miss(t *testing.T) {
	m := NewMemory()
	got, err := m.GetByURL(context.Background(), "http://missing")
	if err != nil {
		t.Fatalf("GetByURL() error = %v", err)
	}
	if got != nil {
		t.Fatalf("GetByURL() = %+v, want nil", got)
	}
}

func TestMemory_GetByChainAndState_OrdersByPriorityThenErrors(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.Add(ctx, &rpcselect.Endpoint{Chain: 1, URL: "b", State: rpcselect.StateActive, Priority: 2, ConsecutiveErrors: 0})
	_ = m.Add(ctx, &rpcselect.Endpoint{Chain: 1, URL: "a", State: rpcselect.StateActive, Priority: 1, ConsecutiveErrors: 3})
	_ = m.Add(ctx, &rpcselect.Endpoint{Chain: 1, URL: "c", State: rpcselect.StateActive, Priority: 1, ConsecutiveErrors: 1})

	got, err := m.GetByChainAndState(ctx, 1, rpcselect.StateActive)
	if err != nil {
		t.Fatalf("GetByChainAndState() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	if got[0].URL != "c" || got[1].URL != "a" || got[2].URL != "b" {
		t.Fatalf("ordering = [%s %s %s], want [c a b]", got[0].URL, got[1].URL, got[2].URL)
	}
}

func TestMemory_Update_UnknownIDIsNoOp(t *testing.T) {
	m := NewMemory()
	err := m.Update(context.Background(), &rpcselect.Endpoint{ID: "ghost", URL: "http://ghost"})
	if err != nil {
		t.Fatalf("Update() error = %v, want nil", err)
	}
}
