package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/service_layer/infrastructure/rpcselect"
)

// Memory is a process-local rpcselect.Store, for single-instance
// deployments and for development without a Postgres instance.
type Memory struct {
	mu        sync.RWMutex
	endpoints map[string]*rpcselect.Endpoint
}

// NewMemory builds an empty Memory store.
func NewMemory() *Memory {
	return &Memory{endpoints: make(map[string]*rpcselect.Endpoint)}
}

func (m *Memory) GetByChainAndState(ctx context.Context, chain int64, state rpcselect.State) ([]rpcselect.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []rpcselect.Endpoint
	for _, e := range m.endpoints {
		if e.Chain == chain && e.State == state {
			out = append(out, *e)
		}
	}
	sortByPriority(out)
	return out, nil
}

func (m *Memory) GetByChain(ctx context.Context, chain int64) ([]rpcselect.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []rpcselect.Endpoint
	for _, e := range m.endpoints {
		if e.Chain == chain {
			out = append(out, *e)
		}
	}
	sortByPriority(out)
	return out, nil
}

func (m *Memory) GetByURL(ctx context.Context, url string) (*rpcselect.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.endpoints {
		if e.URL == url {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) GetByID(ctx context.Context, id string) (*rpcselect.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.endpoints[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) GetAll(ctx context.Context) ([]rpcselect.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]rpcselect.Endpoint, 0, len(m.endpoints))
	for _, e := range m.endpoints {
		out = append(out, *e)
	}
	return out, nil
}

func (m *Memory) Add(ctx context.Context, ep *rpcselect.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ep.CreatedAt = now
	ep.ModifiedAt = now

	cp := *ep
	m.endpoints[cp.ID] = &cp
	return nil
}

func (m *Memory) Update(ctx context.Context, ep *rpcselect.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.endpoints[ep.ID]; !ok {
		return nil
	}
	ep.ModifiedAt = time.Now().UTC()
	cp := *ep
	m.endpoints[cp.ID] = &cp
	return nil
}

// sortByPriority orders endpoints the way the selection policy expects:
// ascending priority, then ascending consecutive error count.
func sortByPriority(endpoints []rpcselect.Endpoint) {
	for i := 1; i < len(endpoints); i++ {
		for j := i; j > 0 && less(endpoints[j], endpoints[j-1]); j-- {
			endpoints[j], endpoints[j-1] = endpoints[j-1], endpoints[j]
		}
	}
}

func less(a, b rpcselect.Endpoint) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.ConsecutiveErrors < b.ConsecutiveErrors
}
