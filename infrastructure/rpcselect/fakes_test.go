package rpcselect

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store used by selector_test.go and
// healthloop_test.go. It is deliberately simple — no indexing, linear
// scans — since test fixtures never hold more than a handful of
// endpoints.
type fakeStore struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
}

func newFakeStore(endpoints ...Endpoint) *fakeStore {
	s := &fakeStore{endpoints: make(map[string]*Endpoint)}
	for i := range endpoints {
		ep := endpoints[i]
		if ep.ID == "" {
			ep.ID = uuid.NewString()
		}
		cp := ep
		s.endpoints[cp.ID] = &cp
	}
	return s
}

func (s *fakeStore) GetByChainAndState(ctx context.Context, chain int64, state State) ([]Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Endpoint
	for _, e := range s.endpoints {
		if e.Chain == chain && e.State == state {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeStore) GetByChain(ctx context.Context, chain int64) ([]Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Endpoint
	for _, e := range s.endpoints {
		if e.Chain == chain {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeStore) GetByURL(ctx context.Context, url string) (*Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.endpoints {
		if e.URL == url {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.endpoints[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *fakeStore) GetAll(ctx context.Context) ([]Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Endpoint
	for _, e := range s.endpoints {
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeStore) Add(ctx context.Context, ep *Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	cp := *ep
	s.endpoints[cp.ID] = &cp
	return nil
}

func (s *fakeStore) Update(ctx context.Context, ep *Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[ep.ID]; !ok {
		return nil
	}
	cp := *ep
	s.endpoints[cp.ID] = &cp
	return nil
}

// fakeCache is an in-memory Cache with no TTL enforcement beyond what
// the test explicitly checks for.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Remove(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// fakeProber is a scriptable Prober: results maps a URL to the error
// Probe should return for it (nil means success).
type fakeProber struct {
	mu      sync.Mutex
	results map[string]error
	calls   int
}

func newFakeProber(results map[string]error) *fakeProber {
	return &fakeProber{results: results}
}

func (p *fakeProber) Probe(ctx context.Context, url string, timeout time.Duration) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if err, ok := p.results[url]; ok && err != nil {
		return 0, err
	}
	return 100, nil
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
