package incident

import (
	"context"
	"sync"
)

// Store is an append-only incident sink.
type Store interface {
	Append(ctx context.Context, inc Incident) error
	List(ctx context.Context) ([]Incident, error)
}

// InMemoryStore keeps incidents in memory for tests and local runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	incidents []Incident
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, inc Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents = append(s.incidents, inc)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Incident, len(s.incidents))
	copy(out, s.incidents)
	return out, nil
}
