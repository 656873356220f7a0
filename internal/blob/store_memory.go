package blob

import (
	"context"
	"sort"
	"strings"
	"sync"

	"custodian/pkg/platform/sentinel"
)

// InMemory keeps blobs in a map guarded by a RWMutex, for unit tests and
// dependency-free local runs.
type InMemory struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewInMemory() *InMemory {
	return &InMemory{objects: make(map[string]Object)}
}

func (s *InMemory) Put(_ context.Context, obj Object) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := obj
	stored.Bytes = append([]byte(nil), obj.Bytes...)
	s.objects[obj.Path] = stored
	return obj.Path, nil
}

func (s *InMemory) Get(_ context.Context, ref string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[ref]
	if !ok {
		return Object{}, sentinel.ErrNotFound
	}
	out := obj
	out.Bytes = append([]byte(nil), obj.Bytes...)
	return out, nil
}

func (s *InMemory) Stat(_ context.Context, ref string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[ref]
	if !ok {
		return Object{}, sentinel.ErrNotFound
	}
	out := obj
	out.Bytes = nil
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[ref]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.objects, ref)
	return nil
}

func (s *InMemory) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for path := range s.objects {
		if strings.HasPrefix(path, prefix) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}
