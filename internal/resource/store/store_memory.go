package store

import (
	"context"
	"sync"

	"custodian/internal/resource/models"
	"custodian/pkg/domain"
	"custodian/pkg/platform/sentinel"
)

// InMemory keeps records in a map guarded by a RWMutex. It backs unit tests
// and dependency-free local runs; it intentionally favors clarity over
// performance.
type InMemory struct {
	mu      sync.RWMutex
	records map[recordKey]*models.Resource
}

type recordKey struct {
	tenant domain.TenantID
	id     domain.ResourceID
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[recordKey]*models.Resource)}
}

func (s *InMemory) Put(_ context.Context, record *models.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{tenant: record.TenantID, id: record.ID}
	if existing, ok := s.records[key]; ok {
		record = record.Clone()
		record.Version = existing.Version + 1
	} else {
		record = record.Clone()
	}
	s.records[key] = record
	return nil
}

func (s *InMemory) Get(_ context.Context, tenant domain.TenantID, id domain.ResourceID) (*models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[recordKey{tenant: tenant, id: id}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemory) Delete(_ context.Context, tenant domain.TenantID, id domain.ResourceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{tenant: tenant, id: id}
	if _, ok := s.records[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

func (s *InMemory) ListByTenant(_ context.Context, tenant domain.TenantID) ([]*models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Resource
	for key, record := range s.records {
		if key.tenant == tenant {
			out = append(out, record.Clone())
		}
	}
	return out, nil
}

func (s *InMemory) ListWithBlobRefs(_ context.Context) ([]*models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Resource
	for _, record := range s.records {
		if record.BlobRef != "" {
			out = append(out, record.Clone())
		}
	}
	return out, nil
}

func (s *InMemory) ClearBlobRef(_ context.Context, tenant domain.TenantID, id domain.ResourceID, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[recordKey{tenant: tenant, id: id}]
	if !ok {
		return sentinel.ErrNotFound
	}
	if record.Version != version {
		return sentinel.ErrConflict
	}
	record.BlobRef = ""
	record.Version++
	return nil
}
