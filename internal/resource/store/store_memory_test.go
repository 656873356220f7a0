package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodian/internal/resource/models"
	"custodian/pkg/domain"
	"custodian/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func testTime() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemorySuite) newRecord(tenant domain.TenantID, blobRef string) *models.Resource {
	record, err := models.New(domain.NewResourceID(), tenant, "invoice", map[string]any{"n": 1}, testTime())
	s.Require().NoError(err)
	record.BlobRef = blobRef
	return record
}

func (s *InMemorySuite) TestPutAndGet() {
	record := s.newRecord("tenant-1", "")
	s.Require().NoError(s.store.Put(s.ctx, record))

	got, err := s.store.Get(s.ctx, record.TenantID, record.ID)
	s.Require().NoError(err)
	s.Equal(record.ID, got.ID)
	s.Equal(int64(1), got.Version)

	s.Run("get misses return not found", func() {
		_, err := s.store.Get(s.ctx, "tenant-1", domain.NewResourceID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemorySuite) TestPutOverwriteBumpsVersion() {
	record := s.newRecord("tenant-1", "")
	s.Require().NoError(s.store.Put(s.ctx, record))

	record.Fields["n"] = 2
	s.Require().NoError(s.store.Put(s.ctx, record))

	got, err := s.store.Get(s.ctx, record.TenantID, record.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), got.Version)
}

func (s *InMemorySuite) TestReturnedRecordsAreCopies() {
	record := s.newRecord("tenant-1", "")
	s.Require().NoError(s.store.Put(s.ctx, record))

	got, err := s.store.Get(s.ctx, record.TenantID, record.ID)
	s.Require().NoError(err)
	got.Fields["n"] = 99

	fresh, err := s.store.Get(s.ctx, record.TenantID, record.ID)
	s.Require().NoError(err)
	s.Equal(1, fresh.Fields["n"])
}

func (s *InMemorySuite) TestDelete() {
	record := s.newRecord("tenant-1", "")
	s.Require().NoError(s.store.Put(s.ctx, record))

	s.Require().NoError(s.store.Delete(s.ctx, record.TenantID, record.ID))
	s.ErrorIs(s.store.Delete(s.ctx, record.TenantID, record.ID), sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestListByTenantIsIsolated() {
	a := s.newRecord("tenant-a", "")
	b := s.newRecord("tenant-b", "")
	s.Require().NoError(s.store.Put(s.ctx, a))
	s.Require().NoError(s.store.Put(s.ctx, b))

	records, err := s.store.ListByTenant(s.ctx, "tenant-a")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(a.ID, records[0].ID)
}

func (s *InMemorySuite) TestListWithBlobRefs() {
	withBlob := s.newRecord("tenant-a", "tenants/tenant-a/blobs/x")
	without := s.newRecord("tenant-a", "")
	s.Require().NoError(s.store.Put(s.ctx, withBlob))
	s.Require().NoError(s.store.Put(s.ctx, without))

	records, err := s.store.ListWithBlobRefs(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(withBlob.ID, records[0].ID)
}

func (s *InMemorySuite) TestClearBlobRef() {
	record := s.newRecord("tenant-a", "tenants/tenant-a/blobs/x")
	s.Require().NoError(s.store.Put(s.ctx, record))

	s.Run("version mismatch conflicts", func() {
		err := s.store.ClearBlobRef(s.ctx, record.TenantID, record.ID, 42)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("missing record reports not found", func() {
		err := s.store.ClearBlobRef(s.ctx, record.TenantID, domain.NewResourceID(), 1)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("matching version clears the ref and bumps the version", func() {
		s.Require().NoError(s.store.ClearBlobRef(s.ctx, record.TenantID, record.ID, 1))

		got, err := s.store.Get(s.ctx, record.TenantID, record.ID)
		s.Require().NoError(err)
		s.Empty(got.BlobRef)
		s.Equal(int64(2), got.Version)
	})
}
