package lifecycle

import (
	"context"
	"sync/atomic"

	"custodian/internal/blob"
	"custodian/internal/resource/models"
	"custodian/internal/resource/store"
	"custodian/pkg/domain"
	"custodian/pkg/platform/sentinel"
)

// faultyMeta wraps a metadata store and fails selected operations.
type faultyMeta struct {
	store.Store
	putErr    error
	deleteErr error
}

func (m *faultyMeta) Put(ctx context.Context, record *models.Resource) error {
	if m.putErr != nil {
		return m.putErr
	}
	return m.Store.Put(ctx, record)
}

func (m *faultyMeta) Delete(ctx context.Context, tenant domain.TenantID, id domain.ResourceID) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	return m.Store.Delete(ctx, tenant, id)
}

// faultyBlobs wraps a blob store and fails selected operations.
type faultyBlobs struct {
	blob.Store
	putErr    error
	deleteErr error
}

func (b *faultyBlobs) Put(ctx context.Context, obj blob.Object) (string, error) {
	if b.putErr != nil {
		return "", b.putErr
	}
	return b.Store.Put(ctx, obj)
}

func (b *faultyBlobs) Delete(ctx context.Context, ref string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	return b.Store.Delete(ctx, ref)
}

// flakyBlobs fails the first N puts with a transient error, then recovers.
type flakyBlobs struct {
	blob.Store
	failures int32
	calls    atomic.Int32
}

func (b *flakyBlobs) Put(ctx context.Context, obj blob.Object) (string, error) {
	call := b.calls.Add(1)
	if call <= b.failures {
		return "", sentinel.ErrUnavailable
	}
	return b.Store.Put(ctx, obj)
}

// countingBlobs counts deletes that the underlying store actually performed.
type countingBlobs struct {
	blob.Store
	successfulDeletes atomic.Int32
}

func (b *countingBlobs) Delete(ctx context.Context, ref string) error {
	err := b.Store.Delete(ctx, ref)
	if err == nil {
		b.successfulDeletes.Add(1)
	}
	return err
}
