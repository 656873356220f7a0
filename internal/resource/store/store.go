// Package store defines the metadata store port plus its in-memory and
// PostgreSQL implementations. Stores return sentinel errors; services
// translate them into domain errors.
package store

import (
	"context"

	"custodian/internal/resource/models"
	"custodian/pkg/domain"
)

// Store persists resource metadata records keyed by (tenant, resource).
type Store interface {
	// Put upserts a record.
	Put(ctx context.Context, record *models.Resource) error

	// Get returns the record or sentinel.ErrNotFound.
	Get(ctx context.Context, tenant domain.TenantID, id domain.ResourceID) (*models.Resource, error)

	// Delete removes the record; sentinel.ErrNotFound when absent.
	Delete(ctx context.Context, tenant domain.TenantID, id domain.ResourceID) error

	// ListByTenant returns all of a tenant's records.
	ListByTenant(ctx context.Context, tenant domain.TenantID) ([]*models.Resource, error)

	// ListWithBlobRefs returns every record across all tenants whose
	// BlobRef is non-empty. The reconciliation scanner uses it for both the
	// dangling-reference pass and the referenced-set of the orphan pass.
	ListWithBlobRefs(ctx context.Context) ([]*models.Resource, error)

	// ClearBlobRef nulls a record's blob reference if its version still
	// matches. Returns sentinel.ErrConflict on a version mismatch and
	// sentinel.ErrNotFound when the record is gone; both mean the record
	// changed under the scanner and the repair should be skipped.
	ClearBlobRef(ctx context.Context, tenant domain.TenantID, id domain.ResourceID, version int64) error
}
