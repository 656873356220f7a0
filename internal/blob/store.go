// Package blob defines the object store port plus its in-memory and Redis
// implementations. A blob is an opaque byte payload stored outside the
// metadata store; its path always encodes the owning tenant and resource.
package blob

import (
	"context"
	"time"

	"custodian/pkg/domain"
)

// Object is a stored blob. Stat results carry the metadata with Bytes nil.
type Object struct {
	Path        string
	TenantID    domain.TenantID
	ResourceID  domain.ResourceID
	Bytes       []byte
	ContentType string
	CreatedAt   time.Time
}

// Store is the object store port. Refs are blob paths.
type Store interface {
	// Put writes the object and returns its reference.
	Put(ctx context.Context, obj Object) (string, error)

	// Get returns the full object or sentinel.ErrNotFound.
	Get(ctx context.Context, ref string) (Object, error)

	// Stat returns the object's metadata without its payload, or
	// sentinel.ErrNotFound. The scanner uses it for existence and age
	// checks without transferring content.
	Stat(ctx context.Context, ref string) (Object, error)

	// Delete removes the object; sentinel.ErrNotFound when absent.
	Delete(ctx context.Context, ref string) error

	// List returns the paths of all objects under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
