package domain

import (
	"strings"

	dErrors "custodian/pkg/domain-errors"
)

// Blob paths are a pure function of tenant and resource IDs:
//
//	tenants/<tenantID>/blobs/<resourceID>
//
// The mapping is deterministic and collision-free (tenant IDs are validated
// path-safe, resource IDs are UUIDs), so the same principal always resolves
// to the same prefix across restarts and two principals never share one.

const (
	namespaceRoot = "tenants/"
	blobSegment   = "/blobs/"
)

// NamespaceFor derives the tenant's isolated storage prefix.
func NamespaceFor(tenant TenantID) string {
	return namespaceRoot + tenant.String() + "/"
}

// NamespaceRoot is the prefix under which every tenant namespace lives.
// The reconciliation scanner enumerates blobs below it.
func NamespaceRoot() string {
	return namespaceRoot
}

// BlobPath derives the storage path for a resource's blob. The path encodes
// both IDs so the scanner can cross-reference a blob back to its record.
func BlobPath(tenant TenantID, resource ResourceID) string {
	return namespaceRoot + tenant.String() + blobSegment + resource.String()
}

// ParseBlobPath recovers the tenant and resource IDs encoded in a blob path.
func ParseBlobPath(path string) (TenantID, ResourceID, error) {
	rest, ok := strings.CutPrefix(path, namespaceRoot)
	if !ok {
		return "", ResourceID{}, dErrors.Newf(dErrors.CodeInvalidInput, "blob path %q outside namespace root", path)
	}
	tenantRaw, resourceRaw, ok := strings.Cut(rest, blobSegment)
	if !ok {
		return "", ResourceID{}, dErrors.Newf(dErrors.CodeInvalidInput, "blob path %q missing blob segment", path)
	}
	tenant, err := ParseTenantID(tenantRaw)
	if err != nil {
		return "", ResourceID{}, err
	}
	resource, err := ParseResourceID(resourceRaw)
	if err != nil {
		return "", ResourceID{}, err
	}
	return tenant, resource, nil
}
