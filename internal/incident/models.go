package incident

import (
	"time"

	"github.com/google/uuid"

	"custodian/pkg/domain"
)

// Type classifies an inconsistency between the metadata and blob stores.
type Type string

const (
	// TypeCompensationFailed: a create's metadata write failed and the
	// compensating blob delete also failed, leaving an orphan for the
	// scanner.
	TypeCompensationFailed Type = "compensation_failed"

	// TypeDanglingReference: a record's blob reference pointed at a
	// missing blob; the scanner nulled it.
	TypeDanglingReference Type = "dangling_reference"

	// TypeOrphanBlob: an unreferenced blob older than the grace period was
	// deleted by the scanner.
	TypeOrphanBlob Type = "orphan_blob"
)

// Incident is an operator-facing record of detected drift. Incidents are
// never surfaced to end users; they feed dashboards and the scanner.
type Incident struct {
	ID         uuid.UUID         `json:"id"`
	Type       Type              `json:"type"`
	TenantID   domain.TenantID   `json:"tenant_id"`
	ResourceID domain.ResourceID `json:"resource_id"`
	BlobRef    string            `json:"blob_ref,omitempty"`
	Detail     string            `json:"detail"`
	DetectedAt time.Time         `json:"detected_at"`
}
