package models

import (
	"time"

	"custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
)

// Kind distinguishes record types without requiring per-kind storage
// topology. Each business module supplies its own kind value and becomes a
// thin caller of the lifecycle API.
type Kind string

// ParseKind validates a kind from external input: lower-case alphanumerics
// and dashes, non-empty.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "kind cannot be empty")
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "kind too long")
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return "", dErrors.New(dErrors.CodeInvalidInput, "kind contains invalid characters")
		}
	}
	return Kind(s), nil
}

func (k Kind) String() string { return string(k) }

// Resource is a tenant-scoped metadata record. BlobRef is empty when the
// resource has no attached blob; a non-empty BlobRef should resolve to an
// existing blob except inside a detected fault window.
type Resource struct {
	ID       domain.ResourceID `json:"id"`
	TenantID domain.TenantID   `json:"tenant_id"`
	Kind     Kind              `json:"kind"`
	Fields   map[string]any    `json:"fields"`
	BlobRef  string            `json:"blob_ref,omitempty"`

	// Version increments on every write; conditional updates use it to
	// detect concurrent modification.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New builds a resource record, validating identity fields.
func New(id domain.ResourceID, tenant domain.TenantID, kind Kind, fields map[string]any, now time.Time) (*Resource, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "resource ID required")
	}
	if tenant.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID required")
	}
	if kind == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "kind required")
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return &Resource{
		ID:        id,
		TenantID:  tenant,
		Kind:      kind,
		Fields:    fields,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns a deep-enough copy so store callers cannot mutate shared
// state through returned pointers.
func (r *Resource) Clone() *Resource {
	out := *r
	out.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return &out
}
