package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "custodian/pkg/domain-errors"
)

// TenantID is the opaque, externally-issued principal identifier. It doubles
// as the tenant isolation key, so parsing enforces that it is safe to embed
// in storage paths.
type TenantID string

// ResourceID identifies a single resource record within a tenant.
type ResourceID uuid.UUID

const maxTenantIDLen = 128

// ParseTenantID validates an external subject identifier at a trust boundary.
// The value ends up in blob paths, so anything that could escape a path
// segment is rejected.
func ParseTenantID(s string) (TenantID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tenant ID cannot be empty")
	}
	if len(s) > maxTenantIDLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tenant ID too long")
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == ':' || r == '.':
		default:
			return "", dErrors.New(dErrors.CodeInvalidInput, "tenant ID contains invalid characters")
		}
	}
	if strings.Contains(s, "..") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tenant ID contains invalid characters")
	}
	return TenantID(s), nil
}

func (t TenantID) String() string { return string(t) }

func (t TenantID) IsNil() bool { return t == "" }

// NewResourceID mints a fresh resource identifier.
func NewResourceID() ResourceID {
	return ResourceID(uuid.New())
}

// ParseResourceID validates a resource identifier from external input.
// IDs must be valid, non-nil UUIDs.
func ParseResourceID(s string) (ResourceID, error) {
	if s == "" {
		return ResourceID{}, dErrors.New(dErrors.CodeInvalidInput, "resource ID cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return ResourceID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid resource ID")
	}
	if parsed == uuid.Nil {
		return ResourceID{}, dErrors.New(dErrors.CodeInvalidInput, "resource ID cannot be nil")
	}
	return ResourceID(parsed), nil
}

func (r ResourceID) String() string { return uuid.UUID(r).String() }

func (r ResourceID) IsNil() bool { return uuid.UUID(r) == uuid.Nil }

// MarshalText keeps the canonical string form in JSON and logs; defined types
// do not inherit the underlying UUID's encoding methods.
func (r ResourceID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *ResourceID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*r = ResourceID(parsed)
	return nil
}
