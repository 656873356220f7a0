package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/testutil"
)

func TestParseKind(t *testing.T) {
	for _, s := range []string{"invoice", "vehicle-title", "doc2"} {
		kind, err := ParseKind(s)
		require.NoError(t, err, "input %q", s)
		assert.Equal(t, s, kind.String())
	}

	for _, s := range []string{"", "Invoice", "in voice", "kind!", string(make([]byte, 65))} {
		_, err := ParseKind(s)
		require.Error(t, err, "input %q", s)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func TestNewResource(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	testutil.Given(t, "valid identity fields", func(t *testing.T) {
		record, err := New(domain.NewResourceID(), "tenant-1", "invoice", nil, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), record.Version)
		assert.Equal(t, now, record.CreatedAt)
		assert.Equal(t, now, record.UpdatedAt)
		assert.NotNil(t, record.Fields, "nil fields become an empty map")
		assert.Empty(t, record.BlobRef)
	})

	testutil.Given(t, "missing identity fields", func(t *testing.T) {
		_, err := New(domain.ResourceID{}, "tenant-1", "invoice", nil, now)
		assert.Error(t, err)
		_, err = New(domain.NewResourceID(), "", "invoice", nil, now)
		assert.Error(t, err)
		_, err = New(domain.NewResourceID(), "tenant-1", "", nil, now)
		assert.Error(t, err)
	})
}

func TestClone(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	record, err := New(domain.NewResourceID(), "tenant-1", "invoice", map[string]any{"n": 1}, now)
	require.NoError(t, err)

	clone := record.Clone()
	clone.Fields["n"] = 2
	clone.BlobRef = "changed"

	assert.Equal(t, 1, record.Fields["n"])
	assert.Empty(t, record.BlobRef)
}
