package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custodian/pkg/domain-errors"
)

func TestParseTenantID(t *testing.T) {
	t.Run("accepts well-formed identifiers", func(t *testing.T) {
		for _, s := range []string{
			"tenant-1",
			"auth0:5f7c",
			"user_42",
			"a.b.c",
			"ABC123",
			strings.Repeat("x", 128),
		} {
			id, err := ParseTenantID(s)
			require.NoError(t, err, "input %q", s)
			assert.Equal(t, s, id.String())
		}
	})

	t.Run("rejects hostile input", func(t *testing.T) {
		// Tenant IDs end up as path segments, so traversal and separator
		// characters must never survive parsing.
		for _, s := range []string{
			"",
			"a/b",
			"a\\b",
			"..",
			"a..b",
			"tenant 1",
			"tenant\n1",
			"tenant\x001",
			"t@nant",
			strings.Repeat("x", 129),
		} {
			_, err := ParseTenantID(s)
			require.Error(t, err, "input %q", s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestParseResourceID(t *testing.T) {
	t.Run("round-trips a minted ID", func(t *testing.T) {
		id := NewResourceID()
		parsed, err := ParseResourceID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
		assert.False(t, parsed.IsNil())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		for _, s := range []string{
			"",
			"not-a-uuid",
			uuid.Nil.String(),
			"123e4567-e89b-12d3-a456",
		} {
			_, err := ParseResourceID(s)
			require.Error(t, err, "input %q", s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestResourceIDJSONRoundTrip(t *testing.T) {
	id := NewResourceID()

	raw, err := id.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, id.String(), string(raw))

	var decoded ResourceID
	require.NoError(t, decoded.UnmarshalText(raw))
	assert.Equal(t, id, decoded)

	assert.Error(t, decoded.UnmarshalText([]byte("not-a-uuid")))
}

func TestIDNilChecks(t *testing.T) {
	assert.True(t, TenantID("").IsNil())
	assert.False(t, TenantID("tenant-1").IsNil())
	assert.True(t, ResourceID{}.IsNil())
	assert.False(t, NewResourceID().IsNil())
}
