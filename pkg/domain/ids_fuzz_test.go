package domain

import (
	"strings"
	"testing"
)

// FuzzParseTenantID checks that no input accepted by the parser can break out
// of its path segment.
func FuzzParseTenantID(f *testing.F) {
	f.Add("tenant-1")
	f.Add("../escape")
	f.Add("a/b")
	f.Add("auth0:abc.def")
	f.Add(strings.Repeat("x", 200))

	f.Fuzz(func(t *testing.T, s string) {
		id, err := ParseTenantID(s)
		if err != nil {
			return
		}
		got := id.String()
		if got != s {
			t.Errorf("parsed value %q differs from input %q", got, s)
		}
		if strings.ContainsAny(got, "/\\") || strings.Contains(got, "..") {
			t.Errorf("accepted path-hostile tenant ID %q", got)
		}
		if len(got) == 0 || len(got) > 128 {
			t.Errorf("accepted tenant ID with invalid length %d", len(got))
		}
	})
}
