// Package whitelist reads the authoritative set of emails permitted to obtain
// tenant access. The set is mutated only out-of-band by an administrator;
// providers read it fresh on every call so membership changes take effect
// immediately.
package whitelist

import (
	"context"
	"errors"

	pkgstrings "custodian/pkg/platform/strings"
)

// ErrConfigurationMissing indicates the whitelist record itself is absent or
// unreadable. This is operator misconfiguration, not a membership decision,
// and callers must present it differently from a plain denial.
var ErrConfigurationMissing = errors.New("whitelist configuration missing")

// Provider reads the current authorized-principal set. Implementations must
// not cache: privilege revocation has to be immediate.
type Provider interface {
	Read(ctx context.Context) (Set, error)
}

// Set holds normalized (lower-cased, trimmed) emails.
type Set map[string]struct{}

// NewSet builds a Set. Entries are trimmed, lower-cased, and deduplicated so
// whitelist storage quirks (stray whitespace, mixed case, repeats) never
// affect membership decisions.
func NewSet(emails ...string) Set {
	normalized := pkgstrings.DedupeAndTrimLower(emails)
	s := make(Set, len(normalized))
	for _, e := range normalized {
		s[e] = struct{}{}
	}
	return s
}

// Contains reports membership of an already-normalized email.
func (s Set) Contains(email string) bool {
	_, ok := s[email]
	return ok
}
