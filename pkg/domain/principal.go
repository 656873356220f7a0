package domain

import "strings"

// Principal is an externally-authenticated identity candidate. The ID is the
// identity provider's stable subject; the email is what the whitelist gate
// compares against.
type Principal struct {
	ID    TenantID
	Email string
}

// NormalizeEmail canonicalizes an email for whitelist comparison: trimmed and
// case-folded. Whitelist entries and candidates must both pass through this
// before any comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
