package identity

import (
	"strings"
)

// Allowlist is the single-email authorization policy gating admin
// access. The zero value allows nobody.
type Allowlist struct {
	email string
}

// NewAllowlist creates an Allowlist for the configured admin email
func NewAllowlist(email string) Allowlist {
	return Allowlist{email: strings.ToLower(strings.TrimSpace(email))}
}

// Allows reports whether the email is the allowlisted administrator.
// Comparison is case-insensitive and fails closed: an empty configured
// email or an empty candidate never matches.
func (a Allowlist) Allows(email string) bool {
	if a.email == "" || email == "" {
		return false
	}
	return strings.ToLower(email) == a.email
}
