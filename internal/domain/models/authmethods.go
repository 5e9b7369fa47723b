package models

import "slices"

// How a user account authenticates. Trust accounts were seeded by an admin
// and become Google accounts on first sign-in.
const (
	AuthMethodGoogle = "google"
	AuthMethodTrust  = "trust"
)

// IsValidAuthMethod reports whether value names a known auth method.
func IsValidAuthMethod(value string) bool {
	return slices.Contains([]string{AuthMethodGoogle, AuthMethodTrust}, value)
}
