// Package status holds the status values stored on users and memberships
// and the enum lists the collection validators are built from.
package status

import "slices"

// User account statuses. A disabled user keeps their data but cannot sign in.
const (
	Active   = "active"
	Disabled = "disabled"
)

// Cancelled marks a membership the reader has left. Active memberships use
// Active.
const Cancelled = "cancelled"

// UserValues lists every user status.
func UserValues() []string { return []string{Active, Disabled} }

// MembershipValues lists every membership status.
func MembershipValues() []string { return []string{Active, Cancelled} }

// IsValid reports whether s is a user status.
func IsValid(s string) bool {
	return slices.Contains(UserValues(), s)
}
