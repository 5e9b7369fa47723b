// Package normalize holds the canonical forms values are stored and compared
// in. Call these instead of ad-hoc strings.ToLower/TrimSpace.
package normalize

import (
	"strings"
	"unicode"
)

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Email is the stored and compared form of an email address.
func Email(s string) string { return lowerTrim(s) }

// Role is the stored form of a user role.
func Role(s string) string { return lowerTrim(s) }

// Status is the stored form of a user or membership status.
func Status(s string) string { return lowerTrim(s) }

// AuthMethod is the stored form of a sign-in method.
func AuthMethod(s string) string { return lowerTrim(s) }

// Name trims a display name. Case is kept; use text.Fold for sort keys.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// EmailList splits addresses separated by commas, semicolons or whitespace
// and normalizes each. Empty entries are dropped.
func EmailList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, Email(f))
	}
	return out
}

// Tags trims each tag and drops empties and repeats, keeping first-seen
// order. The result is never nil.
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Currency upper-cases an ISO 4217 code; blank means USD.
func Currency(s string) string {
	if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
		return s
	}
	return "USD"
}
