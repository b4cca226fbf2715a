package util

import "strings"

// NormalizeEmail lowercases and trims an email address so store lookups
// and writes always see the same canonical form.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
