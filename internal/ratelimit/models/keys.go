package models

import "strings"

// KeyPrefix namespaces rate limit keys in shared stores.
const KeyPrefix = "ratelimit:tier"

// WindowKey returns the shared-store key for a tier's window.
func WindowKey(tier Tier) string {
	return KeyPrefix + ":" + SanitizeKeySegment(string(tier))
}

// SanitizeKeySegment escapes the ':' delimiter so a segment cannot spill into
// an adjacent one.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
