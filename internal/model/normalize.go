package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the comparison form of a natural-key field: NFC, trimmed,
// lower-cased. The empty string normalizes to itself.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}
