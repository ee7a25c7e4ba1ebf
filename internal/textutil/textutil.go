// Package textutil holds small string helpers shared by the services.
package textutil

import "unicode/utf8"

// Truncate cuts s to at most maxBytes bytes without splitting a rune.
func Truncate(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
