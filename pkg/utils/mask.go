package utils

import "strings"

// ================================================================================
// Masking
// ================================================================================

// MaskString masks a string, showing only first and last characters
func MaskString(s string, showChars int) string {
	length := len(s)
	if length <= showChars*2 {
		return strings.Repeat("*", length)
	}

	prefix := s[:showChars]
	suffix := s[length-showChars:]
	masked := strings.Repeat("*", length-showChars*2)

	return prefix + masked + suffix
}

// MaskToken masks a token, showing only first 8 characters. Long tokens are
// shortened so XML assertions stay readable in logs.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	masked := len(token) - 8
	if masked > 16 {
		masked = 16
	}
	return token[:8] + strings.Repeat("*", masked)
}
