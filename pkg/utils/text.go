// Package utils provides shared helpers for logging, vector math, and text.
package utils

// Truncate returns s cut to maxLen bytes with "..." appended when cut.
// A maxLen of 0 or less disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
