// Package text provides utilities for text processing and analysis.
// This package includes reusable functions for word counting and rune-safe
// truncation used by the enrichment pipeline and the classifiers.
package text

import "strings"

// CountWords counts whitespace-separated words in the given text.
// It is the basis of the short-body gate and the paywall truncation signal,
// so both must agree on what a "word" is.
//
// Examples:
//
//	CountWords("hello world")        // returns 2
//	CountWords("  spaced   out  ")   // returns 2
//	CountWords("")                   // returns 0
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountRunes counts the number of Unicode characters (runes) in the given text.
// This function correctly handles multi-byte characters by counting runes
// instead of bytes, so truncation budgets hold for any input encoding.
func CountRunes(text string) int {
	return len([]rune(text))
}

// TruncateRunes returns the first n runes of the given text.
// Unlike a byte slice it never splits a multi-byte character. Used for the
// leading-body windows of the classifiers (200, 500 and 3500 rune caps).
func TruncateRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
