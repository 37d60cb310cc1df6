package text_test

import (
	"strings"
	"testing"

	"github.com/Br0ck25/kynews-sub003/internal/utils/text"
)

// TestCountWords tests the CountWords function with pipeline-relevant inputs
func TestCountWords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{
			name:     "plain sentence",
			input:    "House passes HB 200 on second reading",
			expected: 7,
		},
		{
			name:     "collapsed whitespace",
			input:    "  tornado   warning \n issued ",
			expected: 3,
		},
		{
			name:     "empty string",
			input:    "",
			expected: 0,
		},
		{
			name:     "whitespace only",
			input:    " \t\n ",
			expected: 0,
		},
		{
			name:     "single word",
			input:    "Kentucky",
			expected: 1,
		},
		{
			name:     "exactly fifty words",
			input:    strings.TrimSpace(strings.Repeat("word ", 50)),
			expected: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := text.CountWords(tt.input)
			if got != tt.expected {
				t.Errorf("CountWords(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

// TestCountRunes tests rune counting against multi-byte input
func TestCountRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "ascii", input: "hello", expected: 5},
		{name: "accented", input: "café", expected: 4},
		{name: "emoji", input: "storm 🌪", expected: 7},
		{name: "empty", input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := text.CountRunes(tt.input)
			if got != tt.expected {
				t.Errorf("CountRunes(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

// TestTruncateRunes tests rune-safe truncation
func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{
			name:     "shorter than limit",
			input:    "short",
			n:        200,
			expected: "short",
		},
		{
			name:     "exactly at limit",
			input:    "abcde",
			n:        5,
			expected: "abcde",
		},
		{
			name:     "truncated",
			input:    "abcdefgh",
			n:        5,
			expected: "abcde",
		},
		{
			name:     "multi-byte not split",
			input:    "caféteria",
			n:        4,
			expected: "café",
		},
		{
			name:     "zero limit",
			input:    "anything",
			n:        0,
			expected: "",
		},
		{
			name:     "negative limit",
			input:    "anything",
			n:        -1,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := text.TruncateRunes(tt.input, tt.n)
			if got != tt.expected {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.expected)
			}
		})
	}
}
