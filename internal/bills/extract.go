// Package bills extracts Kentucky General Assembly bill references from
// article text. Mentions are normalized to the registry form used by the
// ky_bills table, e.g. "HB 123".
package bills

import (
	"regexp"
	"strconv"
	"strings"
)

// billRe matches the eight instrument prefixes (HB, HR, HCR, HJR, SB, SR,
// SCR, SJR) in plain or dotted form, with or without a space before the
// number. Bill numbers run four digits at most.
var billRe = regexp.MustCompile(`(?i)\b(h|s)\.?(b|r|cr|jr)\.?\s*(\d{1,4})\b`)

// Extract returns the unique bill references in text, normalized and in
// order of first appearance.
func Extract(text string) []string {
	matches := billRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var refs []string
	for _, m := range matches {
		number, err := strconv.Atoi(m[3])
		if err != nil || number == 0 {
			continue
		}
		ref := strings.ToUpper(m[1]+m[2]) + " " + strconv.Itoa(number)
		if seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}
