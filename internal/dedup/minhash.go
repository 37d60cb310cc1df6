// Package dedup implements near-duplicate detection for items using
// 16-hash MinHash signatures compared position-wise as a Jaccard estimate.
//
// Signatures are computed from an item's title plus the first 200
// characters of its summary, stored hex-encoded on the item row, and
// compared against the trailing 48-hour window of signatures. Two items
// whose estimate reaches the threshold are collapsed into a duplicate
// cluster under the earlier canonical.
package dedup

import (
	"fmt"
	"strings"

	"github.com/Br0ck25/kynews-sub003/internal/utils/text"
)

const (
	// NumHashes is the signature width. The Jaccard estimate has
	// granularity 1/NumHashes, so the 0.72 threshold means 12+ matches.
	NumHashes = 16

	// Threshold is the minimum Jaccard estimate for a duplicate match.
	Threshold = 0.72

	// SignatureHexLen is the encoded signature length: 16 x 32-bit words,
	// 8 hex digits each.
	SignatureHexLen = 128

	// summaryPrefixLen bounds how much of the summary feeds the signature.
	summaryPrefixLen = 200

	fnvOffsetBasis uint32 = 0x811c9dc5
	fnvPrime       uint32 = 0x01000193
)

// hashSeeds hold 16 distinct constants mixed into the FNV-1a offset basis,
// yielding 16 independent hash functions over the same token set.
var hashSeeds = [NumHashes]uint32{
	0x00000000, 0x3c6ef372, 0x78dde6e4, 0xb54cda56,
	0xf1bbcdc8, 0x2e2ac13a, 0x6a99b4ac, 0xa708a81e,
	0xe3779b90, 0x1fe68f02, 0x5c558274, 0x98c475e6,
	0xd5336958, 0x11a25cca, 0x4e11503c, 0x8a8043ae,
}

// Signature computes the hex-encoded MinHash signature for an item.
// It returns the empty string when tokenization yields no tokens; callers
// should skip dedup for such items rather than store a degenerate signature.
func Signature(title, summary string) string {
	tokens := Tokenize(title, summary)
	if len(tokens) == 0 {
		return ""
	}

	var sig [NumHashes]uint32
	for i := range sig {
		sig[i] = ^uint32(0)
	}

	for _, token := range tokens {
		for i := 0; i < NumHashes; i++ {
			if h := hashToken(token, hashSeeds[i]); h < sig[i] {
				sig[i] = h
			}
		}
	}

	return Encode(sig)
}

// Tokenize normalizes title + leading summary into the signature token set:
// lowercased, punctuation stripped, tokens of length <= 2 and stopwords dropped.
func Tokenize(title, summary string) []string {
	raw := title + " " + text.TruncateRunes(summary, summaryPrefixLen)

	normalized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, raw)

	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 2 || stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// hashToken is FNV-1a with the offset basis perturbed by a per-hash seed.
func hashToken(token string, seed uint32) uint32 {
	h := fnvOffsetBasis ^ seed
	for i := 0; i < len(token); i++ {
		h ^= uint32(token[i])
		h *= fnvPrime
	}
	return h
}

// Encode renders a signature as 128 lowercase hex chars.
func Encode(sig [NumHashes]uint32) string {
	var b strings.Builder
	b.Grow(SignatureHexLen)
	for _, v := range sig {
		fmt.Fprintf(&b, "%08x", v)
	}
	return b.String()
}

// Decode parses a hex signature back into its 16-tuple.
func Decode(hexSig string) ([NumHashes]uint32, error) {
	var sig [NumHashes]uint32
	if len(hexSig) != SignatureHexLen {
		return sig, fmt.Errorf("Decode: signature must be %d hex chars, got %d", SignatureHexLen, len(hexSig))
	}
	for i := 0; i < NumHashes; i++ {
		var v uint32
		if _, err := fmt.Sscanf(hexSig[i*8:i*8+8], "%08x", &v); err != nil {
			return sig, fmt.Errorf("Decode: word %d: %w", i, err)
		}
		sig[i] = v
	}
	return sig, nil
}

// Jaccard estimates set similarity between two hex signatures as the share
// of matching positions. It is symmetric by construction.
func Jaccard(a, b string) (float64, error) {
	sigA, err := Decode(a)
	if err != nil {
		return 0, fmt.Errorf("Jaccard: left: %w", err)
	}
	sigB, err := Decode(b)
	if err != nil {
		return 0, fmt.Errorf("Jaccard: right: %w", err)
	}

	matches := 0
	for i := 0; i < NumHashes; i++ {
		if sigA[i] == sigB[i] {
			matches++
		}
	}
	return float64(matches) / float64(NumHashes), nil
}
