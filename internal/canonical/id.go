package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// idSeparator joins the identity fields before hashing. A byte that cannot
// appear in URLs or titles keeps "ab|c" and "a|bc" distinct.
const idSeparator = "\x1f"

// ItemID derives the stable item identifier from the identity tuple.
// It is a pure function: the same (url, guid, title, publishedAt) always
// yields the same id, across runs and across databases. The URL should
// already be canonicalized.
func ItemID(url, guid, title string, publishedAt *time.Time) string {
	published := ""
	if publishedAt != nil {
		published = publishedAt.UTC().Format(time.RFC3339)
	}

	sum := sha256.Sum256([]byte(url + idSeparator + guid + idSeparator + title + idSeparator + published))
	return hex.EncodeToString(sum[:16])
}

// ContentHash fingerprints the mutable content of an item so the upsert
// contract can detect unchanged re-ingestions.
func ContentHash(title, summary, content string) string {
	sum := sha256.Sum256([]byte(title + idSeparator + summary + idSeparator + content))
	return hex.EncodeToString(sum[:])
}
