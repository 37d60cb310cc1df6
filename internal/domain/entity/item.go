// Package entity defines the core domain entities and validation logic for the pipeline.
// It contains the fundamental business objects such as Item and Feed, along with
// their validation rules and domain-specific errors.
package entity

import "time"

// Region scopes supported by feeds and items.
const (
	RegionScopeKY       = "ky"
	RegionScopeNational = "national"
)

// Alert levels assigned by the breaking classifier.
const (
	AlertLevelEmergency  = "emergency"
	AlertLevelBreaking   = "breaking"
	AlertLevelDeveloping = "developing"
)

// Sentiment polarities assigned by the breaking classifier.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Item represents a single normalized article record.
// Its ID is a stable hash of {url, guid, title, published_at}, so re-ingesting
// the same article from any feed resolves to the same row. Enrichment columns
// start at their zero values and are filled in place by the enrichment worker.
type Item struct {
	ID          string
	Title       string
	URL         string
	GUID        string
	Author      string
	RegionScope string
	PublishedAt *time.Time
	FetchedAt   time.Time
	Summary     string
	Content     string
	ImageURL    string
	BodyText    string
	WordCount   int
	Hash        string

	// Dedup
	MinHash         string // 128 hex chars, empty until computed
	IsDuplicate     bool
	CanonicalItemID string

	// Paywall
	IsPaywalled          bool
	PaywallConfidence    int
	PaywallSignals       []string
	PaywallDeprioritized bool

	// Breaking
	IsBreaking        bool
	AlertLevel        string
	Sentiment         string
	BreakingExpiresAt *time.Time

	// AI enrichment
	AISummary         string
	AIMetaDescription string

	CategoriesJSON string
	IsFacebook     bool
	Tags           string
}

// BreakingActive reports whether the item's breaking flag still affects
// ranking at the given instant. Expired breaking items rank as ordinary news.
func (i *Item) BreakingActive(now time.Time) bool {
	return i.IsBreaking && i.BreakingExpiresAt != nil && i.BreakingExpiresAt.After(now)
}

// PaywallTier returns the ranking tier for the paywall sort key:
// free (0) < paywalled (1) < deprioritized (2).
func (i *Item) PaywallTier() int {
	switch {
	case i.PaywallDeprioritized:
		return 2
	case i.IsPaywalled:
		return 1
	default:
		return 0
	}
}

// Validate checks the cross-column invariants the enrichment worker must uphold.
func (i *Item) Validate() error {
	if i.ID == "" {
		return &ValidationError{Field: "id", Message: "id is required"}
	}
	if i.URL == "" {
		return &ValidationError{Field: "url", Message: "url is required"}
	}
	if i.IsDuplicate {
		if i.CanonicalItemID == "" {
			return &ValidationError{Field: "canonical_item_id", Message: "duplicates must reference a canonical item"}
		}
		if i.CanonicalItemID == i.ID {
			return &ValidationError{Field: "canonical_item_id", Message: "duplicates cannot reference themselves"}
		}
	}
	if i.IsBreaking && i.BreakingExpiresAt == nil {
		return &ValidationError{Field: "breaking_expires_at", Message: "breaking items must carry an expiry"}
	}
	if i.PaywallDeprioritized && (!i.IsPaywalled || !i.IsDuplicate) {
		return &ValidationError{Field: "paywall_deprioritized", Message: "deprioritization requires a paywalled duplicate"}
	}
	if i.PaywallConfidence < 0 || i.PaywallConfidence > 100 {
		return &ValidationError{Field: "paywall_confidence", Message: "confidence must be within [0,100]"}
	}
	return nil
}

// ItemLocation attaches an item to a county filter surface.
// County "" means state-level only.
type ItemLocation struct {
	ItemID    string
	StateCode string
	County    string
}

// ItemCategory attaches a free-form category string to an item.
type ItemCategory struct {
	ItemID   string
	Category string
}

// FeedItem links an item to one of the feeds that produced it.
type FeedItem struct {
	FeedID string
	ItemID string
}
