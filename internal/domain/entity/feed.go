package entity

import (
	"fmt"
	"time"
)

// Fetch modes supported by the feed parser.
const (
	FetchModeRSS      = "rss"
	FetchModeScrape   = "scrape"
	FetchModeFacebook = "facebook-page"
)

// Default-county attachment policies.
// Authoritative feeds always attach their default county; fallback feeds
// attach it only when the location tagger found nothing.
const (
	CountyModeAuthoritative = "authoritative"
	CountyModeFallback      = "fallback"
)

// Feed represents a configured source producing item candidates per poll.
// It carries the conditional-fetch validators written back by the
// ingestion orchestrator after every poll.
type Feed struct {
	ID                string
	Name              string
	URL               string
	Category          string
	StateCode         string
	RegionScope       string
	FetchMode         string
	ScraperID         string
	DefaultCounty     string
	DefaultCountyMode string
	Enabled           bool
	IsBingFallback    bool
	ETag              string
	LastModified      string
	LastCheckedAt     *time.Time
}

// Validate validates the Feed entity fields.
// It normalizes empty mode fields to their defaults and checks that
// scrape-mode feeds carry the selector rule set they need.
func (f *Feed) Validate() error {
	if f.ID == "" {
		return &ValidationError{Field: "id", Message: "id is required"}
	}
	if err := ValidateURL(f.URL); err != nil {
		return err
	}

	if f.FetchMode == "" {
		f.FetchMode = FetchModeRSS
	}
	validModes := map[string]bool{
		FetchModeRSS:      true,
		FetchModeScrape:   true,
		FetchModeFacebook: true,
	}
	if !validModes[f.FetchMode] {
		return fmt.Errorf("invalid fetch_mode: %s (must be rss, scrape, or facebook-page)", f.FetchMode)
	}

	if f.FetchMode == FetchModeScrape && f.ScraperID == "" {
		return &ValidationError{Field: "scraper_id", Message: "scraper_id is required for scrape-mode feeds"}
	}

	if f.RegionScope == "" {
		f.RegionScope = RegionScopeKY
	}
	if f.RegionScope != RegionScopeKY && f.RegionScope != RegionScopeNational {
		return fmt.Errorf("invalid region_scope: %s (must be ky or national)", f.RegionScope)
	}

	if f.DefaultCountyMode == "" {
		f.DefaultCountyMode = CountyModeAuthoritative
	}
	if f.DefaultCountyMode != CountyModeAuthoritative && f.DefaultCountyMode != CountyModeFallback {
		return fmt.Errorf("invalid default_county_mode: %s (must be authoritative or fallback)", f.DefaultCountyMode)
	}

	return nil
}
