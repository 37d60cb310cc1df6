package scraper

import "fmt"

// rules maps a scraper id to the selector rule for that site family.
// Most Kentucky weeklies run one of a few CMS platforms, so a handful
// of rules covers the scrape-mode seed list.
var rules = map[string]Rule{
	// Self-hosted WordPress themes (The Mountain Eagle and similar).
	"wordpress": {
		ItemSelector:    "article",
		TitleSelector:   ".entry-title, h2 a, h3 a",
		LinkSelector:    ".entry-title a, h2 a, h3 a",
		SummarySelector: ".entry-summary, .entry-content p",
		ImageSelector:   "img",
		DateSelector:    "time, .entry-date",
		DateFormat:      "January 2, 2006",
	},

	// TownNews/BLOX sites (Hazard Herald, Floyd County Chronicle).
	"townnews": {
		ItemSelector:    "article.tnt-asset-type-article, .card-container article",
		TitleSelector:   ".tnt-headline, .card-headline",
		LinkSelector:    ".tnt-headline a, .card-headline a",
		SummarySelector: ".tnt-summary, .card-lead p",
		ImageSelector:   "img.img-responsive, img",
		DateSelector:    "time.tnt-date",
		DateFormat:      "Jan 2, 2006",
	},

	// Plain listing pages: every anchor inside a headline element.
	"generic": {
		ItemSelector: "h2 a, h3 a",
	},
}

// RuleFor returns the selector rule for a scraper id.
func RuleFor(scraperID string) (Rule, error) {
	rule, ok := rules[scraperID]
	if !ok {
		return Rule{}, fmt.Errorf("RuleFor: unknown scraper id: %s", scraperID)
	}
	return rule, nil
}
