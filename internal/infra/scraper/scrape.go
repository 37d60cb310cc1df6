package scraper

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Rule is the selector map for one HTML-scrape source. Sources without
// a working feed get a rule keyed by their scraper id; the rule locates
// article cards on a listing page and pulls fields out of each.
type Rule struct {
	// ItemSelector matches one element per article on the listing page.
	ItemSelector string

	// TitleSelector matches the title inside an item. Empty means the
	// item element's own text.
	TitleSelector string

	// LinkSelector matches the anchor whose href is the article URL.
	// Empty means the first anchor inside the item.
	LinkSelector string

	// SummarySelector matches the teaser text. Optional.
	SummarySelector string

	// ImageSelector matches an img element. Optional.
	ImageSelector string

	// DateSelector matches the publish date text. Optional.
	DateSelector string

	// DateFormat is the Go reference layout for DateSelector's text.
	// Empty falls back to a list of common formats.
	DateFormat string
}

// HTMLParser extracts entries from a listing page using a selector Rule.
type HTMLParser struct {
	rule Rule
}

// NewHTMLParser creates an HTMLParser for the given rule.
func NewHTMLParser(rule Rule) *HTMLParser {
	return &HTMLParser{rule: rule}
}

// Parse extracts entries from the page HTML.
// Items missing a title or a link are skipped; relative links resolve
// against baseURL.
func (p *HTMLParser) Parse(baseURL, body string) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Parse: parse HTML: %w", err)
	}

	var entries []Entry
	doc.Find(p.rule.ItemSelector).Each(func(i int, itemEl *goquery.Selection) {
		title := p.extractTitle(itemEl)
		if title == "" {
			slog.Debug("skipping scraped item with empty title", slog.Int("index", i))
			return
		}

		link := p.extractLink(itemEl)
		if link == "" {
			slog.Debug("skipping scraped item with empty link",
				slog.Int("index", i), slog.String("title", title))
			return
		}

		entry := Entry{
			Title: title,
			Link:  resolveLink(baseURL, link),
		}

		if p.rule.SummarySelector != "" {
			entry.Snippet = strings.TrimSpace(itemEl.Find(p.rule.SummarySelector).Text())
		}

		if p.rule.ImageSelector != "" {
			if src, exists := itemEl.Find(p.rule.ImageSelector).Attr("src"); exists {
				entry.ImageURL = resolveLink(baseURL, strings.TrimSpace(src))
			}
		}

		if p.rule.DateSelector != "" {
			dateStr := strings.TrimSpace(itemEl.Find(p.rule.DateSelector).Text())
			entry.PublishedAt = parseDate(dateStr, p.rule.DateFormat)
		}

		entries = append(entries, entry)
	})

	if len(entries) == 0 {
		return nil, fmt.Errorf("Parse: no items found with selector: %s", p.rule.ItemSelector)
	}

	return entries, nil
}

func (p *HTMLParser) extractTitle(itemEl *goquery.Selection) string {
	if p.rule.TitleSelector == "" {
		return strings.TrimSpace(itemEl.Text())
	}
	return strings.TrimSpace(itemEl.Find(p.rule.TitleSelector).First().Text())
}

func (p *HTMLParser) extractLink(itemEl *goquery.Selection) string {
	sel := p.rule.LinkSelector
	if sel == "" {
		sel = "a"
	}
	// The item element itself may be the anchor.
	if itemEl.Is("a") && p.rule.LinkSelector == "" {
		if href, exists := itemEl.Attr("href"); exists {
			return strings.TrimSpace(href)
		}
	}
	if href, exists := itemEl.Find(sel).First().Attr("href"); exists {
		return strings.TrimSpace(href)
	}
	return ""
}

// resolveLink resolves a possibly relative href against the document URL.
func resolveLink(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// parseDate parses a scraped date string. Nil when nothing parses;
// county sites render dates a dozen different ways and a wrong guess
// is worse than a missing one.
func parseDate(dateStr string, format string) *time.Time {
	if dateStr == "" {
		return nil
	}

	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05Z",
		time.RFC3339,
		"Jan 2, 2006",
		"January 2, 2006",
		"01/02/2006",
		"Monday, January 2, 2006",
	}
	if format != "" {
		formats = append([]string{format}, formats...)
	}

	for _, layout := range formats {
		if t, err := time.Parse(layout, dateStr); err == nil {
			t = t.UTC()
			return &t
		}
	}

	slog.Warn("failed to parse scraped date",
		slog.String("date_str", dateStr),
		slog.String("format", format))
	return nil
}
