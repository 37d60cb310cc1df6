package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Br0ck25/kynews-sub003/internal/utils/text"
)

// facebookTitleRunes caps the synthesized post title length.
const facebookTitleRunes = 90

// FacebookParser extracts per-post entries from a Facebook page's HTML.
// Several county emergency management agencies and sheriff's offices
// publish only on Facebook, so posts flow through the pipeline as
// items. Posts have no headline; the title is the start of the post
// text. Downstream stages exempt Facebook items from relevance gating
// and word-count minimums.
type FacebookParser struct{}

// NewFacebookParser creates a FacebookParser.
func NewFacebookParser() *FacebookParser {
	return &FacebookParser{}
}

// Parse extracts posts from page HTML. Posts without a permalink are
// skipped; without one there is no stable item identity.
func (p *FacebookParser) Parse(baseURL, body string) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Parse: parse HTML: %w", err)
	}

	var entries []Entry
	doc.Find("div[role='article'], div[data-ft]").Each(func(i int, postEl *goquery.Selection) {
		// Nested role=article elements show up for shared posts; only
		// take top-level ones.
		if postEl.ParentsFiltered("div[role='article'], div[data-ft]").Length() > 0 {
			return
		}

		postText := extractPostText(postEl)
		if postText == "" {
			return
		}

		permalink := extractPermalink(postEl)
		if permalink == "" {
			return
		}

		entries = append(entries, Entry{
			Title:   text.TruncateRunes(postText, facebookTitleRunes),
			Link:    resolveLink(baseURL, permalink),
			Content: postText,
		})
	})

	if len(entries) == 0 {
		return nil, fmt.Errorf("Parse: no posts found in page")
	}

	return entries, nil
}

// extractPostText joins the post's paragraph text.
func extractPostText(postEl *goquery.Selection) string {
	var parts []string
	postEl.Find("p").Each(func(_ int, pEl *goquery.Selection) {
		if t := strings.TrimSpace(pEl.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(postEl.Find("div[data-ad-preview='message']").Text())
	}
	return strings.Join(parts, "\n\n")
}

// extractPermalink finds the post's permalink anchor.
func extractPermalink(postEl *goquery.Selection) string {
	permalink := ""
	postEl.Find("a").EachWithBreak(func(_ int, aEl *goquery.Selection) bool {
		href, exists := aEl.Attr("href")
		if !exists {
			return true
		}
		if strings.Contains(href, "/posts/") ||
			strings.Contains(href, "/permalink/") ||
			strings.Contains(href, "story.php") {
			permalink = strings.TrimSpace(href)
			return false
		}
		return true
	})
	return permalink
}
