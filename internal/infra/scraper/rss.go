package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// RSSParser parses RSS and Atom documents using the gofeed library.
// gofeed auto-detects the format and decodes entities, so one parser
// covers both feed types plus the RDF variants a few county papers
// still serve.
type RSSParser struct {
	parser *gofeed.Parser
}

// NewRSSParser creates an RSSParser.
func NewRSSParser() *RSSParser {
	return &RSSParser{parser: gofeed.NewParser()}
}

// Parse parses a feed document into entries.
func (p *RSSParser) Parse(baseURL, body string) ([]Entry, error) {
	feed, err := p.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("Parse: parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, it := range feed.Items {
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}

		// Content優先、なければDescriptionを使用
		content := it.Content
		if content == "" {
			content = it.Description
		}

		entries = append(entries, Entry{
			Title:       strings.TrimSpace(it.Title),
			Link:        resolveLink(baseURL, link),
			GUID:        strings.TrimSpace(it.GUID),
			Author:      itemAuthor(it),
			Content:     content,
			Snippet:     strings.TrimSpace(it.Description),
			ImageURL:    itemImage(it),
			PublishedAt: itemPublished(it),
			Categories:  it.Categories,
		})
	}

	return entries, nil
}

// itemPublished returns the entry timestamp, preferring the published
// date over the updated date. Nil when the feed carries neither; the
// query layer sorts missing dates last rather than guessing.
func itemPublished(it *gofeed.Item) *time.Time {
	if it.PublishedParsed != nil {
		t := it.PublishedParsed.UTC()
		return &t
	}
	if it.UpdatedParsed != nil {
		t := it.UpdatedParsed.UTC()
		return &t
	}
	return nil
}

func itemAuthor(it *gofeed.Item) string {
	if len(it.Authors) > 0 && it.Authors[0] != nil {
		return strings.TrimSpace(it.Authors[0].Name)
	}
	return ""
}

// itemImage pulls an image URL from enclosures or the media extension.
func itemImage(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if media, ok := it.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	return ""
}
