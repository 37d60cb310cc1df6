package scraper

import (
	"fmt"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
)

// ParserFactory creates Parser instances for a feed's fetch mode.
// It provides a single place where fetch modes map to document parsers.
type ParserFactory struct {
	rss      *RSSParser
	facebook *FacebookParser
}

// NewParserFactory creates a ParserFactory.
func NewParserFactory() *ParserFactory {
	return &ParserFactory{
		rss:      NewRSSParser(),
		facebook: NewFacebookParser(),
	}
}

// ParserFor returns the parser for a feed. RSS and Facebook parsers are
// shared; scrape mode builds a parser around the feed's selector rule.
func (f *ParserFactory) ParserFor(feed *entity.Feed) (Parser, error) {
	switch feed.FetchMode {
	case entity.FetchModeRSS:
		return f.rss, nil
	case entity.FetchModeScrape:
		rule, err := RuleFor(feed.ScraperID)
		if err != nil {
			return nil, fmt.Errorf("ParserFor: feed %s: %w", feed.ID, err)
		}
		return NewHTMLParser(rule), nil
	case entity.FetchModeFacebook:
		return f.facebook, nil
	default:
		return nil, fmt.Errorf("ParserFor: feed %s: unknown fetch mode: %s", feed.ID, feed.FetchMode)
	}
}
