// Package scraper turns raw feed and page documents into normalized
// item candidates. It parses RSS/Atom with gofeed, HTML listing pages
// with goquery selector rules keyed by scraper id, and Facebook page
// HTML into per-post records. The package never performs HTTP; callers
// fetch the document and hand the body in.
package scraper

import "time"

// Entry is a normalized item candidate parsed from a source document.
// Text fields are entity-decoded; URL canonicalization happens later
// in the ingest pipeline.
type Entry struct {
	Title       string
	Link        string
	GUID        string
	Author      string
	Content     string
	Snippet     string
	ImageURL    string
	PublishedAt *time.Time
	Categories  []string
}

// Parser parses one source document into entries.
// baseURL is the document's URL, used to resolve relative links.
type Parser interface {
	Parse(baseURL, body string) ([]Entry, error)
}
