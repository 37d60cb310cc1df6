package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips utm parameters",
			in:   "https://www.kentucky.com/news/local/article1.html?utm_source=rss&utm_medium=feed",
			want: "https://www.kentucky.com/news/local/article1.html",
		},
		{
			name: "strips fbclid",
			in:   "https://www.wkyt.com/2026/08/24/crash-i75/?fbclid=IwAR123",
			want: "https://www.wkyt.com/2026/08/24/crash-i75",
		},
		{
			name: "strips fragment",
			in:   "https://www.wymt.com/news/story#comments",
			want: "https://www.wymt.com/news/story",
		},
		{
			name: "strips trailing slash",
			in:   "https://www.lex18.com/news/covering-kentucky/",
			want: "https://www.lex18.com/news/covering-kentucky",
		},
		{
			name: "keeps meaningful query params",
			in:   "https://www.bing.com/news/search?q=Perry+County+Kentucky&format=rss",
			want: "https://www.bing.com/news/search?format=rss&q=Perry+County+Kentucky",
		},
		{
			name: "upgrades known tls host",
			in:   "http://www.kentucky.com/news/article2.html",
			want: "https://www.kentucky.com/news/article2.html",
		},
		{
			name: "leaves unknown host scheme alone",
			in:   "http://smalltownpaper.example/news",
			want: "http://smalltownpaper.example/news",
		},
		{
			name: "lowercases host",
			in:   "https://WWW.WKYT.com/news",
			want: "https://www.wkyt.com/news",
		},
		{
			name: "root path keeps slash",
			in:   "https://www.wkyt.com/",
			want: "https://www.wkyt.com/",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "garbage passes through trimmed",
			in:   "  not a url  ",
			want: "not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, URL(tt.in))
		})
	}
}

func TestURL_Idempotent(t *testing.T) {
	in := "https://www.kentucky.com/news/local/article1.html?utm_source=rss#top"

	once := URL(in)
	twice := URL(once)

	assert.Equal(t, once, twice, "canonicalization must be idempotent")
}

func TestDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "strips www", in: "https://www.kentucky.com/news", want: "kentucky.com"},
		{name: "keeps subdomain", in: "https://accounts.courier-journal.com/x", want: "accounts.courier-journal.com"},
		{name: "lowercases", in: "https://WWW.WKYT.COM/news", want: "wkyt.com"},
		{name: "invalid", in: "not a url", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Domain(tt.in))
		})
	}
}

func TestItemID_PureFunction(t *testing.T) {
	published := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)

	a := ItemID("https://www.wkyt.com/news/story", "guid-1", "House passes HB 200", &published)
	b := ItemID("https://www.wkyt.com/news/story", "guid-1", "House passes HB 200", &published)

	assert.Equal(t, a, b, "same identity tuple must yield same id")
	assert.Len(t, a, 32)
}

func TestItemID_DistinguishesFields(t *testing.T) {
	published := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)
	base := ItemID("https://example.com/a", "g", "title", &published)

	tests := []struct {
		name string
		id   string
	}{
		{"different url", ItemID("https://example.com/b", "g", "title", &published)},
		{"different guid", ItemID("https://example.com/a", "g2", "title", &published)},
		{"different title", ItemID("https://example.com/a", "g", "other", &published)},
		{"nil published", ItemID("https://example.com/a", "g", "title", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.id)
		})
	}
}

func TestItemID_SeparatorPreventsFieldBleed(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide across field boundaries.
	a := ItemID("https://example.com/ab", "c", "t", nil)
	b := ItemID("https://example.com/a", "bc", "t", nil)

	assert.NotEqual(t, a, b)
}

func TestContentHash(t *testing.T) {
	a := ContentHash("title", "summary", "content")
	b := ContentHash("title", "summary", "content")
	c := ContentHash("title", "summary", "content changed")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
