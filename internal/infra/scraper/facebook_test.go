package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const facebookDoc = `<!DOCTYPE html>
<html><body>
<div role="article">
  <p>ROAD CLOSURE: KY 15 is closed at the Carr Creek bridge due to high water.</p>
  <p>Use KY 160 as a detour until further notice.</p>
  <a href="https://www.facebook.com/KnottCountyEM/posts/pfbid0abc123">2 hours ago</a>
</div>
<div role="article">
  <p>Reminder: the county transfer station is closed Saturday for the holiday.</p>
  <a href="/KnottCountyEM/posts/pfbid0def456">Yesterday</a>
</div>
<div role="article">
  <p>Post without a permalink anchor gets skipped.</p>
  <a href="https://www.facebook.com/KnottCountyEM/photos/">Photos</a>
</div>
</body></html>`

func TestFacebookParser_ExtractsPosts(t *testing.T) {
	entries, err := NewFacebookParser().Parse("https://www.facebook.com/KnottCountyEM", facebookDoc)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.True(t, strings.HasPrefix(first.Title, "ROAD CLOSURE: KY 15"))
	assert.Contains(t, first.Content, "Use KY 160 as a detour")
	assert.Equal(t, "https://www.facebook.com/KnottCountyEM/posts/pfbid0abc123", first.Link)

	// Relative permalinks resolve against the page URL.
	assert.Equal(t, "https://www.facebook.com/KnottCountyEM/posts/pfbid0def456", entries[1].Link)
}

func TestFacebookParser_TruncatesLongTitle(t *testing.T) {
	longPost := strings.Repeat("flood warning for the north fork ", 20)
	doc := `<div role="article"><p>` + longPost + `</p>` +
		`<a href="/page/posts/1">now</a></div>`

	entries, err := NewFacebookParser().Parse("https://www.facebook.com/page", doc)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.LessOrEqual(t, len([]rune(entries[0].Title)), facebookTitleRunes)
	// パラグラフ単位でトリムされる
	assert.Equal(t, strings.TrimSpace(longPost), entries[0].Content)
}

func TestFacebookParser_NoPosts(t *testing.T) {
	_, err := NewFacebookParser().Parse("https://www.facebook.com/page", "<html><body><p>log in</p></body></html>")
	assert.Error(t, err)
}
