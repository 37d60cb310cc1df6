package geotag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
)

func newTestTagger(t *testing.T) *Tagger {
	t.Helper()

	gaz, err := LoadGazetteer()
	require.NoError(t, err)
	return NewTagger(gaz)
}

func TestTagger_Detect(t *testing.T) {
	tagger := newTestTagger(t)

	tests := []struct {
		name    string
		article Article
		want    []Location
	}{
		{
			name: "county in title trusted on a single mention",
			article: Article{
				Title:       "Perry County crash closes KY 15",
				RegionScope: entity.RegionScopeKY,
				FetchMode:   entity.FetchModeRSS,
			},
			want: []Location{
				{StateCode: "KY"},
				{StateCode: "KY", County: "Perry"},
			},
		},
		{
			name: "single body mention is not enough",
			article: Article{
				Title:       "School board sets new calendar",
				Body:        "The Floyd County board of education met Tuesday to approve the schedule.",
				RegionScope: entity.RegionScopeKY,
				FetchMode:   entity.FetchModeRSS,
			},
			want: nil,
		},
		{
			name: "two body mentions tag the county",
			article: Article{
				Title:       "Road repairs continue after storm",
				Body:        "Crews worked overnight across Floyd County. Drivers in Floyd County should expect delays through Friday.",
				RegionScope: entity.RegionScopeKY,
				FetchMode:   entity.FetchModeRSS,
			},
			want: []Location{
				{StateCode: "KY"},
				{StateCode: "KY", County: "Floyd"},
			},
		},
		{
			name: "adjacent body mentions both count",
			article: Article{
				Title:       "Volunteers clean up flood damage",
				Body:        "Volunteers gathered in Floyd County. Floyd County officials thanked them.",
				RegionScope: entity.RegionScopeKY,
				FetchMode:   entity.FetchModeRSS,
			},
			want: []Location{
				{StateCode: "KY"},
				{StateCode: "KY", County: "Floyd"},
			},
		},
		{
			name: "city hint with kentucky signal resolves county",
			article: Article{
				Title:       "Flood closes Main Street",
				Body:        "Hazard police closed Main Street after the storm. Crews in Hazard expect the Kentucky River to crest overnight.",
				RegionScope: entity.RegionScopeKY,
				FetchMode:   entity.FetchModeRSS,
			},
			want: []Location{
				{StateCode: "KY"},
				{StateCode: "KY", County: "Perry"},
			},
		},
		{
			name: "city hint without kentucky signal is ignored",
			article: Article{
				Title:       "Water main break closes school",
				Body:        "Hazard crews shut a water line near the elementary school Monday.",
				RegionScope: entity.RegionScopeKY,
				FetchMode:   entity.FetchModeRSS,
			},
			want: nil,
		},
		{
			name: "competing state in title suppresses tagging",
			article: Article{
				Title:       "Cleveland, Ohio man charged in fatal crash",
				Body:        "Authorities said the driver fled the scene.",
				RegionScope: entity.RegionScopeKY,
				FetchMode:   entity.FetchModeRSS,
			},
			want: nil,
		},
		{
			name: "ohio county is not a competing state",
			article: Article{
				Title:       "Ohio County fair opens Thursday",
				RegionScope: entity.RegionScopeKY,
				FetchMode:   entity.FetchModeRSS,
			},
			want: []Location{
				{StateCode: "KY"},
				{StateCode: "KY", County: "Ohio"},
			},
		},
		{
			name: "kentucky signal defeats competing state",
			article: Article{
				Title:       "Indiana man charged in Jefferson County, Kentucky",
				RegionScope: entity.RegionScopeKY,
				FetchMode:   entity.FetchModeRSS,
			},
			want: []Location{
				{StateCode: "KY"},
				{StateCode: "KY", County: "Jefferson"},
			},
		},
		{
			name: "authoritative default always attaches",
			article: Article{
				Title:         "Knott County schools close Friday",
				RegionScope:   entity.RegionScopeKY,
				FetchMode:     entity.FetchModeScrape,
				DefaultCounty: "Perry",
				CountyMode:    entity.CountyModeAuthoritative,
			},
			want: []Location{
				{StateCode: "KY"},
				{StateCode: "KY", County: "Knott"},
				{StateCode: "KY", County: "Perry"},
			},
		},
		{
			name: "fallback default suppressed by detection",
			article: Article{
				Title:         "Knott County schools close Friday",
				RegionScope:   entity.RegionScopeKY,
				FetchMode:     entity.FetchModeScrape,
				DefaultCounty: "Perry",
				CountyMode:    entity.CountyModeFallback,
			},
			want: []Location{
				{StateCode: "KY"},
				{StateCode: "KY", County: "Knott"},
			},
		},
		{
			name: "fallback default fills when nothing detected",
			article: Article{
				Title:         "Lunch menu for next week",
				RegionScope:   entity.RegionScopeKY,
				FetchMode:     entity.FetchModeScrape,
				DefaultCounty: "Perry",
				CountyMode:    entity.CountyModeFallback,
			},
			want: []Location{
				{StateCode: "KY"},
				{StateCode: "KY", County: "Perry"},
			},
		},
		{
			name: "default county spelling is canonicalized",
			article: Article{
				Title:         "Council advances sidewalk plan",
				RegionScope:   entity.RegionScopeKY,
				FetchMode:     entity.FetchModeScrape,
				DefaultCounty: "perry",
				CountyMode:    entity.CountyModeAuthoritative,
			},
			want: []Location{
				{StateCode: "KY"},
				{StateCode: "KY", County: "Perry"},
			},
		},
		{
			name: "facebook posts ignore the body",
			article: Article{
				Title:         "Community cleanup this Saturday",
				Body:          "Meet us in Hazard, Kentucky at the park.",
				RegionScope:   entity.RegionScopeKY,
				FetchMode:     entity.FetchModeFacebook,
				DefaultCounty: "Perry",
				CountyMode:    entity.CountyModeAuthoritative,
			},
			want: []Location{
				{StateCode: "KY"},
				{StateCode: "KY", County: "Perry"},
			},
		},
		{
			name: "facebook title county still trusted",
			article: Article{
				Title:         "Leslie County alert: road closed at mile marker 4",
				RegionScope:   entity.RegionScopeKY,
				FetchMode:     entity.FetchModeFacebook,
				DefaultCounty: "Perry",
				CountyMode:    entity.CountyModeAuthoritative,
			},
			want: []Location{
				{StateCode: "KY"},
				{StateCode: "KY", County: "Leslie"},
				{StateCode: "KY", County: "Perry"},
			},
		},
		{
			name: "facebook with no hits and no default stays untagged",
			article: Article{
				Title:       "Community cleanup this Saturday",
				RegionScope: entity.RegionScopeKY,
				FetchMode:   entity.FetchModeFacebook,
			},
			want: nil,
		},
		{
			name: "national scope is never tagged",
			article: Article{
				Title:       "Perry County crash closes KY 15",
				RegionScope: entity.RegionScopeNational,
				FetchMode:   entity.FetchModeRSS,
			},
			want: nil,
		},
		{
			name: "kentucky signal alone yields the state tag",
			article: Article{
				Title:       "Kentucky lawmakers advance budget",
				Body:        "The measure moves to the senate next week.",
				RegionScope: entity.RegionScopeKY,
				FetchMode:   entity.FetchModeRSS,
			},
			want: []Location{
				{StateCode: "KY"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tagger.Detect(tt.article)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTagger_Detect_BodyScanCap(t *testing.T) {
	tagger := newTestTagger(t)

	// The county mentions sit past the scan cap and must not be seen.
	filler := strings.Repeat("road work continues along the parkway ", 120)
	article := Article{
		Title:       "Paving schedule announced",
		Body:        filler + "Floyd County crews paved two Floyd County routes.",
		RegionScope: entity.RegionScopeKY,
		FetchMode:   entity.FetchModeRSS,
	}

	got := tagger.Detect(article)

	assert.Nil(t, got)
}

func TestTagger_Detect_UnknownDefaultCountyIgnored(t *testing.T) {
	tagger := newTestTagger(t)

	article := Article{
		Title:         "Council advances sidewalk plan",
		RegionScope:   entity.RegionScopeKY,
		FetchMode:     entity.FetchModeScrape,
		DefaultCounty: "Cook",
		CountyMode:    entity.CountyModeAuthoritative,
	}

	got := tagger.Detect(article)

	assert.Nil(t, got)
}

func TestCountPhrase(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		phrase string
		want   int
	}{
		{
			name:   "no occurrences",
			text:   " school board meeting ",
			phrase: "floyd county",
			want:   0,
		},
		{
			name:   "separated occurrences",
			text:   " floyd county roads and later floyd county bridges ",
			phrase: "floyd county",
			want:   2,
		},
		{
			name:   "adjacent occurrences share a space",
			text:   " floyd county floyd county officials ",
			phrase: "floyd county",
			want:   2,
		},
		{
			name:   "no partial word match",
			text:   " floyd countywide cleanup ",
			phrase: "floyd county",
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countPhrase(tt.text, tt.phrase))
		})
	}
}
