package classify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
)

func TestClassifyBreaking_Ladder(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		title          string
		body           string
		wantLevel      string
		wantIsBreaking bool
	}{
		{
			name:           "emergency pattern in title",
			title:          "Tornado Emergency declared for Perry County",
			wantLevel:      entity.AlertLevelEmergency,
			wantIsBreaking: true,
		},
		{
			name:           "emergency pattern in lede",
			title:          "Severe weather moves through the region",
			body:           "Officials ordered residents to shelter in place for the eastern half of the county Tuesday evening.",
			wantLevel:      entity.AlertLevelEmergency,
			wantIsBreaking: true,
		},
		{
			name:           "routine weather warning with breaking prefix stays breaking",
			title:          "BREAKING: tornado warning for Fayette County",
			wantLevel:      entity.AlertLevelBreaking,
			wantIsBreaking: true,
		},
		{
			name:           "breaking marker in title",
			title:          "BREAKING: Water main break floods Main Street",
			wantLevel:      entity.AlertLevelBreaking,
			wantIsBreaking: true,
		},
		{
			name:           "breaking word in body is noise",
			title:          "City council recap",
			body:           "Our breaking news coverage continued through the night.",
			wantLevel:      "",
			wantIsBreaking: false,
		},
		{
			name:           "official source marks developing and breaking",
			title:          "River levels keep rising",
			body:           "The National Weather Service said the river will crest Friday morning.",
			wantLevel:      entity.AlertLevelDeveloping,
			wantIsBreaking: true,
		},
		{
			name:           "plain developing is not breaking",
			title:          "Developing: crews respond to gas leak downtown",
			wantLevel:      entity.AlertLevelDeveloping,
			wantIsBreaking: false,
		},
		{
			name:           "emergency outranks breaking marker",
			title:          "BREAKING: Active shooter reported near campus",
			wantLevel:      entity.AlertLevelEmergency,
			wantIsBreaking: true,
		},
		{
			name:           "quiet story has no level",
			title:          "School lunch menu for next week",
			body:           "Monday brings chili and cornbread.",
			wantLevel:      "",
			wantIsBreaking: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyBreaking(tt.title, tt.body, now)

			assert.Equal(t, tt.wantLevel, got.AlertLevel)
			assert.Equal(t, tt.wantIsBreaking, got.IsBreaking)
			if tt.wantIsBreaking {
				require.NotNil(t, got.ExpiresAt)
				assert.True(t, got.ExpiresAt.Equal(now.Add(BreakingTTL)))
			} else {
				assert.Nil(t, got.ExpiresAt)
			}
		})
	}
}

func TestClassifyBreaking_LedeLimit(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// The emergency phrase sits past the lede cutoff and must not be seen.
	filler := strings.Repeat("county fair planning continues with more vendors this season ", 12)
	got := ClassifyBreaking("Planning updates from the fair board", filler+"tornado emergency", now)

	assert.Equal(t, "", got.AlertLevel)
	assert.False(t, got.IsBreaking)
}

func TestClassifyBreaking_Sentiment(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		title string
		body  string
		want  string
	}{
		{
			name:  "negative outweighs positive",
			title: "Two dead after fatal crash",
			body:  "The crash killed two people and injured three others.",
			want:  entity.SentimentNegative,
		},
		{
			name:  "positive outweighs negative",
			title: "Hazard wins state championship",
			body:  "The team celebrates a record season after the championship win.",
			want:  entity.SentimentPositive,
		},
		{
			name:  "margin of one stays neutral",
			title: "Crash delays festival opening",
			want:  entity.SentimentNeutral,
		},
		{
			name:  "no keywords stays neutral",
			title: "Library announces summer reading hours",
			want:  entity.SentimentNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyBreaking(tt.title, tt.body, now)

			assert.Equal(t, tt.want, got.Sentiment)
		})
	}
}
