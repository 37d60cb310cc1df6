package classify

import (
	"regexp"
	"strings"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/utils/text"
)

const (
	// BreakingTTL is how long a breaking flag stays active after
	// classification.
	BreakingTTL = 4 * time.Hour

	// ledeLimit bounds how much of the body joins the title for
	// classification. Urgency markers live up front.
	ledeLimit = 500
)

// Matching happens on lowercased text, so the patterns are lowercase.
var (
	// Routine NWS products ("tornado warning", "flood warning") stay off
	// this list: a warning alone reads as breaking, not emergency.
	emergencyRe = regexp.MustCompile(`tornado emergency|flash flood emergency|amber alert|silver alert|active shooter|shelter in place|evacuation order|evacuations underway|state of emergency|mass casualty`)

	// Applied to the title only. The word "breaking" inside body copy is
	// almost always a back-reference to earlier coverage.
	breakingTitleRe = regexp.MustCompile(`\bbreaking\b\s*:|\bbreaking news\b|\bjust in\b\s*:|\burgent\b\s*:`)

	officialSourceRe = regexp.MustCompile(`\b(national weather service|nws|kyem|fema|kentucky state police|kentucky emergency management|usgs)\b`)

	developingRe = regexp.MustCompile(`\bdeveloping\b\s*:|developing story|this is a developing|story will be updated|details are emerging|updates to follow`)

	negativeRe = regexp.MustCompile(`\b(dead|death|deaths|killed|dies|died|fatal|fatality|crash|wreck|fire|shooting|shot|stabbing|arrested|charged|indicted|lawsuit|flood|flooding|storm|tornado|damage|destroyed|injured|injuries|victim|victims|missing|overdose|outbreak|layoffs|closure|closes|threat)\b`)

	positiveRe = regexp.MustCompile(`\b(win|wins|won|champion|champions|championship|celebrate|celebrates|celebration|award|awarded|honor|honored|honors|grant|granted|scholarship|graduates|graduation|success|successful|opening|opens|growth|expansion|expands|record|festival|improved|improves|donation|donates|volunteer|volunteers)\b`)
)

// BreakingResult is the classification outcome for one article.
type BreakingResult struct {
	AlertLevel string
	IsBreaking bool
	Sentiment  string
	ExpiresAt  *time.Time
}

// ClassifyBreaking walks the urgency ladder over the title and the lede.
// First match wins: emergency patterns anywhere in the combined text,
// breaking markers in the title alone, official-source mentions, then
// generic developing markers. Emergency, breaking, and official-source
// developing all set IsBreaking with a four hour expiry. A plain
// developing match labels the article without flagging it.
func ClassifyBreaking(title, body string, now time.Time) BreakingResult {
	lowerTitle := strings.ToLower(title)
	combined := lowerTitle + " " + strings.ToLower(text.TruncateRunes(body, ledeLimit))

	var (
		level      string
		isBreaking bool
	)
	switch {
	case emergencyRe.MatchString(combined):
		level, isBreaking = entity.AlertLevelEmergency, true
	case breakingTitleRe.MatchString(lowerTitle):
		level, isBreaking = entity.AlertLevelBreaking, true
	case officialSourceRe.MatchString(combined):
		level, isBreaking = entity.AlertLevelDeveloping, true
	case developingRe.MatchString(combined):
		level = entity.AlertLevelDeveloping
	}

	result := BreakingResult{
		AlertLevel: level,
		IsBreaking: isBreaking,
		Sentiment:  classifySentiment(combined),
	}
	if isBreaking {
		expires := now.Add(BreakingTTL)
		result.ExpiresAt = &expires
	}
	return result
}

// classifySentiment compares negative and positive keyword hits. The
// margin must exceed one hit to leave neutral.
func classifySentiment(combined string) string {
	neg := len(negativeRe.FindAllString(combined, -1))
	pos := len(positiveRe.FindAllString(combined, -1))

	switch {
	case neg-pos > 1:
		return entity.SentimentNegative
	case pos-neg > 1:
		return entity.SentimentPositive
	default:
		return entity.SentimentNeutral
	}
}
