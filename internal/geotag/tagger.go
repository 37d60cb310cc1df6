package geotag

import (
	"sort"
	"strings"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/utils/text"
)

const (
	// bodyScanLimit caps how far into an article body the tagger looks.
	// County hints buried deep in long wire stories are too noisy to trust.
	bodyScanLimit = 3500

	// ledeScanLimit bounds the portion of the body treated as the lede
	// when checking for competing state names.
	ledeScanLimit = 500
)

// Location is one resolved place tag. County is empty for a state-level tag.
type Location struct {
	StateCode string
	County    string
}

// Article carries the fields of a single item that influence tagging.
// DefaultCounty and CountyMode come from the feed the item arrived on.
type Article struct {
	Title         string
	Body          string
	RegionScope   string
	FetchMode     string
	DefaultCounty string
	CountyMode    string
}

// Tagger assigns county tags to articles using gazetteer lookups.
type Tagger struct {
	gaz *Gazetteer
}

// NewTagger returns a Tagger backed by the given gazetteer.
func NewTagger(gaz *Gazetteer) *Tagger {
	return &Tagger{gaz: gaz}
}

// Detect resolves the set of location tags for an article.
//
// Explicit "<Name> County" mentions in the title are trusted on a single
// occurrence. Body mentions need either two explicit occurrences of the
// same county, or a Kentucky signal ("Kentucky" or "KY" anywhere in the
// scanned text) combined with a known city name. A competing state name
// in the title or lede with no Kentucky signal suppresses detection
// entirely. The feed's default county is attached according to its county
// mode. Facebook posts rarely carry usable body text, so only the title
// and the feed default are consulted for them.
//
// Whenever any county is tagged, a state-level tag with an empty county
// accompanies it. National-scope articles are never tagged.
func (t *Tagger) Detect(a Article) []Location {
	if a.RegionScope == entity.RegionScopeNational {
		return nil
	}

	title := Normalize(a.Title)
	counties := make(map[string]bool)

	if a.FetchMode == entity.FetchModeFacebook {
		for county := range t.explicitCounties(title) {
			counties[county] = true
		}
		t.applyDefault(a, counties)
		return t.locations(counties, len(counties) > 0)
	}

	body := text.TruncateRunes(Normalize(a.Body), bodyScanLimit)
	kySignal := hasKentuckySignal(title) || hasKentuckySignal(body)

	// A competing state in the headline or lede with no Kentucky signal
	// means the story is about somewhere else.
	if !kySignal && t.otherStateMention(title, text.TruncateRunes(body, ledeScanLimit)) {
		if a.CountyMode != entity.CountyModeFallback {
			t.applyDefault(a, counties)
		}
		return t.locations(counties, len(counties) > 0)
	}

	for county := range t.explicitCounties(title) {
		counties[county] = true
	}
	for county, n := range t.explicitCounties(body) {
		if n >= 2 {
			counties[county] = true
		}
	}
	if kySignal {
		for _, county := range t.cityCounties(title + " " + body) {
			counties[county] = true
		}
	}

	t.applyDefault(a, counties)
	return t.locations(counties, len(counties) > 0 || kySignal)
}

// StrongSignal reports whether raw text carries a clear Kentucky marker:
// the state name or abbreviation, an explicit county mention, or a known
// city name. Feed relevance gating uses this on titles and bodies.
func (t *Tagger) StrongSignal(raw string) bool {
	norm := Normalize(raw)
	if hasKentuckySignal(norm) {
		return true
	}
	if len(t.explicitCounties(norm)) > 0 {
		return true
	}
	return len(t.cityCounties(norm)) > 0
}

// explicitCounties counts "<name> county" occurrences in normalized text.
func (t *Tagger) explicitCounties(norm string) map[string]int {
	found := make(map[string]int)
	padded := " " + norm + " "
	for name, canonical := range t.gaz.counties {
		if n := countPhrase(padded, name+" county"); n > 0 {
			found[canonical] += n
		}
	}
	return found
}

// countPhrase counts word-boundary occurrences of phrase in padded text.
// Adjacent occurrences share a boundary space, so the scan resumes on the
// trailing space rather than past it.
func countPhrase(padded, phrase string) int {
	needle := " " + phrase + " "
	n := 0
	start := 0
	for {
		i := strings.Index(padded[start:], needle)
		if i < 0 {
			return n
		}
		n++
		start += i + len(needle) - 1
	}
}

// cityCounties resolves standalone city mentions to their counties.
func (t *Tagger) cityCounties(norm string) []string {
	var out []string
	padded := " " + norm + " "
	for city, county := range t.gaz.cities {
		if mentionsPlace(padded, city) {
			out = append(out, county)
		}
	}
	return out
}

// otherStateMention reports whether a competing state name appears in the
// title or lede. "<State> County" occurrences are skipped because Ohio,
// Washington and several other state names double as Kentucky counties.
func (t *Tagger) otherStateMention(title, lede string) bool {
	padded := " " + title + " " + lede + " "
	for _, state := range t.gaz.otherStates {
		if mentionsPlace(padded, state) {
			return true
		}
	}
	return false
}

// applyDefault attaches the feed's default county. In fallback mode the
// default only applies when detection found nothing.
func (t *Tagger) applyDefault(a Article, counties map[string]bool) {
	if a.DefaultCounty == "" {
		return
	}
	canonical, ok := t.gaz.CanonicalCounty(a.DefaultCounty)
	if !ok {
		return
	}
	if a.CountyMode == entity.CountyModeFallback && len(counties) > 0 {
		return
	}
	counties[canonical] = true
}

// locations materializes the tag set. The state-level tag comes first,
// then counties in sorted order.
func (t *Tagger) locations(counties map[string]bool, tagState bool) []Location {
	if len(counties) == 0 && !tagState {
		return nil
	}

	names := make([]string, 0, len(counties))
	for county := range counties {
		names = append(names, county)
	}
	sort.Strings(names)

	locs := make([]Location, 0, len(names)+1)
	locs = append(locs, Location{StateCode: t.gaz.stateCode})
	for _, county := range names {
		locs = append(locs, Location{StateCode: t.gaz.stateCode, County: county})
	}
	return locs
}

// hasKentuckySignal reports whether normalized text mentions Kentucky,
// either spelled out or as the postal abbreviation.
func hasKentuckySignal(norm string) bool {
	return containsWord(norm, "kentucky") || containsWord(norm, "ky")
}

// containsWord reports whether phrase occurs in norm on word boundaries.
// Both arguments must already be normalized.
func containsWord(norm, phrase string) bool {
	return strings.Contains(" "+norm+" ", " "+phrase+" ")
}

// mentionsPlace reports whether name occurs standalone in padded text,
// skipping occurrences immediately followed by "county", which name a
// county rather than the place itself. padded must start and end with a
// space.
func mentionsPlace(padded, name string) bool {
	needle := " " + name + " "
	start := 0
	for {
		i := strings.Index(padded[start:], needle)
		if i < 0 {
			return false
		}
		after := start + i + len(needle)
		if !strings.HasPrefix(padded[after:], "county") {
			return true
		}
		start += i + 1
	}
}
