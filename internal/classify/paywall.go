// Package classify scores articles for paywall likelihood, breaking-news
// urgency, and sentiment. Detectors are pure functions over article text
// so they can run inside the enrichment pipeline without external calls.
package classify

import (
	"fmt"
	"strings"

	"github.com/Br0ck25/kynews-sub003/internal/canonical"
)

// PaywallThreshold is the confidence score at or above which an article
// is considered paywalled.
const PaywallThreshold = 60

// freeDomains are outlets that publish without a paywall. A match short
// circuits scoring entirely.
var freeDomains = domainSet(
	"wkyt.com",
	"lex18.com",
	"wtvq.com",
	"wymt.com",
	"whas11.com",
	"wdrb.com",
	"wlky.com",
	"wave3.com",
	"wbko.com",
	"wnky.com",
	"wpsdlocal6.com",
	"14news.com",
	"kentuckylantern.com",
	"kentuckytoday.com",
	"wfpl.org",
	"wkms.org",
	"weku.org",
	"wuky.org",
)

// paywallDomains are outlets known to meter or hard-gate their articles.
var paywallDomains = domainSet(
	"courier-journal.com",
	"kentucky.com",
	"messenger-inquirer.com",
	"bgdailynews.com",
	"thenewsenterprise.com",
	"paducahsun.com",
	"dailyindependent.com",
	"news-expressky.com",
	"thetimestribune.com",
	"richmondregister.com",
	"winchestersun.com",
	"amnews.com",
	"state-journal.com",
	"kentuckynewera.com",
	"harlanenterprise.net",
	"middlesboronews.com",
	"somerset-kentucky.com",
	"thegleaner.com",
)

func domainSet(domains ...string) map[string]bool {
	set := make(map[string]bool, len(domains))
	for _, d := range domains {
		set[d] = true
	}
	return set
}

// jsonLDPaywallForms are the literal spellings of the schema.org
// isAccessibleForFree=false declaration seen in the wild.
var jsonLDPaywallForms = []string{
	`"isAccessibleForFree":false`,
	`"isAccessibleForFree": false`,
	`"isAccessibleForFree":"False"`,
}

// cssPaywallTokens are class and id fragments that paywall overlays use.
// Matched case-sensitively against raw HTML.
var cssPaywallTokens = []string{
	"paywall",
	"meteredContent",
	"subscriber-only",
	"subscription-required",
	"premium-content",
	"regwall",
	"tp-modal",
}

// paywallPhrases are visible-text fragments shown by subscription prompts.
// Matched case-insensitively against body text and HTML.
var paywallPhrases = []string{
	"subscribe to continue reading",
	"to continue reading, please subscribe",
	"this content is for subscribers",
	"subscribers can read",
	"already a subscriber",
	"unlimited digital access",
	"log in to keep reading",
	"become a member to read",
}

// PaywallInput carries everything the detector inspects for one article.
// HTML and BodyText may each be empty when the corresponding fetch step
// was skipped or failed.
type PaywallInput struct {
	URL       string
	HTML      string
	BodyText  string
	WordCount int
}

// PaywallResult is the scoring outcome. Signals records which detectors
// fired, for audit.
type PaywallResult struct {
	Paywalled  bool
	Confidence int
	Signals    []string
}

// DetectPaywall scores an article from 0 to 100 using accumulated
// signals: a known paywall domain, a JSON-LD not-free declaration, CSS
// overlay tokens, subscription prompt phrases, and a suspiciously short
// extracted body. Known free domains return zero immediately.
func DetectPaywall(in PaywallInput) PaywallResult {
	domain := canonical.Domain(in.URL)

	if freeDomains[domain] {
		return PaywallResult{Signals: []string{"free-domain:" + domain}}
	}

	var (
		score   int
		signals []string
	)

	if paywallDomains[domain] {
		score += 40
		signals = append(signals, "domain:"+domain)
	}

	if in.HTML != "" {
		for _, form := range jsonLDPaywallForms {
			if strings.Contains(in.HTML, form) {
				score += 35
				signals = append(signals, "jsonld:isAccessibleForFree=false")
				break
			}
		}

		cssHits := 0
		for _, token := range cssPaywallTokens {
			if strings.Contains(in.HTML, token) {
				cssHits++
				signals = append(signals, "css:"+token)
				if cssHits == 3 {
					break
				}
			}
		}
		score += cssHits * 10
	}

	haystack := strings.ToLower(in.BodyText + " " + in.HTML)
	phraseHits := 0
	for _, phrase := range paywallPhrases {
		if strings.Contains(haystack, phrase) {
			phraseHits++
			signals = append(signals, "phrase:"+phrase)
			if phraseHits == 3 {
				break
			}
		}
	}
	phraseScore := phraseHits * 15
	if phraseScore > 40 {
		phraseScore = 40
	}
	score += phraseScore

	if in.WordCount > 0 && in.WordCount < 80 {
		score += 15
		signals = append(signals, fmt.Sprintf("short-body:%d", in.WordCount))
	}

	if score > 100 {
		score = 100
	}

	return PaywallResult{
		Paywalled:  score >= PaywallThreshold,
		Confidence: score,
		Signals:    signals,
	}
}
