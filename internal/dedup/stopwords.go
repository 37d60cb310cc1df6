package dedup

// stopwords is the fixed English stopword set dropped during tokenization.
// High-frequency function words only; domain words like "county" stay in
// because they carry signal for Kentucky news clustering.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "him": true, "his": true, "how": true, "its": true,
	"new": true, "now": true, "old": true, "see": true, "two": true,
	"who": true, "did": true, "get": true, "may": true, "say": true,
	"she": true, "use": true, "way": true, "will": true, "with": true,
	"this": true, "that": true, "from": true, "they": true, "been": true,
	"have": true, "were": true, "said": true, "each": true, "which": true,
	"their": true, "about": true, "would": true, "there": true, "could": true,
	"other": true, "after": true, "more": true, "when": true, "than": true,
	"then": true, "them": true, "these": true, "some": true, "into": true,
	"over": true, "your": true, "what": true, "just": true, "also": true,
	"before": true, "being": true, "between": true, "during": true, "while": true,
}
