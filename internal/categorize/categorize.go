// Package categorize assigns a single category to an entry by scanning its
// text and tags against ordered keyword lists. The first list with a hit
// wins, so more specific categories are checked before broader ones.
package categorize

import "strings"

const General = "general"

type keywordSet struct {
	category string
	keywords []string
}

// Order matters: an entry mentioning both "ai" and "market" is technology.
var chains = []keywordSet{
	{"technology", []string{
		"technology", "tech", "software", "ai", "artificial intelligence",
		"machine learning", "programming", "code", "app", "digital",
	}},
	{"business", []string{
		"business", "finance", "economy", "market", "investment",
		"company", "corporate", "startup", "revenue", "profit",
	}},
	{"science", []string{
		"science", "research", "study", "scientific", "discovery",
		"experiment", "data", "analysis",
	}},
	{"health", []string{
		"health", "medical", "medicine", "healthcare", "disease",
		"treatment", "patient", "doctor", "hospital", "wellness",
	}},
}

// Categorize returns the first matching category for the combined title,
// text and tags, or General when nothing matches.
func Categorize(title, text string, tags []string) string {
	haystack := strings.ToLower(title + " " + text + " " + strings.Join(tags, " "))

	for _, chain := range chains {
		for _, kw := range chain.keywords {
			if strings.Contains(haystack, kw) {
				return chain.category
			}
		}
	}

	return General
}
