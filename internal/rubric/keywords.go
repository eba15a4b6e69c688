package rubric

import "strings"

// KeywordSets holds the disjoint term lists used by the five
// substring-count scorers.
type KeywordSets struct {
	Relevance     []string
	Feasibility   []string
	Impact        []string
	Institutional []string
	Compliance    []string
}

// KeywordScore counts how many terms appear as literal substrings of the
// lower-cased text and returns 100 * matches / len(keywords), rounded to
// two decimals. Empty text or an empty keyword set scores zero.
func KeywordScore(text string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	lower := strings.ToLower(text)
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matches++
		}
	}

	return round2(100 * float64(matches) / float64(len(keywords)))
}
