package extract

import (
	"sort"
	"strings"
)

// Uncategorized is assigned when no category keyword hits.
const Uncategorized = "uncategorized"

// CategoryClassifier assigns the best-scoring category to a cleaned title.
// Longer keyword hits score higher, so "кисело мляко" outweighs "мляко".
type CategoryClassifier struct {
	keywords []categoryKeyword
	generic  map[string]bool
}

type categoryKeyword struct {
	keyword  string
	category string
	weight   int
}

// NewCategoryClassifier builds the classifier from configured keyword lists.
func NewCategoryClassifier(categoryKeywords map[string][]string, genericCategories []string) *CategoryClassifier {
	c := &CategoryClassifier{generic: make(map[string]bool, len(genericCategories))}

	for category, words := range categoryKeywords {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			c.keywords = append(c.keywords, categoryKeyword{
				keyword:  w,
				category: category,
				weight:   len([]rune(w)),
			})
		}
	}
	sort.Slice(c.keywords, func(i, j int) bool {
		if c.keywords[i].weight != c.keywords[j].weight {
			return c.keywords[i].weight > c.keywords[j].weight
		}
		return c.keywords[i].keyword < c.keywords[j].keyword
	})

	for _, g := range genericCategories {
		c.generic[g] = true
	}

	return c
}

// Classify returns the highest-scoring category for a cleaned title.
// Ties break lexicographically for determinism.
func (c *CategoryClassifier) Classify(cleaned string) string {
	scores := make(map[string]int)
	for _, kw := range c.keywords {
		if containsWord(cleaned, kw.keyword) {
			scores[kw.category] += kw.weight
		}
	}
	if len(scores) == 0 {
		return Uncategorized
	}

	best, bestScore := "", -1
	for category, score := range scores {
		if score > bestScore || (score == bestScore && category < best) {
			best, bestScore = category, score
		}
	}
	return best
}

// IsGeneric reports whether a category tolerates missing brands.
// Uncategorized listings are treated as branded: without a category
// signal the stricter rules apply.
func (c *CategoryClassifier) IsGeneric(category string) bool {
	return c.generic[category]
}
