package extract

import (
	"sort"
	"strings"
	"unicode"

	"github.com/promobg/matcher/internal/config"
)

// BrandExtractor resolves a canonical brand from a cleaned title using
// a longest-first dictionary scan with word boundaries.
type BrandExtractor struct {
	entries []brandEntry // sorted by alias length desc
	houses  map[string]string
}

type brandEntry struct {
	alias     string
	canonical string
}

// NewBrandExtractor builds the extractor from the configured dictionary.
func NewBrandExtractor(brands []config.Brand) *BrandExtractor {
	e := &BrandExtractor{houses: make(map[string]string)}

	for _, b := range brands {
		if b.Name == "" {
			continue
		}
		if b.Store != "" {
			e.houses[b.Name] = b.Store
		}
		aliases := append([]string{b.Name}, b.Aliases...)
		for _, a := range aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" {
				continue
			}
			e.entries = append(e.entries, brandEntry{alias: a, canonical: b.Name})
		}
	}

	sort.Slice(e.entries, func(i, j int) bool {
		if len(e.entries[i].alias) != len(e.entries[j].alias) {
			return len(e.entries[i].alias) > len(e.entries[j].alias)
		}
		return e.entries[i].alias < e.entries[j].alias
	})

	return e
}

// Extract returns the canonical brand found in the cleaned title, or "".
// The longest matching alias wins.
func (e *BrandExtractor) Extract(cleaned string) string {
	for _, entry := range e.entries {
		if containsWord(cleaned, entry.alias) {
			return entry.canonical
		}
	}
	return ""
}

// HouseStore returns the owning store for a private-label brand, or "".
func (e *BrandExtractor) HouseStore(brand string) string {
	return e.houses[brand]
}

// containsWord reports whether needle occurs in haystack on word
// boundaries. regexp \b is ASCII-only, so boundaries are checked by rune.
func containsWord(haystack, needle string) bool {
	for start := 0; ; {
		idx := strings.Index(haystack[start:], needle)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(needle)

		beforeOK := idx == 0 || !isWordRune(lastRune(haystack[:idx]))
		afterOK := end == len(haystack) || !isWordRune(firstRune(haystack[end:]))
		if beforeOK && afterOK {
			return true
		}
		start = idx + len(needle)
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}
