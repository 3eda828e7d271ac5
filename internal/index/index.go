// Package index holds the per-run inverted indices used to generate
// cross-store candidate pairs without scanning the full corpus.
package index

import (
	"sort"

	"github.com/promobg/matcher/internal/domain"
	"github.com/promobg/matcher/internal/extract"
)

// Index maps tokens, brands and categories to listing ids for one run.
type Index struct {
	byToken    map[string][]string
	byBrand    map[string][]string
	byCategory map[string][]string
	listings   map[string]*domain.Canonical
}

// Build constructs the inverted maps over a canonicalized listing set.
func Build(listings []*domain.Canonical) *Index {
	idx := &Index{
		byToken:    make(map[string][]string),
		byBrand:    make(map[string][]string),
		byCategory: make(map[string][]string),
		listings:   make(map[string]*domain.Canonical, len(listings)),
	}

	for _, l := range listings {
		idx.listings[l.ID] = l
		idx.byCategory[l.Category] = append(idx.byCategory[l.Category], l.ID)
		if l.Brand != "" {
			idx.byBrand[l.Brand] = append(idx.byBrand[l.Brand], l.ID)
		}

		seen := make(map[string]struct{})
		for _, t := range indexTokens(l) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			idx.byToken[t] = append(idx.byToken[t], l.ID)
		}
	}

	return idx
}

// Get returns the canonical listing for an id, or nil.
func (idx *Index) Get(id string) *domain.Canonical {
	return idx.listings[id]
}

// Categories returns all category names present in the run, sorted.
func (idx *Index) Categories() []string {
	cats := make([]string, 0, len(idx.byCategory))
	for c := range idx.byCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// InCategory returns the ids assigned to a category, sorted.
func (idx *Index) InCategory(category string) []string {
	ids := append([]string(nil), idx.byCategory[category]...)
	sort.Strings(ids)
	return ids
}

// Candidates returns ids worth scoring against the given listing:
// different store, same category (uncategorized compares everywhere),
// and at least one shared token. Deterministic order.
func (idx *Index) Candidates(l *domain.Canonical) []string {
	sameCategory := l.Category != extract.Uncategorized

	seen := make(map[string]struct{})
	var out []string
	for _, t := range indexTokens(l) {
		for _, id := range idx.byToken[t] {
			if id == l.ID {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}

			other := idx.listings[id]
			if other.Store == l.Store {
				continue
			}
			if sameCategory && other.Category != extract.Uncategorized && other.Category != l.Category {
				continue
			}
			out = append(out, id)
		}
	}

	sort.Strings(out)
	return out
}

// indexTokens prefers the variant-token union so listings written in
// different scripts can still meet as candidates.
func indexTokens(l *domain.Canonical) []string {
	if len(l.AllTokens) > 0 {
		return l.AllTokens
	}
	return l.Tokens
}
