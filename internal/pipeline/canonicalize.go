package pipeline

import (
	"runtime"
	"sort"
	"sync"
	"unicode"

	"github.com/promobg/matcher/internal/domain"
	"github.com/promobg/matcher/internal/extract"
	"github.com/promobg/matcher/internal/normalize"
)

// Canonicalizer turns raw listings into canonical listings with
// extracted attributes.
type Canonicalizer struct {
	normalizer *normalize.Normalizer
	brands     *extract.BrandExtractor
	categories *extract.CategoryClassifier
}

// NewCanonicalizer wires the normalization and extraction stages.
func NewCanonicalizer(n *normalize.Normalizer, b *extract.BrandExtractor, c *extract.CategoryClassifier) *Canonicalizer {
	return &Canonicalizer{normalizer: n, brands: b, categories: c}
}

// Canonicalize processes one listing. AllTokens unions the tokens of
// every variant so cross-script listings can still meet as candidates.
func (c *Canonicalizer) Canonicalize(l domain.Listing) *domain.Canonical {
	cleaned := c.normalizer.Clean(l.Title)
	variants := c.normalizer.Variants(cleaned)

	seen := make(map[string]struct{})
	var allTokens []string
	for _, v := range variants {
		for _, t := range c.normalizer.Tokenize(v) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			allTokens = append(allTokens, t)
		}
	}

	tokens := c.normalizer.Tokenize(cleaned)

	return &domain.Canonical{
		Listing:   l,
		Name:      cleaned,
		Variants:  variants,
		Tokens:    tokens,
		AllTokens: allTokens,
		Brand:     c.brands.Extract(cleaned),
		Quantity:  extract.ParseQuantity(cleaned),
		Category:  c.categories.Classify(cleaned),
		Suspect:   suspectName(tokens),
	}
}

// suspectName reports whether the tokenized name carries no letters at
// all; numeric-only names stay in the run but are flagged.
func suspectName(tokens []string) bool {
	for _, t := range tokens {
		for _, r := range t {
			if unicode.IsLetter(r) {
				return false
			}
		}
	}
	return true
}

// CanonicalizeAll processes listings on a worker pool and returns the
// results ordered by listing id.
func (c *Canonicalizer) CanonicalizeAll(listings []domain.Listing, workers int) []*domain.Canonical {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	in := make(chan domain.Listing)
	out := make([]*domain.Canonical, 0, len(listings))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for l := range in {
				canon := c.Canonicalize(l)
				mu.Lock()
				out = append(out, canon)
				mu.Unlock()
			}
		}()
	}

	for _, l := range listings {
		in <- l
	}
	close(in)
	wg.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
