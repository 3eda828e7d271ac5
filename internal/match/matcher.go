// Package match scores candidate pairs through escalating tiers and
// applies the hard validity gates.
package match

import (
	"github.com/promobg/matcher/internal/config"
	"github.com/promobg/matcher/internal/domain"
)

// Matcher scores pairs for the token and transliteration tiers.
type Matcher struct {
	cfg      config.MatchingConfig
	gates    *Gates
	tokenize func(string) []string
}

// New builds a matcher. tokenize is the run's shared tokenizer so
// variant tokens agree with the indexed listing tokens.
func New(cfg config.MatchingConfig, gates *Gates, tokenize func(string) []string) *Matcher {
	return &Matcher{cfg: cfg, gates: gates, tokenize: tokenize}
}

// Gates exposes the matcher's gate set.
func (m *Matcher) Gates() *Gates {
	return m.gates
}

// ScoreToken scores a pair on cleaned literal names: an even blend of
// token Jaccard and edit-distance ratio. Pairs sharing no token score
// zero regardless of string similarity. Identical cleaned names
// short-circuit to an exact match.
func (m *Matcher) ScoreToken(a, b *domain.Canonical) (float64, domain.MatchType, bool) {
	if a.Name != "" && a.Name == b.Name {
		return 1.0, domain.MatchExact, true
	}

	if SharedTokens(a.Tokens, b.Tokens) < 1 {
		return 0, domain.MatchToken, false
	}

	score := 0.5*Jaccard(a.Tokens, b.Tokens) + 0.5*LevenshteinRatio(a.Name, b.Name)
	return score, domain.MatchToken, score >= m.gates.Floor(a, b)
}

// ScoreTranslit scores a pair as the best blend over the cross product
// of both sides' variants. Catches listings written in different
// scripts that the literal tier cannot see.
func (m *Matcher) ScoreTranslit(a, b *domain.Canonical) (float64, bool) {
	best := 0.0
	for _, va := range a.Variants {
		tokensA := m.tokenize(va)
		for _, vb := range b.Variants {
			score := 0.6*LevenshteinRatio(va, vb) + 0.4*TokenOverlap(tokensA, m.tokenize(vb))
			if score > best {
				best = score
			}
		}
	}

	floor := m.cfg.FloorTranslit
	if classFloor := m.gates.Floor(a, b); classFloor > floor {
		floor = classFloor
	}
	return best, best >= floor
}
