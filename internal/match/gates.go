package match

import (
	"strings"

	"github.com/promobg/matcher/internal/config"
	"github.com/promobg/matcher/internal/domain"
	"github.com/promobg/matcher/internal/extract"
)

// Gate rejection reasons, reported in the run summary.
const (
	GateStore    = "same_store"
	GateBrand    = "brand_conflict"
	GateType     = "incompatible_type"
	GatePrice    = "price_ratio"
	GateQuantity = "quantity_mismatch"
)

type typePair struct {
	a []string
	b []string
}

// Gates applies the hard validity checks that no similarity score can
// override.
type Gates struct {
	cfg       config.MatchingConfig
	isGeneric func(category string) bool
	typePairs []typePair
}

// NewGates builds the gate set from configuration.
func NewGates(cfg config.MatchingConfig, isGeneric func(string) bool, pairs []config.TypePair) *Gates {
	g := &Gates{cfg: cfg, isGeneric: isGeneric}
	for _, p := range pairs {
		g.typePairs = append(g.typePairs, typePair{
			a: lowerAll(p.A),
			b: lowerAll(p.B),
		})
	}
	return g
}

// Check runs every gate against a pair. It returns "" when all gates
// pass, otherwise the reason constant of the first failing gate.
func (g *Gates) Check(a, b *domain.Canonical) string {
	if a.Store == b.Store {
		return GateStore
	}
	if !g.BrandsReconcile(a, b) {
		return GateBrand
	}
	if g.TypesConflict(a, b) {
		return GateType
	}
	if !g.priceWithinRatio(a, b) {
		return GatePrice
	}
	if !extract.QuantitiesCompatible(a.Quantity, b.Quantity, g.cfg.QuantityTolerance) {
		return GateQuantity
	}
	return ""
}

// PairIsGeneric reports whether the relaxed generic-class rules apply:
// both sides must sit in a generic category.
func (g *Gates) PairIsGeneric(a, b *domain.Canonical) bool {
	return g.isGeneric(a.Category) && g.isGeneric(b.Category)
}

// Floor returns the similarity floor for a pair's category class.
func (g *Gates) Floor(a, b *domain.Canonical) float64 {
	if g.PairIsGeneric(a, b) {
		return g.cfg.FloorGeneric
	}
	return g.cfg.FloorBranded
}

// BrandsReconcile applies the class-dependent brand rule. Generic
// products tolerate absent brands; branded products reject one-sided
// brands outright.
func (g *Gates) BrandsReconcile(a, b *domain.Canonical) bool {
	brandA, brandB := a.Brand, b.Brand

	if g.PairIsGeneric(a, b) {
		if brandA == "" || brandB == "" {
			return true
		}
		return sameBrand(brandA, brandB)
	}

	if brandA == "" && brandB == "" {
		return true
	}
	if brandA == "" || brandB == "" {
		return false
	}
	return sameBrand(brandA, brandB)
}

// sameBrand accepts equality or a word-boundary containment in either
// direction ("Coca-Cola" vs "Coca-Cola Zero").
func sameBrand(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return true
	}
	return containsToken(la, lb) || containsToken(lb, la)
}

func containsToken(haystack, needle string) bool {
	if !strings.Contains(haystack, needle) {
		return false
	}
	idx := strings.Index(haystack, needle)
	end := idx + len(needle)
	beforeOK := idx == 0 || haystack[idx-1] == ' ' || haystack[idx-1] == '-'
	afterOK := end == len(haystack) || haystack[end] == ' ' || haystack[end] == '-'
	return beforeOK && afterOK
}

// TypesConflict rejects pairs where one side names a type keyword and
// the other names its configured opposite. A side naming both keywords
// of a pair is ambiguous and does not trigger the gate.
func (g *Gates) TypesConflict(a, b *domain.Canonical) bool {
	textA := variantText(a)
	textB := variantText(b)

	for _, p := range g.typePairs {
		aHasA, aHasB := containsAny(textA, p.a), containsAny(textA, p.b)
		bHasA, bHasB := containsAny(textB, p.a), containsAny(textB, p.b)

		if aHasA && !aHasB && bHasB && !bHasA {
			return true
		}
		if aHasB && !aHasA && bHasA && !bHasB {
			return true
		}
	}
	return false
}

// PriceCeiling returns the allowed max/min price ratio for a class.
func (g *Gates) PriceCeiling(generic bool) float64 {
	if generic {
		return g.cfg.PriceRatioGeneric
	}
	return g.cfg.PriceRatioBranded
}

// IsGeneric reports whether a single category uses the relaxed rules.
func (g *Gates) IsGeneric(category string) bool {
	return g.isGeneric(category)
}

func (g *Gates) priceWithinRatio(a, b *domain.Canonical) bool {
	if a.Price <= 0 || b.Price <= 0 {
		return false
	}
	lo, hi := a.Price, b.Price
	if lo > hi {
		lo, hi = hi, lo
	}

	ceiling := g.cfg.PriceRatioBranded
	if g.PairIsGeneric(a, b) {
		ceiling = g.cfg.PriceRatioGeneric
	}
	return hi/lo <= ceiling
}

func variantText(c *domain.Canonical) string {
	return strings.Join(c.Variants, " | ")
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
