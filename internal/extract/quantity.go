package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/promobg/matcher/internal/domain"
)

const num = `(\d+(?:[.,]\d+)?)`

// Patterns are tried in order; the first hit wins. Multipacks and
// additive packs must precede the plain forms they contain. The
// separator classes accept Latin x and Cyrillic х, both common in
// Bulgarian listings.
var (
	multipackPattern = regexp.MustCompile(`(\d+)\s*[xх×*]\s*` + num + `\s*(мл|ml|л|l|гр|г|g|кг|kg)(?:[^\p{L}]|$)`)
	additivePattern  = regexp.MustCompile(`(\d+)\s*\+\s*(\d+)\s*(?:бр|pcs)(?:[^\p{L}]|$)`)
	dimensionPattern = regexp.MustCompile(num + `\s*[xх×]\s*` + num + `\s*(?:см|cm)(?:[^\p{L}]|$)`)
	simplePattern    = regexp.MustCompile(num + `\s*(мл|ml|л|l|гр|г|g|кг|kg)(?:[^\p{L}]|$)`)
	countPattern     = regexp.MustCompile(`(\d+)\s*(?:бр|pcs)(?:[^\p{L}]|$)`)
)

// ParseQuantity extracts a quantity from a cleaned title and converts
// it to its base unit (ml, g, pcs). No parse returns a zero Quantity.
func ParseQuantity(cleaned string) domain.Quantity {
	if m := multipackPattern.FindStringSubmatch(cleaned); m != nil {
		count := parseNumber(m[1])
		each, unit := toBase(parseNumber(m[2]), m[3])
		return domain.Quantity{Value: count * each, Unit: unit}
	}

	if m := additivePattern.FindStringSubmatch(cleaned); m != nil {
		return domain.Quantity{Value: parseNumber(m[1]) + parseNumber(m[2]), Unit: domain.UnitPcs}
	}

	if m := dimensionPattern.FindStringSubmatch(cleaned); m != nil {
		// Dimensions keep their area value and never convert; they are
		// incomparable with weight and volume classes.
		return domain.Quantity{Value: parseNumber(m[1]) * parseNumber(m[2]), Unit: domain.UnitDim}
	}

	if m := simplePattern.FindStringSubmatch(cleaned); m != nil {
		value, unit := toBase(parseNumber(m[1]), m[2])
		return domain.Quantity{Value: value, Unit: unit}
	}

	if m := countPattern.FindStringSubmatch(cleaned); m != nil {
		return domain.Quantity{Value: parseNumber(m[1]), Unit: domain.UnitPcs}
	}

	return domain.Quantity{}
}

// QuantitiesCompatible reports whether two quantities agree within the
// tolerance band. Quantities of different unit classes, or with a zero
// side, are incomparable: the check passes without confirming anything.
func QuantitiesCompatible(a, b domain.Quantity, tolerance float64) bool {
	if a.IsZero() || b.IsZero() || a.Unit != b.Unit {
		return true
	}
	larger := math.Max(a.Value, b.Value)
	if larger == 0 {
		return true
	}
	return math.Abs(a.Value-b.Value) <= tolerance*larger
}

func parseNumber(s string) float64 {
	v, _ := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	return v
}

func toBase(value float64, unit string) (float64, domain.UnitClass) {
	switch unit {
	case "мл", "ml":
		return value, domain.UnitMl
	case "л", "l":
		return value * 1000, domain.UnitMl
	case "г", "гр", "g":
		return value, domain.UnitG
	case "кг", "kg":
		return value * 1000, domain.UnitG
	}
	return value, domain.UnitPcs
}
