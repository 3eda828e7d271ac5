package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/promobg/matcher/internal/config"
)

func testBrands() []config.Brand {
	return []config.Brand{
		{Name: "Vereia", Aliases: []string{"верея", "vereya"}},
		{Name: "Milka", Aliases: []string{"милка"}},
		{Name: "Lindt"},
		{Name: "Coca-Cola", Aliases: []string{"кока кола", "coca cola"}},
		{Name: "Pilos", Store: "Lidl"},
		{Name: "K-Classic", Aliases: []string{"k classic"}, Store: "Kaufland"},
	}
}

func TestBrandExtract(t *testing.T) {
	e := NewBrandExtractor(testBrands())

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"cyrillic alias", "верея кисело мляко 400г", "Vereia"},
		{"latin alias", "vereya yogurt 400 g", "Vereia"},
		{"canonical name", "milka шоколад 100г", "Milka"},
		{"longest alias wins", "кока кола 2л", "Coca-Cola"},
		{"house brand", "pilos кисело мляко", "Pilos"},
		{"no brand", "кисело мляко 400г", ""},
		{"substring is not a word", "milkana сирене", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.title))
		})
	}
}

func TestHouseStore(t *testing.T) {
	e := NewBrandExtractor(testBrands())

	assert.Equal(t, "Lidl", e.HouseStore("Pilos"))
	assert.Equal(t, "Kaufland", e.HouseStore("K-Classic"))
	assert.Equal(t, "", e.HouseStore("Vereia"))
	assert.Equal(t, "", e.HouseStore("Unknown"))
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		haystack string
		needle   string
		want     bool
	}{
		{"верея кисело мляко", "верея", true},
		{"вереякисело мляко", "верея", false},
		{"milka 100g", "milka", true},
		{"milkana 100g", "milka", false},
		{"sok milka", "milka", true},
		{"кока кола 2л", "кока кола", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, containsWord(tt.haystack, tt.needle),
			"containsWord(%q, %q)", tt.haystack, tt.needle)
	}
}
