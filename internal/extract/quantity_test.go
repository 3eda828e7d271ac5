package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/promobg/matcher/internal/domain"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  domain.Quantity
	}{
		{"multipack ml", "бира 6x500ml", domain.Quantity{Value: 3000, Unit: domain.UnitMl}},
		{"multipack g", "вафли 4x100g", domain.Quantity{Value: 400, Unit: domain.UnitG}},
		{"multipack liters", "вода 2x1.5l", domain.Quantity{Value: 3000, Unit: domain.UnitMl}},
		{"multipack cyrillic", "мляко 3x200мл", domain.Quantity{Value: 600, Unit: domain.UnitMl}},
		{"multipack cyrillic х separator", "кока кола 2 х 500 мл", domain.Quantity{Value: 1000, Unit: domain.UnitMl}},
		{"dimensions cyrillic х separator", "фолио 20 х 30 см", domain.Quantity{Value: 600, Unit: domain.UnitDim}},
		{"additive pack", "кроасани 2+1 бр", domain.Quantity{Value: 3, Unit: domain.UnitPcs}},
		{"dimensions", "фолио 20x30 см", domain.Quantity{Value: 600, Unit: domain.UnitDim}},
		{"decimal comma liters", "прясно мляко 1,5 л", domain.Quantity{Value: 1500, Unit: domain.UnitMl}},
		{"simple liters", "мляко 1л", domain.Quantity{Value: 1000, Unit: domain.UnitMl}},
		{"simple grams", "кисело мляко 400г", domain.Quantity{Value: 400, Unit: domain.UnitG}},
		{"grams with space", "yogurt 400 g", domain.Quantity{Value: 400, Unit: domain.UnitG}},
		{"kilograms", "захар 1кг", domain.Quantity{Value: 1000, Unit: domain.UnitG}},
		{"gr alias", "сирене 250гр", domain.Quantity{Value: 250, Unit: domain.UnitG}},
		{"bare count", "яйца 10 бр", domain.Quantity{Value: 10, Unit: domain.UnitPcs}},
		{"no quantity", "хляб бял", domain.Quantity{}},
		{"unit prefix of word ignored", "1 лимон", domain.Quantity{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQuantity(tt.title)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuantitiesCompatible(t *testing.T) {
	const tol = 0.25

	ml := func(v float64) domain.Quantity { return domain.Quantity{Value: v, Unit: domain.UnitMl} }
	g := func(v float64) domain.Quantity { return domain.Quantity{Value: v, Unit: domain.UnitG} }

	tests := []struct {
		name string
		a, b domain.Quantity
		want bool
	}{
		{"equal", ml(500), ml(500), true},
		{"within band", ml(400), ml(500), true},
		{"at band edge", ml(750), ml(1000), true},
		{"outside band", ml(400), ml(1000), false},
		{"different classes incomparable", ml(500), g(500), true},
		{"zero side incomparable", domain.Quantity{}, ml(500), true},
		{"both zero incomparable", domain.Quantity{}, domain.Quantity{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuantitiesCompatible(tt.a, tt.b, tol))
			assert.Equal(t, tt.want, QuantitiesCompatible(tt.b, tt.a, tol), "must be symmetric")
		})
	}
}
