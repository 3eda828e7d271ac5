package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "matching.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := writeConfig(t, "database:\n  dsn: postgres://localhost/test\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0.55, cfg.Matching.FloorBranded)
	assert.Equal(t, 0.50, cfg.Matching.FloorGeneric)
	assert.Equal(t, 0.90, cfg.Matching.FloorEmbedding)
	assert.Equal(t, 2.5, cfg.Matching.PriceRatioBranded)
	assert.Equal(t, 3.0, cfg.Matching.PriceRatioGeneric)
	assert.Equal(t, 0.25, cfg.Matching.QuantityTolerance)
	assert.Equal(t, "product_groups", cfg.Meili.Index)
	assert.Equal(t, 64, cfg.Oracle.BatchSize)
}

func TestLoadOverrides(t *testing.T) {
	dir := writeConfig(t, `
matching:
  floor_branded: 0.6
  price_ratio_branded: 2.0
dict:
  generic_categories: [produce, meat]
  brands:
    - name: Vereia
      aliases: [верея]
    - name: Pilos
      store: Lidl
  lexicon:
    мерло: merlot
  incompatible_types:
    - a: [прясно мляко]
      b: [кисело мляко]
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.Matching.FloorBranded)
	assert.Equal(t, 2.0, cfg.Matching.PriceRatioBranded)

	require.Len(t, cfg.Dict.Brands, 2)
	assert.Equal(t, "Vereia", cfg.Dict.Brands[0].Name)
	assert.Equal(t, []string{"верея"}, cfg.Dict.Brands[0].Aliases)
	assert.Equal(t, "Lidl", cfg.Dict.Brands[1].Store)

	assert.Equal(t, "merlot", cfg.Dict.Lexicon["мерло"])
	require.Len(t, cfg.Dict.IncompatibleTypes, 1)
	assert.Equal(t, []string{"прясно мляко"}, cfg.Dict.IncompatibleTypes[0].A)

	generic := cfg.Dict.GenericSet()
	assert.True(t, generic["produce"])
	assert.False(t, generic["dairy"])
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"floor out of range", "matching:\n  floor_branded: 1.5\n"},
		{"embedding floor below class floor", "matching:\n  floor_embedding: 0.3\n"},
		{"price ratio below one", "matching:\n  price_ratio_branded: 0.5\n"},
		{"tolerance out of range", "matching:\n  quantity_tolerance: 1.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfig(t, tt.yaml)
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}
