package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promobg/matcher/internal/domain"
	"github.com/promobg/matcher/internal/extract"
)

func listing(id, store, category string, tokens ...string) *domain.Canonical {
	return &domain.Canonical{
		Listing:   domain.Listing{ID: id, Store: store},
		Tokens:    tokens,
		AllTokens: tokens,
		Category:  category,
	}
}

func TestCandidates(t *testing.T) {
	a1 := listing("a1", "billa", "dairy", "верея", "кисело", "мляко")
	a2 := listing("a2", "billa", "dairy", "мляко", "боженци")
	b1 := listing("b1", "lidl", "dairy", "мляко", "верея")
	c1 := listing("c1", "kaufland", "wine", "мерло", "вино")
	d1 := listing("d1", "fantastico", extract.Uncategorized, "мляко")

	idx := Build([]*domain.Canonical{a1, a2, b1, c1, d1})

	t.Run("cross store with shared token", func(t *testing.T) {
		assert.Equal(t, []string{"b1", "d1"}, idx.Candidates(a1))
	})

	t.Run("same store excluded", func(t *testing.T) {
		cands := idx.Candidates(a2)
		assert.NotContains(t, cands, "a1")
	})

	t.Run("category partitions the space", func(t *testing.T) {
		assert.Empty(t, idx.Candidates(c1), "no other listing shares wine tokens")
		assert.NotContains(t, idx.Candidates(b1), "c1")
	})

	t.Run("uncategorized compares everywhere", func(t *testing.T) {
		cands := idx.Candidates(d1)
		assert.Contains(t, cands, "a1")
		assert.Contains(t, cands, "a2")
		assert.Contains(t, cands, "b1")
	})

	t.Run("no shared token means no candidate", func(t *testing.T) {
		assert.NotContains(t, idx.Candidates(a1), "c1")
	})
}

func TestCandidatesUseVariantTokens(t *testing.T) {
	a1 := &domain.Canonical{
		Listing:   domain.Listing{ID: "a1", Store: "billa"},
		Tokens:    []string{"верея", "кисело", "мляко"},
		AllTokens: []string{"верея", "кисело", "мляко", "vereya", "yogurt"},
		Category:  "dairy",
	}
	b1 := listing("b1", "lidl", "dairy", "vereya", "yogurt", "400")

	idx := Build([]*domain.Canonical{a1, b1})

	assert.Equal(t, []string{"b1"}, idx.Candidates(a1),
		"cross-script listings must meet through variant tokens")
	assert.Equal(t, []string{"a1"}, idx.Candidates(b1))
}

func TestCategories(t *testing.T) {
	idx := Build([]*domain.Canonical{
		listing("a1", "billa", "dairy", "мляко"),
		listing("b1", "lidl", "wine", "вино"),
	})

	assert.Equal(t, []string{"dairy", "wine"}, idx.Categories())
	assert.Equal(t, []string{"a1"}, idx.InCategory("dairy"))
	require.NotNil(t, idx.Get("a1"))
	assert.Nil(t, idx.Get("zz"))
}
