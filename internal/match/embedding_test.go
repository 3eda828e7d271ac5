package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestEmbeddingMatches(t *testing.T) {
	vectors := map[string][]float32{
		"a1": {1, 0, 0},
		"b1": {0.99, 0.14, 0}, // close to a1
		"b2": {0, 1, 0},
		"c1": {0, 0.99, 0.14}, // close to b2
	}
	candidates := map[string][]string{
		"a1": {"b1", "b2"},
		"b1": {"a1", "c1"},
		"b2": {"a1", "c1"},
		"c1": {"b1", "b2"},
	}
	candFn := func(id string) []string { return candidates[id] }
	ids := []string{"a1", "b1", "b2", "c1"}

	t.Run("bidirectional best matches survive", func(t *testing.T) {
		pairs := BestEmbeddingMatches(ids, vectors, candFn, 0.90)
		require.Len(t, pairs, 2)

		got := map[string]string{}
		for _, p := range pairs {
			got[p.A] = p.B
			assert.GreaterOrEqual(t, p.Similarity, 0.90)
		}
		assert.Equal(t, "b1", got["a1"])
		assert.Equal(t, "c1", got["b2"])
	})

	t.Run("floor excludes weak best matches", func(t *testing.T) {
		pairs := BestEmbeddingMatches(ids, vectors, candFn, 0.999)
		assert.Empty(t, pairs)
	})

	t.Run("one-sided best match is dropped", func(t *testing.T) {
		// b1's best is a1, but a1's candidate list omits b1, so a1 pairs
		// with nothing and the b1->a1 claim stays unconfirmed.
		oneSided := func(id string) []string {
			if id == "a1" {
				return nil
			}
			return candidates[id]
		}
		pairs := BestEmbeddingMatches(ids, vectors, oneSided, 0.90)
		require.Len(t, pairs, 1)
		assert.Equal(t, "b2", pairs[0].A)
		assert.Equal(t, "c1", pairs[0].B)
	})

	t.Run("missing vectors are skipped", func(t *testing.T) {
		partial := map[string][]float32{"a1": {1, 0, 0}}
		pairs := BestEmbeddingMatches(ids, partial, candFn, 0.90)
		assert.Empty(t, pairs)
	})
}
