package match

import "sort"

// EmbeddingPair is a bidirectionally confirmed best match between two
// listing ids.
type EmbeddingPair struct {
	A          string
	B          string
	Similarity float64
}

// BestEmbeddingMatches selects, for every id, its single most similar
// candidate by cosine over the supplied vectors, keeps only pairs above
// the floor, and confirms them bidirectionally: a pair survives only
// when each side is the other's best. candidates must already restrict
// to cross-store, same-category ids.
func BestEmbeddingMatches(ids []string, vectors map[string][]float32, candidates func(id string) []string, floor float64) []EmbeddingPair {
	best := make(map[string]EmbeddingPair, len(ids))

	for _, id := range ids {
		vec, ok := vectors[id]
		if !ok {
			continue
		}

		var bestID string
		bestSim := 0.0
		for _, cand := range candidates(id) {
			cvec, ok := vectors[cand]
			if !ok {
				continue
			}
			sim := Cosine(vec, cvec)
			if sim > bestSim || (sim == bestSim && bestID != "" && cand < bestID) {
				bestID, bestSim = cand, sim
			}
		}

		if bestID != "" && bestSim >= floor {
			best[id] = EmbeddingPair{A: id, B: bestID, Similarity: bestSim}
		}
	}

	var out []EmbeddingPair
	for id, p := range best {
		if id >= p.B {
			continue // each confirmed pair reported once, from the lower id
		}
		back, ok := best[p.B]
		if !ok || back.B != id {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].A < out[j].A
	})
	return out
}
