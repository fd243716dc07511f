package index

import (
	"sort"

	"github.com/harborlane/retaildex/internal/domain"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges the vector and keyword rankings via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
// When a document appears in both lists, the vector hit is kept.
func fuseRRF(vector, keyword []domain.Hit, topK int) []domain.Hit {
	type scored struct {
		hit   domain.Hit
		score float64
	}

	merged := make(map[string]*scored)

	for rank, h := range vector {
		merged[h.ID] = &scored{hit: h, score: 1.0 / float64(rrfK+rank+1)}
	}

	for rank, h := range keyword {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[h.ID]; ok {
			existing.score += s
		} else {
			merged[h.ID] = &scored{hit: h, score: s}
		}
	}

	results := make([]domain.Hit, 0, len(merged))
	for _, s := range merged {
		h := s.hit
		h.Score = s.score
		results = append(results, h)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
