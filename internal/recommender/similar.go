package recommender

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ObiAU/newsfeed/internal/models"
	"github.com/ObiAU/newsfeed/internal/vector"
)

type Match struct {
	Article *models.Article
	Score   float64
}

// Similar ranks candidates by cosine similarity to query, best first, and
// returns at most limit of them. Candidates without an embedding and the
// article named by excludeID are skipped; ties keep candidate order.
func Similar(query []float64, candidates []*models.Article, excludeID string, limit int) ([]Match, error) {
	if limit <= 0 || len(query) == 0 {
		return []Match{}, nil
	}

	matches := make([]Match, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, a := range candidates {
		if a.ID == excludeID || !a.HasEmbedding() {
			continue
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}

		sim, err := vector.Cosine(query, a.Embedding)
		if err != nil {
			return nil, fmt.Errorf("article %s: %w", a.ID, err)
		}
		matches = append(matches, Match{Article: a, Score: sim})
	}

	slices.SortStableFunc(matches, func(x, y Match) int {
		return cmp.Compare(y.Score, x.Score)
	})
	return matches[:min(len(matches), limit)], nil
}
