package recommender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ObiAU/newsfeed/internal/models"
	"github.com/ObiAU/newsfeed/internal/vector"
)

func TestSimilar(t *testing.T) {
	candidates := []*models.Article{
		{ID: "src", Embedding: []float64{1, 0}},
		{ID: "far", Embedding: []float64{0, 1}},
		{ID: "near", Embedding: []float64{0.9, 0.1}},
		{ID: "bare"},
		{ID: "tie", Embedding: []float64{0.9, 0.1}},
		{ID: "near", Embedding: []float64{0.9, 0.1}},
	}

	matches, err := Similar([]float64{1, 0}, candidates, "src", 5)
	require.NoError(t, err)
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.Article.ID
	}
	assert.Equal(t, []string{"near", "tie", "far"}, ids)
	assert.InDelta(t, 0, matches[2].Score, 1e-12)

	matches, err = Similar([]float64{1, 0}, candidates, "src", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "near", matches[0].Article.ID)
}

func TestSimilar_Edges(t *testing.T) {
	candidates := []*models.Article{{ID: "a", Embedding: []float64{1, 0}}}

	matches, err := Similar([]float64{1, 0}, candidates, "", 0)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = Similar(nil, candidates, "", 3)
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = Similar([]float64{1, 0, 0}, candidates, "", 3)
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
}

func TestByRank(t *testing.T) {
	in := []*models.Article{{ID: "c", Rank: 3}, {ID: "a", Rank: 1}, {ID: "b", Rank: 1}}
	out := ByRank(in)
	assert.Equal(t, []string{"a", "b", "c"}, []string{out[0].ID, out[1].ID, out[2].ID})
	assert.Equal(t, "c", in[0].ID)
}
