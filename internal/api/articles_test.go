package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ObiAU/newsfeed/internal/config"
	"github.com/ObiAU/newsfeed/internal/ingest"
	"github.com/ObiAU/newsfeed/internal/store"
	"github.com/ObiAU/newsfeed/internal/store/db/sqlite"
)

type fakeEmbedder struct {
	vector []float64
	err    error
	texts  []string
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.texts = texts
	if e.err != nil {
		return nil, e.err
	}
	return [][]float64{e.vector}, nil
}

const dayBatch = `{"articles": [
	{"id": "a1", "headline": "Budget passed", "date": "07-03-2025", "rank": 3, "embedding": [1, 0]},
	{"id": "a2", "headline": "Markets rally", "date": "07-03-2025", "rank": 1, "embedding": [0.8, 0.6]},
	{"id": "a3", "headline": "Cup final", "date": "07-03-2025", "rank": 2, "embedding": [0, 1]},
	{"id": "a4", "headline": "Late edition", "date": "07-03-2025", "rank": 4}
]}`

// newStoreServer serves a real sqlite-backed store loaded through the ingest endpoint.
func newStoreServer(t *testing.T, embedder Embedder) *Server {
	t.Helper()
	driver, err := sqlite.NewDB(&config.Config{DBDSN: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	s := store.New(driver)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	srv := newTestServer(Deps{
		Articles: s,
		Ingest:   ingest.New(s, zerolog.Nop()),
		Embedder: embedder,
	})

	rec := do(srv, http.MethodPost, "/api/articles", dayBatch)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ids": ["a1", "a2", "a3", "a4"]}`, rec.Body.String())
	return srv
}

func responseIDs(t *testing.T, body []byte) []string {
	t.Helper()
	var items []map[string]any
	require.NoError(t, json.Unmarshal(body, &items))
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i], _ = item["id"].(string)
	}
	return ids
}

func TestIngestArticles_Rejects(t *testing.T) {
	srv := newStoreServer(t, nil)

	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodPost, "/api/articles", `{"articles": []}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodPost, "/api/articles", `{"articles": [{"date": "d"}]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodPost, "/api/articles", `{"articles": [`).Code)
}

func TestArticlesByDate(t *testing.T) {
	srv := newStoreServer(t, nil)

	rec := do(srv, http.MethodGet, "/api/articles?date=07-03-2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a2", "a3", "a1", "a4"}, responseIDs(t, rec.Body.Bytes()))
	assert.NotContains(t, rec.Body.String(), "embedding")

	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodGet, "/api/articles", "").Code)
	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/api/articles?date=01-01-1999", "").Code)
}

func TestArticle(t *testing.T) {
	srv := newStoreServer(t, nil)

	rec := do(srv, http.MethodGet, "/api/article?id=a3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"headline":"Cup final"`)

	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodGet, "/api/article", "").Code)
	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/api/article?id=zz", "").Code)
}

func TestRelatedArticles(t *testing.T) {
	srv := newStoreServer(t, nil)

	rec := do(srv, http.MethodGet, "/api/related-articles?id=a1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"a2", "a3"}, responseIDs(t, rec.Body.Bytes()))
	var scored []similarArticle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scored))
	assert.InDelta(t, 0.8, scored[0].Score, 1e-9)
	assert.InDelta(t, 0.0, scored[1].Score, 1e-9)

	rec = do(srv, http.MethodGet, "/api/related-articles?id=a1&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a2"}, responseIDs(t, rec.Body.Bytes()))

	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodGet, "/api/related-articles", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodGet, "/api/related-articles?id=a4", "").Code)
	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/api/related-articles?id=zz", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodGet, "/api/related-articles?id=a1&limit=500", "").Code)
}

func TestVectorSearch(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float64{0, 1}}
	srv := newStoreServer(t, embedder)

	rec := do(srv, http.MethodGet, "/api/vector-search?query=football&date=07-03-2025", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"a3", "a2", "a1"}, responseIDs(t, rec.Body.Bytes()))
	assert.Equal(t, []string{"football"}, embedder.texts)

	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodGet, "/api/vector-search?date=07-03-2025", "").Code)

	// The date defaults to today's key, which is the fixture day.
	rec = do(srv, http.MethodGet, "/api/vector-search?query=football&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a3"}, responseIDs(t, rec.Body.Bytes()))

	rec = do(srv, http.MethodGet, "/api/vector-search?query=football&date=01-01-1999", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	embedder.err = errors.New("quota exceeded")
	assert.Equal(t, http.StatusBadGateway, do(srv, http.MethodGet, "/api/vector-search?query=football&date=07-03-2025", "").Code)
}

func TestVectorSearch_NotConfigured(t *testing.T) {
	srv := newStoreServer(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(srv, http.MethodGet, "/api/vector-search?query=x", "").Code)
}
