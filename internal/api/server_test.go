package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ObiAU/newsfeed/internal/engagement"
	"github.com/ObiAU/newsfeed/internal/metrics"
	"github.com/ObiAU/newsfeed/internal/models"
	"github.com/ObiAU/newsfeed/internal/recommender"
)

type fakeFeed struct {
	last recommender.Request
	err  error
}

func (f *fakeFeed) Recommend(_ context.Context, req recommender.Request) ([]*models.Article, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return []*models.Article{{ID: "a1", Headline: "Budget passed", Date: req.Date, Rank: 1, ImportanceScore: 0.9, Embedding: []float64{1, 0}}}, nil
}

type fakeViews struct {
	err error
}

func (v *fakeViews) RecordView(_ context.Context, userID, articleID string, viewSeconds float64, at time.Time) (*models.Impression, error) {
	if v.err != nil {
		return nil, v.err
	}
	if viewSeconds < 0 {
		return nil, fmt.Errorf("%w: negative", engagement.ErrInvalidView)
	}
	return &models.Impression{ID: "i1", UserID: userID, ArticleID: articleID, Timestamp: at, InteractionStrength: 1.0}, nil
}

type fakeWebhook struct {
	calls int
	err   error
}

func (w *fakeWebhook) HandleWebhook(_ context.Context, r *http.Request) error {
	w.calls++
	_, _ = io.ReadAll(r.Body)
	return w.err
}

var fixedNow = time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)

func newTestServer(deps Deps) *Server {
	if deps.Feed == nil {
		deps.Feed = &fakeFeed{}
	}
	if deps.Views == nil {
		deps.Views = &fakeViews{}
	}
	deps.DateKey = func(t time.Time) string { return t.Format("02-01-2006") }
	s := NewServer(deps, zerolog.Nop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndStats(t *testing.T) {
	s := newTestServer(Deps{Stats: func() map[string]interface{} { return map[string]interface{}{"sessions": 3} }})

	rec := do(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = do(s, http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessions":3}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.Recommendation(metrics.PathEditorial)
	s := newTestServer(Deps{Metrics: m})

	rec := do(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `newsfeed_recommendations_total{path="editorial"} 1`)
}

func TestRecommendations(t *testing.T) {
	feed := &fakeFeed{}
	s := newTestServer(Deps{Feed: feed})

	rec := do(s, http.MethodGet, "/api/recommendations?userId=u1&count=5&initial=true&exclude=a9,%20a8,,", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, recommender.Request{
		UserID:      "u1",
		Date:        "07-03-2025",
		ExcludedIDs: []string{"a9", "a8"},
		Count:       5,
		InitialFeed: true,
	}, feed.last)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp["userId"])
	articles := resp["articles"].([]any)
	require.Len(t, articles, 1)
	assert.Equal(t, "a1", articles[0].(map[string]any)["id"])
	assert.NotContains(t, rec.Body.String(), "embedding")

	rec = do(s, http.MethodGet, "/api/recommendations?userId=u1&date=06-03-2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "06-03-2025", feed.last.Date)
	assert.Zero(t, feed.last.Count)
	assert.Nil(t, feed.last.ExcludedIDs)
}

func TestRecommendations_ExplicitZeroCount(t *testing.T) {
	feed := &fakeFeed{}
	s := newTestServer(Deps{Feed: feed})

	rec := do(s, http.MethodGet, "/api/recommendations?userId=u1&count=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, feed.last.UserID, "engine must not be asked for a feed")

	var resp recommendationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Articles)
	assert.Contains(t, rec.Body.String(), `"articles":[]`)
}

func TestRecommendations_BadRequests(t *testing.T) {
	s := newTestServer(Deps{})

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/recommendations", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/recommendations?userId=u1&count=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/recommendations?userId=u1&count=many", "").Code)
}

func TestRecommendations_Error(t *testing.T) {
	s := newTestServer(Deps{Feed: &fakeFeed{err: errors.New("db down")}})
	assert.Equal(t, http.StatusInternalServerError, do(s, http.MethodGet, "/api/recommendations?userId=u1", "").Code)
}

func TestImpressions(t *testing.T) {
	s := newTestServer(Deps{})

	rec := do(s, http.MethodPost, "/api/impressions", `{"userId":"u1","articleId":"a1","viewTimeSeconds":0}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"interactionStrength":1`)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/impressions", `{"userId":"u1","articleId":"a1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/impressions", `{"userId":"u1","articleId":"a1","viewTimeSeconds":-4}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/impressions", `{"articleId":"a1","viewTimeSeconds":4}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/impressions", `{`).Code)
}

func TestImpressions_StoreError(t *testing.T) {
	s := newTestServer(Deps{Views: &fakeViews{err: errors.New("disk full")}})
	rec := do(s, http.MethodPost, "/api/impressions", `{"userId":"u1","articleId":"a1","viewTimeSeconds":30}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhook(t *testing.T) {
	s := newTestServer(Deps{})
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodPost, "/webhook", `{}`).Code)

	hook := &fakeWebhook{}
	s = newTestServer(Deps{Webhook: hook})
	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/webhook", `{"update_id":1}`).Code)
	assert.Equal(t, 1, hook.calls)

	hook.err = errors.New("bad update")
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/webhook", `{`).Code)
}

func TestSplitIDs(t *testing.T) {
	assert.Nil(t, splitIDs(""))
	assert.Equal(t, []string{"a", "b"}, splitIDs(" a ,b,,"))
}
