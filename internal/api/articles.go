package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ObiAU/newsfeed/internal/ingest"
	"github.com/ObiAU/newsfeed/internal/models"
	"github.com/ObiAU/newsfeed/internal/recommender"
)

const (
	maxDayArticles      = 50
	defaultSimilarLimit = 5
)

type similarArticle struct {
	*models.Article
	Score float64 `json:"score"`
}

type similarQuery struct {
	ID    string `query:"id"`
	Query string `query:"query"`
	Date  string `query:"date"`
	Limit int    `query:"limit" validate:"gte=0,lte=50"`
}

func (s *Server) articlesByDate(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date parameter is required")
	}

	articles, err := s.deps.Articles.ListArticlesByDate(c.Request().Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("failed to list articles")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list articles")
	}
	if len(articles) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no articles found for date "+date)
	}

	ranked := recommender.ByRank(articles)
	return c.JSON(http.StatusOK, ranked[:min(len(ranked), maxDayArticles)])
}

func (s *Server) article(c echo.Context) error {
	id := strings.TrimSpace(c.QueryParam("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id parameter is required")
	}

	a, err := s.findArticle(c, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) findArticle(c echo.Context, id string) (*models.Article, error) {
	a, err := s.deps.Articles.GetArticle(c.Request().Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("article_id", id).Msg("failed to get article")
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to get article")
	}
	if a == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "article "+id+" not found")
	}
	return a, nil
}

// relatedArticles ranks the other articles of the source's date by
// similarity to the source.
func (s *Server) relatedArticles(c echo.Context) error {
	q, err := s.bindSimilar(c)
	if err != nil {
		return err
	}
	if q.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id parameter is required")
	}

	source, err := s.findArticle(c, q.ID)
	if err != nil {
		return err
	}
	if !source.HasEmbedding() {
		return echo.NewHTTPError(http.StatusBadRequest, "source article has no embedding yet")
	}
	if q.Date == "" {
		q.Date = source.Date
	}

	return s.respondSimilar(c, source.Embedding, q)
}

// vectorSearch embeds the query text and ranks a day's articles against it.
func (s *Server) vectorSearch(c echo.Context) error {
	q, err := s.bindSimilar(c)
	if err != nil {
		return err
	}
	if strings.TrimSpace(q.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter is required")
	}
	if s.deps.Embedder == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "vector search is not configured")
	}
	if q.Date == "" {
		q.Date = s.deps.DateKey(s.now())
	}

	vectors, err := s.deps.Embedder.Embed(c.Request().Context(), []string{q.Query})
	if err != nil || len(vectors) != 1 {
		s.logger.Error().Err(err).Msg("failed to embed search query")
		return echo.NewHTTPError(http.StatusBadGateway, "failed to embed query")
	}

	return s.respondSimilar(c, vectors[0], q)
}

func (s *Server) bindSimilar(c echo.Context) (similarQuery, error) {
	var q similarQuery
	if err := c.Bind(&q); err != nil {
		return q, err
	}
	if err := c.Validate(&q); err != nil {
		return q, err
	}
	if !c.QueryParams().Has("limit") {
		q.Limit = defaultSimilarLimit
	}
	return q, nil
}

func (s *Server) respondSimilar(c echo.Context, query []float64, q similarQuery) error {
	candidates, err := s.deps.Articles.ListArticlesByDate(c.Request().Context(), q.Date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", q.Date).Msg("failed to list articles")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list articles")
	}

	matches, err := recommender.Similar(query, candidates, q.ID, q.Limit)
	if err != nil {
		s.logger.Error().Err(err).Str("date", q.Date).Msg("failed to rank articles")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to rank articles")
	}

	out := make([]similarArticle, len(matches))
	for i, m := range matches {
		out[i] = similarArticle{Article: m.Article, Score: m.Score}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) ingestArticles(c echo.Context) error {
	var batch ingest.Batch
	if err := c.Bind(&batch); err != nil {
		return err
	}

	ids, err := s.deps.Ingest.Ingest(c.Request().Context(), batch)
	if errors.Is(err, ingest.ErrInvalidBatch) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		s.logger.Error().Err(err).Int("stored", len(ids)).Msg("failed to ingest articles")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store articles")
	}
	return c.JSON(http.StatusCreated, map[string][]string{"ids": ids})
}
