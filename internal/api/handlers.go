package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ObiAU/newsfeed/internal/engagement"
	"github.com/ObiAU/newsfeed/internal/models"
	"github.com/ObiAU/newsfeed/internal/recommender"
)

type recommendationsQuery struct {
	UserID  string `query:"userId" validate:"required"`
	Date    string `query:"date"`
	Count   int    `query:"count" validate:"gte=0,lte=100"`
	Initial bool   `query:"initial"`
	Exclude string `query:"exclude"`
}

type recommendationsResponse struct {
	UserID   string            `json:"userId"`
	Date     string            `json:"date"`
	Initial  bool              `json:"initial"`
	Articles []*models.Article `json:"articles"`
}

func (s *Server) recommendations(c echo.Context) error {
	var q recommendationsQuery
	if err := c.Bind(&q); err != nil {
		return err
	}
	if err := c.Validate(&q); err != nil {
		return err
	}
	if q.Date == "" {
		q.Date = s.deps.DateKey(s.now())
	}

	// An absent count selects the default; an explicit count=0 asks for nothing.
	if q.Count == 0 && c.QueryParams().Has("count") {
		return c.JSON(http.StatusOK, recommendationsResponse{
			UserID:   q.UserID,
			Date:     q.Date,
			Initial:  q.Initial,
			Articles: []*models.Article{},
		})
	}

	articles, err := s.deps.Feed.Recommend(c.Request().Context(), recommendationsRequest(q))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", q.UserID).Msg("recommendation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build recommendations")
	}

	return c.JSON(http.StatusOK, recommendationsResponse{
		UserID:   q.UserID,
		Date:     q.Date,
		Initial:  q.Initial,
		Articles: articles,
	})
}

type impressionRequest struct {
	UserID          string   `json:"userId" validate:"required"`
	ArticleID       string   `json:"articleId" validate:"required"`
	ViewTimeSeconds *float64 `json:"viewTimeSeconds" validate:"required,gte=0"`
}

func (s *Server) impressions(c echo.Context) error {
	var req impressionRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	impression, err := s.deps.Views.RecordView(c.Request().Context(), req.UserID, req.ArticleID, *req.ViewTimeSeconds, s.now())
	if errors.Is(err, engagement.ErrInvalidView) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", req.UserID).Msg("failed to record view")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to record view")
	}
	return c.JSON(http.StatusCreated, impression)
}

func recommendationsRequest(q recommendationsQuery) recommender.Request {
	return recommender.Request{
		UserID:      q.UserID,
		Date:        q.Date,
		ExcludedIDs: splitIDs(q.Exclude),
		Count:       q.Count,
		InitialFeed: q.Initial,
	}
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
