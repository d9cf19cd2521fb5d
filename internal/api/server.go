// Package api serves recommendations and view events over HTTP, along with
// health, stats, metrics and the Telegram webhook.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ObiAU/newsfeed/internal/ingest"
	"github.com/ObiAU/newsfeed/internal/metrics"
	"github.com/ObiAU/newsfeed/internal/models"
	"github.com/ObiAU/newsfeed/internal/recommender"
)

type Recommender interface {
	Recommend(ctx context.Context, req recommender.Request) ([]*models.Article, error)
}

type ViewRecorder interface {
	RecordView(ctx context.Context, userID, articleID string, viewSeconds float64, at time.Time) (*models.Impression, error)
}

type ArticleReader interface {
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	ListArticlesByDate(ctx context.Context, date string) ([]*models.Article, error)
}

type ArticleIngester interface {
	Ingest(ctx context.Context, batch ingest.Batch) ([]string, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

type WebhookHandler interface {
	HandleWebhook(ctx context.Context, r *http.Request) error
}

type Deps struct {
	Feed     Recommender
	Views    ViewRecorder
	Articles ArticleReader
	Ingest   ArticleIngester
	Embedder Embedder       // nil when no embedding key is configured
	Webhook  WebhookHandler // nil when the bot is disabled
	Metrics  *metrics.Recorder
	Stats    func() map[string]interface{}
	DateKey  func(time.Time) string
}

type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger zerolog.Logger
	now    func() time.Time
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewServer(deps Deps, logger zerolog.Logger) *Server {
	s := &Server{
		echo:   echo.New(),
		deps:   deps,
		logger: logger.With().Str("component", "api").Logger(),
		now:    time.Now,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = goccySerializer{}
	e.Validator = &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
	e.Use(middleware.Recover())
	e.Use(s.requestLogger)

	e.GET("/health", s.health)
	e.GET("/stats", s.stats)
	e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	e.POST("/webhook", s.webhook)

	g := e.Group("/api")
	g.GET("/recommendations", s.recommendations)
	g.POST("/impressions", s.impressions)
	g.GET("/articles", s.articlesByDate)
	g.POST("/articles", s.ingestArticles)
	g.GET("/article", s.article)
	g.GET("/related-articles", s.relatedArticles)
	g.GET("/vector-search", s.vectorSearch)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http server listening")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Debug().
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Int("status", c.Response().Status).
			Dur("took", time.Since(start)).
			Msg("request")
		return nil
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) stats(c echo.Context) error {
	stats := map[string]interface{}{}
	if s.deps.Stats != nil {
		stats = s.deps.Stats()
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) webhook(c echo.Context) error {
	if s.deps.Webhook == nil {
		return echo.NewHTTPError(http.StatusNotFound, "telegram bot is not enabled")
	}
	if err := s.deps.Webhook.HandleWebhook(c.Request().Context(), c.Request()); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusOK)
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

type goccySerializer struct{}

func (goccySerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (goccySerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body").SetInternal(err)
	}
	return nil
}
