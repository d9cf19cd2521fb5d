package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ObiAU/newsfeed/internal/metrics"
	"github.com/ObiAU/newsfeed/internal/models"
)

// ErrInvalidView marks a view event that violates the caller contract.
var ErrInvalidView = errors.New("invalid view event")

type ArticleReader interface {
	GetArticle(ctx context.Context, id string) (*models.Article, error)
}

type ImpressionWriter interface {
	CreateImpression(ctx context.Context, impression *models.Impression) error
}

// Tracker resolves articles to score views and appends impressions.
type Tracker struct {
	articles    ArticleReader
	impressions ImpressionWriter
	metrics     *metrics.Recorder
	logger      zerolog.Logger
}

func NewTracker(articles ArticleReader, impressions ImpressionWriter, rec *metrics.Recorder, logger zerolog.Logger) *Tracker {
	return &Tracker{
		articles:    articles,
		impressions: impressions,
		metrics:     rec,
		logger:      logger.With().Str("component", "engagement").Logger(),
	}
}

// InteractionStrength scores a view of articleID. It never fails: an unknown
// article, a lookup error or an article without content all score 0.
func (t *Tracker) InteractionStrength(ctx context.Context, articleID string, viewSeconds float64) float64 {
	if viewSeconds < MinViewSeconds {
		return 0
	}

	article, err := t.articles.GetArticle(ctx, articleID)
	if err != nil {
		t.logger.Warn().Err(err).Str("article_id", articleID).Msg("article lookup failed, scoring view as 0")
		return 0
	}
	if article == nil || strings.TrimSpace(article.Content) == "" {
		return 0
	}

	return Strength(WordCount(article.Content), viewSeconds)
}

// RecordView scores a view and appends it as a new impression.
func (t *Tracker) RecordView(ctx context.Context, userID, articleID string, viewSeconds float64, at time.Time) (*models.Impression, error) {
	switch {
	case userID == "":
		return nil, fmt.Errorf("%w: user id required", ErrInvalidView)
	case articleID == "":
		return nil, fmt.Errorf("%w: article id required", ErrInvalidView)
	case viewSeconds < 0:
		return nil, fmt.Errorf("%w: negative view time %v", ErrInvalidView, viewSeconds)
	}

	impression := &models.Impression{
		ID:                  uuid.NewString(),
		UserID:              userID,
		ArticleID:           articleID,
		Timestamp:           at,
		InteractionStrength: t.InteractionStrength(ctx, articleID, viewSeconds),
	}

	if err := t.impressions.CreateImpression(ctx, impression); err != nil {
		return nil, fmt.Errorf("failed to store impression: %w", err)
	}
	t.metrics.InteractionStrength(impression.InteractionStrength)

	t.logger.Debug().
		Str("user_id", userID).
		Str("article_id", articleID).
		Float64("view_seconds", viewSeconds).
		Float64("strength", impression.InteractionStrength).
		Msg("recorded view")

	return impression, nil
}
