// Package profile derives a user's interest centroid from their impression log.
//
// The centroid is recomputed from the full history on every call; nothing is
// cached, so recency comes entirely from the decay weighting.
package profile

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ObiAU/newsfeed/internal/models"
	"github.com/ObiAU/newsfeed/internal/vector"
)

const DefaultDecayFactor = 0.1

type ImpressionReader interface {
	ListImpressions(ctx context.Context, userID string) ([]*models.Impression, error)
}

type ArticleReader interface {
	GetArticle(ctx context.Context, id string) (*models.Article, error)
}

type Builder struct {
	impressions ImpressionReader
	articles    ArticleReader
	decay       float64
	logger      zerolog.Logger
}

// NewBuilder returns a Builder. A non-positive decay falls back to DefaultDecayFactor.
func NewBuilder(impressions ImpressionReader, articles ArticleReader, decay float64, logger zerolog.Logger) *Builder {
	if decay <= 0 {
		decay = DefaultDecayFactor
	}
	return &Builder{
		impressions: impressions,
		articles:    articles,
		decay:       decay,
		logger:      logger.With().Str("component", "profile").Logger(),
	}
}

// DecayWeight is exp(-decay * ageDays) * strength.
func DecayWeight(age time.Duration, strength, decay float64) float64 {
	ageDays := age.Hours() / 24
	return math.Exp(-decay*ageDays) * strength
}

// Centroid returns the decay-weighted average embedding of the articles userID
// interacted with, or nil when the user has no usable interactions.
func (b *Builder) Centroid(ctx context.Context, userID string, now time.Time) ([]float64, error) {
	impressions, err := b.impressions.ListImpressions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list impressions: %w", err)
	}
	if len(impressions) == 0 {
		return nil, nil
	}

	embeddings := make([][]float64, 0, len(impressions))
	weights := make([]float64, 0, len(impressions))
	for _, imp := range impressions {
		article, err := b.articles.GetArticle(ctx, imp.ArticleID)
		if err != nil {
			b.logger.Warn().Err(err).
				Str("user_id", userID).
				Str("article_id", imp.ArticleID).
				Msg("dropping impression, article lookup failed")
			continue
		}
		if !article.HasEmbedding() {
			continue
		}

		embeddings = append(embeddings, article.Embedding)
		weights = append(weights, DecayWeight(now.Sub(imp.Timestamp), imp.InteractionStrength, b.decay))
	}

	if len(embeddings) == 0 {
		return nil, nil
	}
	if !vector.Normalize(weights) {
		return nil, nil
	}

	centroid, err := vector.WeightedSum(embeddings, weights)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	return centroid, nil
}
