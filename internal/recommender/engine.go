// Package recommender ranks and blends a day's articles into a user's feed.
package recommender

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/ObiAU/newsfeed/internal/metrics"
	"github.com/ObiAU/newsfeed/internal/models"
	"github.com/ObiAU/newsfeed/internal/vector"
)

// DataProvider is the read side of the article and impression stores.
type DataProvider interface {
	ListArticlesByDate(ctx context.Context, date string) ([]*models.Article, error)
	HasImpressions(ctx context.Context, userID string) (bool, error)
}

// CentroidSource computes a user's interest centroid; nil means no profile.
type CentroidSource interface {
	Centroid(ctx context.Context, userID string, now time.Time) ([]float64, error)
}

type Request struct {
	UserID      string
	Date        string
	ExcludedIDs []string
	// Count of articles wanted. Zero selects the configured default,
	// a negative count yields an empty feed.
	Count       int
	InitialFeed bool
}

// Engine is stateless between calls and safe for concurrent use.
type Engine struct {
	config   *Config
	data     DataProvider
	profiles CentroidSource
	metrics  *metrics.Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, data DataProvider, profiles CentroidSource, rec *metrics.Recorder, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		config:   cfg,
		data:     data,
		profiles: profiles,
		metrics:  rec,
		logger:   logger.With().Str("component", "recommender").Logger(),
		now:      time.Now,
	}, nil
}

type scored struct {
	article *models.Article
	score   float64
}

// Recommend returns at most Count articles for the user, never repeating an
// id and never returning an excluded one.
func (e *Engine) Recommend(ctx context.Context, req Request) ([]*models.Article, error) {
	count := req.Count
	if count == 0 {
		count = e.config.DefaultCount
	}
	if count < 0 {
		return []*models.Article{}, nil
	}

	logger := e.logger.With().
		Str("user_id", req.UserID).
		Str("date", req.Date).
		Bool("initial", req.InitialFeed).
		Logger()

	candidates, err := e.data.ListArticlesByDate(ctx, req.Date)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	if len(candidates) == 0 {
		logger.Debug().Msg("no candidates for date")
		return []*models.Article{}, nil
	}
	available := exclude(candidates, req.ExcludedIDs)

	hasHistory, err := e.data.HasImpressions(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("check history: %w", err)
	}

	var centroid []float64
	if !req.InitialFeed || hasHistory {
		centroid, err = e.profiles.Centroid(ctx, req.UserID, e.now())
		if err != nil {
			return nil, fmt.Errorf("interest centroid: %w", err)
		}
	}

	if centroid == nil {
		e.metrics.Recommendation(metrics.PathEditorial)
		logger.Debug().Int("candidates", len(available)).Msg("no profile, serving editorial feed")
		return take(ByRank(available), count, nil), nil
	}

	ranked, err := score(centroid, available)
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}

	if !req.InitialFeed {
		e.metrics.Recommendation(metrics.PathFollowUp)
		logger.Debug().Int("scored", len(ranked)).Msg("serving personalized follow-up")
		return take(articlesOf(ranked), count, nil), nil
	}

	feed := e.blend(available, ranked, count)
	e.metrics.Recommendation(metrics.PathBlended)
	logger.Debug().Int("scored", len(ranked)).Int("returned", len(feed)).Msg("serving blended initial feed")
	return feed, nil
}

// blend fills floor(count*0.4) slots editorially, then up to the rest from the
// personalized pool, then backfills from the editorial ranking.
func (e *Engine) blend(available []*models.Article, ranked []scored, count int) []*models.Article {
	editorial := byImportance(available)
	pool := articlesOf(ranked[:min(len(ranked), e.config.PersonalizedPoolSize)])

	editorialCount := int(math.Floor(float64(count) * editorialShare))
	personalizedCount := count - editorialCount

	seen := make(map[string]struct{}, count)
	feed := take(editorial[:min(len(editorial), editorialCount)], editorialCount, seen)
	feed = append(feed, take(pool, personalizedCount, seen)...)

	if len(feed) < count {
		rest := editorial[min(len(editorial), editorialCount):]
		feed = append(feed, take(rest, count-len(feed), seen)...)
	}
	return feed
}

// score ranks candidates with an embedding by 0.7*cosine + 0.3*importance,
// best first, ties kept in input order.
func score(centroid []float64, candidates []*models.Article) ([]scored, error) {
	out := make([]scored, 0, len(candidates))
	for _, a := range candidates {
		if !a.HasEmbedding() {
			continue
		}
		sim, err := vector.Cosine(centroid, a.Embedding)
		if err != nil {
			return nil, fmt.Errorf("article %s: %w", a.ID, err)
		}
		out = append(out, scored{article: a, score: similarityWeight*sim + importanceWeight*a.ImportanceScore})
	}

	slices.SortStableFunc(out, func(x, y scored) int {
		return cmp.Compare(y.score, x.score)
	})
	return out, nil
}

// ByRank returns a copy of articles in editorial order, lowest rank first.
func ByRank(articles []*models.Article) []*models.Article {
	sorted := slices.Clone(articles)
	slices.SortStableFunc(sorted, func(x, y *models.Article) int {
		return cmp.Compare(x.Rank, y.Rank)
	})
	return sorted
}

func byImportance(articles []*models.Article) []*models.Article {
	sorted := slices.Clone(articles)
	slices.SortStableFunc(sorted, func(x, y *models.Article) int {
		return cmp.Compare(y.ImportanceScore, x.ImportanceScore)
	})
	return sorted
}

func articlesOf(ranked []scored) []*models.Article {
	out := make([]*models.Article, len(ranked))
	for i, s := range ranked {
		out[i] = s.article
	}
	return out
}

// take appends up to n articles whose ids are not yet in seen, recording them.
// A nil seen set starts a fresh one.
func take(articles []*models.Article, n int, seen map[string]struct{}) []*models.Article {
	if seen == nil {
		seen = make(map[string]struct{}, n)
	}
	out := make([]*models.Article, 0, min(n, len(articles)))
	for _, a := range articles {
		if len(out) >= n {
			break
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

func exclude(articles []*models.Article, ids []string) []*models.Article {
	if len(ids) == 0 {
		return articles
	}
	skip := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}

	out := make([]*models.Article, 0, len(articles))
	for _, a := range articles {
		if _, ok := skip[a.ID]; !ok {
			out = append(out, a)
		}
	}
	return out
}
