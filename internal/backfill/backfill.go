// Package backfill embeds stored articles that do not have an embedding yet.
package backfill

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ObiAU/newsfeed/internal/metrics"
	"github.com/ObiAU/newsfeed/internal/models"
)

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

type Store interface {
	ListArticlesWithoutEmbedding(ctx context.Context, limit int) ([]*models.Article, error)
	UpdateArticleEmbedding(ctx context.Context, id string, embedding []float64) error
}

type Config struct {
	BatchSize     int
	Concurrency   int
	RatePerSecond float64
	// MaxPerPass caps the articles picked up by a single pass.
	MaxPerPass int
}

func DefaultConfig() Config {
	return Config{
		BatchSize:     10,
		Concurrency:   2,
		RatePerSecond: 2,
		MaxPerPass:    200,
	}
}

func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.RatePerSecond <= 0 {
		return fmt.Errorf("rate must be positive, got %v", c.RatePerSecond)
	}
	if c.MaxPerPass < c.BatchSize {
		return fmt.Errorf("max per pass %d is below batch size %d", c.MaxPerPass, c.BatchSize)
	}
	return nil
}

type Job struct {
	cfg      Config
	store    Store
	embedder Embedder
	limiter  *rate.Limiter
	metrics  *metrics.Recorder
	logger   zerolog.Logger
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewJob(cfg Config, store Store, embedder Embedder, rec *metrics.Recorder, logger zerolog.Logger) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backfill config: %w", err)
	}
	return &Job{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		metrics:  rec,
		logger:   logger.With().Str("component", "backfill").Logger(),
	}, nil
}

// RunOnce embeds one pass worth of articles and returns how many were
// written. A failed batch is logged and skipped; the articles stay without an
// embedding and are retried on the next pass.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	articles, err := j.store.ListArticlesWithoutEmbedding(ctx, j.cfg.MaxPerPass)
	if err != nil {
		return 0, fmt.Errorf("failed to list articles without embedding: %w", err)
	}
	if len(articles) == 0 {
		return 0, nil
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Concurrency)

	for _, batch := range chunk(articles, j.cfg.BatchSize) {
		g.Go(func() error {
			if err := j.limiter.Wait(gctx); err != nil {
				return err
			}
			n, err := j.embedBatch(gctx, batch)
			written.Add(int64(n))
			if err != nil {
				j.metrics.BackfillError()
				j.logger.Warn().Err(err).Int("batch", len(batch)).Msg("embedding batch failed")
			}
			return nil
		})
	}

	err = g.Wait()
	n := int(written.Load())
	j.metrics.EmbeddingsBackfilled(n)
	if err != nil {
		return n, err
	}

	j.logger.Info().Int("articles", len(articles)).Int("embedded", n).Msg("backfill pass complete")
	return n, nil
}

func (j *Job) embedBatch(ctx context.Context, batch []*models.Article) (int, error) {
	texts := make([]string, len(batch))
	for i, a := range batch {
		texts[i] = EmbeddingText(a)
	}

	vectors, err := j.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(batch) {
		return 0, fmt.Errorf("got %d embeddings for %d articles", len(vectors), len(batch))
	}

	written := 0
	for i, a := range batch {
		if err := j.store.UpdateArticleEmbedding(ctx, a.ID, vectors[i]); err != nil {
			return written, fmt.Errorf("failed to store embedding of %s: %w", a.ID, err)
		}
		written++
	}
	return written, nil
}

// Run repeats RunOnce every interval until ctx is done.
func (j *Job) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
			j.logger.Error().Err(err).Msg("backfill pass failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// EmbeddingText is the text an article is embedded from.
func EmbeddingText(a *models.Article) string {
	return strings.TrimSpace(a.Headline + "\n\n" + a.Content)
}

func chunk(articles []*models.Article, size int) [][]*models.Article {
	var out [][]*models.Article
	for start := 0; start < len(articles); start += size {
		end := min(start+size, len(articles))
		out = append(out, articles[start:end])
	}
	return out
}
