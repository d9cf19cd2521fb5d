package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ObiAU/newsfeed/internal/ai"
	"github.com/ObiAU/newsfeed/internal/backfill"
	"github.com/ObiAU/newsfeed/internal/config"
	"github.com/ObiAU/newsfeed/internal/engagement"
	"github.com/ObiAU/newsfeed/internal/ingest"
	"github.com/ObiAU/newsfeed/internal/logging"
	"github.com/ObiAU/newsfeed/internal/metrics"
	"github.com/ObiAU/newsfeed/internal/profile"
	"github.com/ObiAU/newsfeed/internal/recommender"
	"github.com/ObiAU/newsfeed/internal/store"
	"github.com/ObiAU/newsfeed/internal/store/db"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   *store.Store
	metrics *metrics.Recorder
	engine  *recommender.Engine
	tracker *engagement.Tracker
	ingest  *ingest.Ingester
	now     func() time.Time
}

func newApp() (*app, error) {
	cfg := config.Load(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})

	driver, err := db.NewDBDriver(cfg)
	if err != nil {
		return nil, err
	}
	s := store.New(driver)
	rec := metrics.New()

	profiles := profile.NewBuilder(s, s, cfg.DecayFactor, logger)
	engine, err := recommender.NewEngine(&recommender.Config{
		DefaultCount:         cfg.DefaultCount,
		PersonalizedPoolSize: cfg.PersonalizedPoolSize,
	}, s, profiles, rec, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   s,
		metrics: rec,
		engine:  engine,
		tracker: engagement.NewTracker(s, s, rec, logger),
		ingest:  ingest.New(s, logger),
		now:     time.Now,
	}, nil
}

func (a *app) backfillJob() (*backfill.Job, error) {
	cfg := backfill.DefaultConfig()
	cfg.BatchSize = a.cfg.EmbeddingBatchSize
	cfg.RatePerSecond = a.cfg.EmbeddingRatePerSecond
	cfg.MaxPerPass = max(cfg.MaxPerPass, cfg.BatchSize)

	return backfill.NewJob(cfg, a.store, a.embedder(), a.metrics, a.logger)
}

// embedder returns nil when no OpenAI key is configured.
func (a *app) embedder() *ai.OpenAIClient {
	if !a.cfg.EmbeddingEnabled() {
		return nil
	}
	return ai.NewOpenAIClient(a.cfg.OpenAIAPIKey, a.cfg.EmbeddingModel, a.cfg.EmbeddingDimensions)
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close store")
	}
}
