// Package service runs the long-lived parts of the feed together: the HTTP
// API, the Telegram bot and the embedding backfill loop.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ObiAU/newsfeed/internal/ai"
	"github.com/ObiAU/newsfeed/internal/api"
	"github.com/ObiAU/newsfeed/internal/backfill"
	"github.com/ObiAU/newsfeed/internal/cache"
	"github.com/ObiAU/newsfeed/internal/config"
	"github.com/ObiAU/newsfeed/internal/metrics"
	"github.com/ObiAU/newsfeed/internal/telegram"
)

const shutdownTimeout = 5 * time.Second

type Components struct {
	Feed     api.Recommender
	Views    api.ViewRecorder
	Articles api.ArticleReader
	Ingest   api.ArticleIngester
	Embedder *ai.OpenAIClient // optional
	Sessions *cache.Cache
	Metrics  *metrics.Recorder
	Bot      *telegram.Bot // optional
	Backfill *backfill.Job // optional
}

type Service struct {
	config     *config.Config
	components Components
	server     *api.Server
	logger     zerolog.Logger
	mu         sync.RWMutex
	running    bool
	startedAt  time.Time
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg *config.Config, components Components, logger zerolog.Logger) *Service {
	s := &Service{
		config:     cfg,
		components: components,
		logger:     logger.With().Str("component", "service").Logger(),
	}

	deps := api.Deps{
		Feed:     components.Feed,
		Views:    components.Views,
		Articles: components.Articles,
		Ingest:   components.Ingest,
		Metrics:  components.Metrics,
		Stats:    s.Stats,
		DateKey:  cfg.Today,
	}
	if components.Embedder != nil {
		deps.Embedder = components.Embedder
	}
	if components.Bot != nil {
		deps.Webhook = components.Bot
	}
	s.server = api.NewServer(deps, logger)
	return s
}

// Run blocks until ctx is done or the HTTP server fails, then shuts down.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if s.components.Bot != nil {
		if err := s.components.Bot.Start(ctx); err != nil {
			return fmt.Errorf("failed to start telegram bot: %w", err)
		}
	}

	var wg sync.WaitGroup
	if s.components.Backfill != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.components.Backfill.Run(ctx, s.config.ProcessingInterval)
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- s.server.Start(":" + s.config.ServerPort)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	if err := s.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	wg.Wait()
	return runErr
}

func (s *Service) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"running":          s.running,
		"telegram_enabled": s.components.Bot != nil,
		"backfill_enabled": s.components.Backfill != nil,
		"search_enabled":   s.components.Embedder != nil,
		"db_driver":        s.config.DBDriver,
	}
	if s.running {
		stats["uptime"] = time.Since(s.startedAt).Round(time.Second).String()
	}
	if s.components.Sessions != nil {
		stats["session_stats"] = s.components.Sessions.Stats()
	}
	return stats
}

func (s *Service) shutdown() error {
	s.logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
