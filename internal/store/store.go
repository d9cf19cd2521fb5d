// Package store is the read/write boundary to the article and impression
// collections. Drivers live under store/db.
package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ObiAU/newsfeed/internal/models"
)

// Driver is implemented by each database backend.
type Driver interface {
	Migrate(ctx context.Context) error
	Close() error

	UpsertArticle(ctx context.Context, article *models.Article) error
	// GetArticle returns nil, nil when no article has the id.
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	ListArticlesByDate(ctx context.Context, date string) ([]*models.Article, error)
	ListArticlesWithoutEmbedding(ctx context.Context, limit int) ([]*models.Article, error)
	UpdateArticleEmbedding(ctx context.Context, id string, embedding []float64) error

	CreateImpression(ctx context.Context, impression *models.Impression) error
	ListImpressions(ctx context.Context, userID string) ([]*models.Impression, error)
	HasImpressions(ctx context.Context, userID string) (bool, error)
}

// Store provides database access to articles and impressions.
type Store struct {
	driver Driver
}

func New(driver Driver) *Store {
	return &Store{driver: driver}
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) UpsertArticle(ctx context.Context, article *models.Article) error {
	if article == nil || article.ID == "" {
		return errors.New("article id required")
	}
	return s.driver.UpsertArticle(ctx, article)
}

func (s *Store) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	if id == "" {
		return nil, nil
	}
	return s.driver.GetArticle(ctx, id)
}

func (s *Store) ListArticlesByDate(ctx context.Context, date string) ([]*models.Article, error) {
	return s.driver.ListArticlesByDate(ctx, date)
}

func (s *Store) ListArticlesWithoutEmbedding(ctx context.Context, limit int) ([]*models.Article, error) {
	if limit <= 0 {
		return nil, errors.Errorf("invalid limit: %d", limit)
	}
	return s.driver.ListArticlesWithoutEmbedding(ctx, limit)
}

func (s *Store) UpdateArticleEmbedding(ctx context.Context, id string, embedding []float64) error {
	if len(embedding) == 0 {
		return errors.Errorf("empty embedding for article %s", id)
	}
	return s.driver.UpdateArticleEmbedding(ctx, id, embedding)
}

func (s *Store) CreateImpression(ctx context.Context, impression *models.Impression) error {
	if impression == nil || impression.UserID == "" || impression.ArticleID == "" {
		return errors.New("impression requires user and article ids")
	}
	return s.driver.CreateImpression(ctx, impression)
}

func (s *Store) ListImpressions(ctx context.Context, userID string) ([]*models.Impression, error) {
	return s.driver.ListImpressions(ctx, userID)
}

func (s *Store) HasImpressions(ctx context.Context, userID string) (bool, error) {
	return s.driver.HasImpressions(ctx, userID)
}
