// Package ingest validates incoming articles and writes them to the store.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ObiAU/newsfeed/internal/models"
)

// ErrInvalidBatch marks input that fails validation; nothing is written.
var ErrInvalidBatch = errors.New("invalid article batch")

type Writer interface {
	UpsertArticle(ctx context.Context, article *models.Article) error
}

// Article is the accepted input shape. Unlike models.Article it carries an
// optional precomputed embedding and leaves the id and importance optional.
type Article struct {
	ID              string    `json:"id"`
	Headline        string    `json:"headline" validate:"required"`
	Content         string    `json:"content"`
	Summary         string    `json:"summary"`
	Category        string    `json:"category"`
	Newspaper       string    `json:"newspaper"`
	NewsID          string    `json:"newsId"`
	Date            string    `json:"date" validate:"required"`
	Rank            int       `json:"rank" validate:"gte=0"`
	ImportanceScore *float64  `json:"importanceScore" validate:"omitempty,gte=0,lte=1"`
	Embedding       []float64 `json:"embedding"`
}

type Batch struct {
	Articles []Article `json:"articles" validate:"required,min=1,max=500,dive"`
}

type Ingester struct {
	store    Writer
	validate *validator.Validate
	logger   zerolog.Logger
	newID    func() string
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(store Writer, logger zerolog.Logger) *Ingester {
	return &Ingester{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With().Str("component", "ingest").Logger(),
		newID:    uuid.NewString,
	}
}

// Decode reads either a bare JSON array of articles or {"articles": [...]}.
func Decode(r io.Reader) (Batch, error) {
	br := bufio.NewReader(r)
	var batch Batch

	first, err := firstNonSpace(br)
	if err != nil {
		return batch, fmt.Errorf("%w: empty input", ErrInvalidBatch)
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		err = dec.Decode(&batch.Articles)
	} else {
		err = dec.Decode(&batch)
	}
	if err != nil {
		return batch, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	return batch, nil
}

func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// Ingest validates the whole batch, then upserts every article and returns
// their ids in input order. Articles without an id get a generated one and
// articles without an importance score get models.DefaultImportanceScore.
func (i *Ingester) Ingest(ctx context.Context, batch Batch) ([]string, error) {
	if err := i.validate.Struct(batch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}

	ids := make([]string, 0, len(batch.Articles))
	for _, in := range batch.Articles {
		a := toModel(in)
		if a.ID == "" {
			a.ID = i.newID()
		}
		if err := i.store.UpsertArticle(ctx, a); err != nil {
			return ids, fmt.Errorf("failed to store article %s: %w", a.ID, err)
		}
		ids = append(ids, a.ID)
	}

	i.logger.Info().Int("articles", len(ids)).Msg("ingested articles")
	return ids, nil
}

func toModel(in Article) *models.Article {
	importance := models.DefaultImportanceScore
	if in.ImportanceScore != nil {
		importance = *in.ImportanceScore
	}
	return &models.Article{
		ID:              in.ID,
		Headline:        in.Headline,
		Content:         in.Content,
		Summary:         in.Summary,
		Category:        in.Category,
		Newspaper:       in.Newspaper,
		NewsID:          in.NewsID,
		Date:            in.Date,
		Rank:            in.Rank,
		ImportanceScore: importance,
		Embedding:       in.Embedding,
	}
}
