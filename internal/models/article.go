package models

import (
	"time"
)

// DefaultImportanceScore is used for articles stored without an editorial importance.
const DefaultImportanceScore = 0.5

type Article struct {
	ID              string    `json:"id"`
	Headline        string    `json:"headline"`
	Content         string    `json:"content"`
	Summary         string    `json:"summary,omitempty"`
	Category        string    `json:"category,omitempty"`
	Newspaper       string    `json:"newspaper,omitempty"`
	NewsID          string    `json:"newsId,omitempty"`
	Date            string    `json:"date"`
	Rank            int       `json:"rank"`
	ImportanceScore float64   `json:"importanceScore"`
	Embedding       []float64 `json:"-"`
}

// HasEmbedding reports whether the article can take part in similarity scoring.
func (a *Article) HasEmbedding() bool {
	return a != nil && len(a.Embedding) > 0
}

// Impression is an append-only record of a user engaging with an article.
type Impression struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"userId"`
	ArticleID           string    `json:"articleId"`
	Timestamp           time.Time `json:"timestamp"`
	InteractionStrength float64   `json:"interactionStrength"`
}
