// Package mongo stores articles and impressions in the `all_articles` and
// `impressions` collections of a MongoDB database.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ObiAU/newsfeed/internal/config"
	"github.com/ObiAU/newsfeed/internal/models"
	"github.com/ObiAU/newsfeed/internal/store"
)

const (
	articlesCollection    = "all_articles"
	impressionsCollection = "impressions"

	connectTimeout = 10 * time.Second
)

type DB struct {
	client      *mongo.Client
	articles    *mongo.Collection
	impressions *mongo.Collection
	now         func() time.Time
}

func NewDB(cfg *config.Config) (store.Driver, error) {
	if cfg.DBDSN == "" {
		return nil, errors.New("dsn required")
	}
	if cfg.MongoDatabase == "" {
		return nil, errors.New("mongo database name required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DBDSN))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "failed to ping mongo")
	}

	db := client.Database(cfg.MongoDatabase)
	return &DB{
		client:      client,
		articles:    db.Collection(articlesCollection),
		impressions: db.Collection(impressionsCollection),
		now:         time.Now,
	}, nil
}

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.articles.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "date", Value: 1}}}); err != nil {
		return errors.Wrap(err, "failed to index articles by date")
	}
	if _, err := d.impressions.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}}}); err != nil {
		return errors.Wrap(err, "failed to index impressions by user")
	}
	return nil
}

func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// idFilter matches ObjectID-keyed documents by their hex id and falls back
// to plain string keys for anything else.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

type articleDoc struct {
	ID              any       `bson:"_id"`
	Headline        string    `bson:"headline"`
	Content         string    `bson:"content"`
	Summary         string    `bson:"summary"`
	Category        string    `bson:"category"`
	Newspaper       string    `bson:"newspaper"`
	NewsID          string    `bson:"newsId"`
	Date            string    `bson:"date"`
	Rank            int       `bson:"rank"`
	ImportanceScore *float64  `bson:"importanceScore"`
	Embedding       []float64 `bson:"embedding,omitempty"`
}

func (doc *articleDoc) toModel() *models.Article {
	importance := models.DefaultImportanceScore
	if doc.ImportanceScore != nil {
		importance = *doc.ImportanceScore
	}
	return &models.Article{
		ID:              idString(doc.ID),
		Headline:        doc.Headline,
		Content:         doc.Content,
		Summary:         doc.Summary,
		Category:        doc.Category,
		Newspaper:       doc.Newspaper,
		NewsID:          doc.NewsID,
		Date:            doc.Date,
		Rank:            doc.Rank,
		ImportanceScore: importance,
		Embedding:       doc.Embedding,
	}
}

type impressionDoc struct {
	ID                  any      `bson:"_id,omitempty"`
	UserID              string   `bson:"userId"`
	ArticleID           string   `bson:"articleId"`
	Timestamp           *float64 `bson:"timestamp"`
	InteractionStrength *float64 `bson:"interactionStrength"`
}

// toModel applies the defaults of older records: a missing timestamp counts
// as now and a missing strength as a full-strength interaction.
func (doc *impressionDoc) toModel(now time.Time) *models.Impression {
	imp := &models.Impression{
		ID:                  idString(doc.ID),
		UserID:              doc.UserID,
		ArticleID:           doc.ArticleID,
		Timestamp:           now,
		InteractionStrength: 1.0,
	}
	if doc.Timestamp != nil {
		imp.Timestamp = fromEpochSeconds(*doc.Timestamp)
	}
	if doc.InteractionStrength != nil {
		imp.InteractionStrength = *doc.InteractionStrength
	}
	return imp
}

func toEpochSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

func fromEpochSeconds(s float64) time.Time {
	return time.UnixMilli(int64(s * 1000)).UTC()
}
