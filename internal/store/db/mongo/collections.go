package mongo

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ObiAU/newsfeed/internal/models"
)

// byID keeps listings in a stable order; ObjectIDs sort by creation time.
var byID = bson.D{{Key: "_id", Value: 1}}

var byTimestamp = bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}

func dateQuery(date string) (bson.M, *options.FindOptions) {
	return bson.M{"date": date}, options.Find().SetSort(byID)
}

func missingEmbeddingQuery(limit int) (bson.M, *options.FindOptions) {
	filter := bson.M{"$or": bson.A{
		bson.M{"embedding": bson.M{"$exists": false}},
		bson.M{"embedding": nil},
	}}
	return filter, options.Find().SetSort(byID).SetLimit(int64(limit))
}

func impressionsQuery(userID string) (bson.M, *options.FindOptions) {
	return bson.M{"userId": userID}, options.Find().SetSort(byTimestamp)
}

func (d *DB) UpsertArticle(ctx context.Context, a *models.Article) error {
	set := bson.M{
		"headline":        a.Headline,
		"content":         a.Content,
		"summary":         a.Summary,
		"category":        a.Category,
		"newspaper":       a.Newspaper,
		"newsId":          a.NewsID,
		"date":            a.Date,
		"rank":            a.Rank,
		"importanceScore": a.ImportanceScore,
	}
	update := bson.M{"$set": set}
	if len(a.Embedding) > 0 {
		set["embedding"] = a.Embedding
	} else {
		update["$unset"] = bson.M{"embedding": ""}
	}

	if _, err := d.articles.UpdateOne(ctx, idFilter(a.ID), update, options.Update().SetUpsert(true)); err != nil {
		return errors.Wrapf(err, "failed to upsert article %s", a.ID)
	}
	return nil
}

func (d *DB) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	var doc articleDoc
	err := d.articles.FindOne(ctx, idFilter(id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get article %s", id)
	}
	return doc.toModel(), nil
}

func (d *DB) ListArticlesByDate(ctx context.Context, date string) ([]*models.Article, error) {
	filter, opts := dateQuery(date)
	return d.findArticles(ctx, filter, opts)
}

func (d *DB) ListArticlesWithoutEmbedding(ctx context.Context, limit int) ([]*models.Article, error) {
	filter, opts := missingEmbeddingQuery(limit)
	return d.findArticles(ctx, filter, opts)
}

func (d *DB) findArticles(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Article, error) {
	cursor, err := d.articles.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find articles")
	}
	defer cursor.Close(ctx)

	list := []*models.Article{}
	for cursor.Next(ctx) {
		var doc articleDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "failed to decode article")
		}
		list = append(list, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate articles")
	}
	return list, nil
}

func (d *DB) UpdateArticleEmbedding(ctx context.Context, id string, embedding []float64) error {
	res, err := d.articles.UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M{"embedding": embedding}})
	if err != nil {
		return errors.Wrapf(err, "failed to update embedding of article %s", id)
	}
	if res.MatchedCount == 0 {
		return errors.Errorf("article %s not found", id)
	}
	return nil
}

func (d *DB) CreateImpression(ctx context.Context, imp *models.Impression) error {
	ts := toEpochSeconds(imp.Timestamp)
	strength := imp.InteractionStrength
	doc := impressionDoc{
		UserID:              imp.UserID,
		ArticleID:           imp.ArticleID,
		Timestamp:           &ts,
		InteractionStrength: &strength,
	}
	if imp.ID != "" {
		doc.ID = imp.ID
	}

	if _, err := d.impressions.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, "failed to create impression")
	}
	return nil
}

func (d *DB) ListImpressions(ctx context.Context, userID string) ([]*models.Impression, error) {
	filter, opts := impressionsQuery(userID)
	cursor, err := d.impressions.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find impressions")
	}
	defer cursor.Close(ctx)

	now := d.now()
	list := []*models.Impression{}
	for cursor.Next(ctx) {
		var doc impressionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "failed to decode impression")
		}
		list = append(list, doc.toModel(now))
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate impressions")
	}
	return list, nil
}

func (d *DB) HasImpressions(ctx context.Context, userID string) (bool, error) {
	n, err := d.impressions.CountDocuments(ctx, bson.M{"userId": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "failed to count impressions")
	}
	return n > 0, nil
}
