package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ObiAU/newsfeed/internal/models"
)

func TestIDFilter(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, bson.M{"_id": oid}, idFilter(oid.Hex()))
	assert.Equal(t, bson.M{"_id": "article-1"}, idFilter("article-1"))

	assert.Equal(t, oid.Hex(), idString(oid))
	assert.Equal(t, "x", idString("x"))
	assert.Equal(t, "", idString(nil))
	assert.Equal(t, "42", idString(int32(42)))
}

func TestArticleDoc_Defaults(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"_id":       primitive.NewObjectID(),
		"headline":  "Sensex rallies",
		"date":      "7th_march_2025",
		"rank":      3.0,
		"embedding": bson.A{0.5, 0.25},
	})
	assert.NoError(t, err)

	var doc articleDoc
	assert.NoError(t, bson.Unmarshal(raw, &doc))
	a := doc.toModel()

	assert.Len(t, a.ID, 24)
	assert.Equal(t, 3, a.Rank)
	assert.Equal(t, models.DefaultImportanceScore, a.ImportanceScore)
	assert.Equal(t, []float64{0.5, 0.25}, a.Embedding)
}

func TestImpressionDoc_Defaults(t *testing.T) {
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)

	bare := impressionDoc{ID: "i1", UserID: "u", ArticleID: "a"}
	imp := bare.toModel(now)
	assert.Equal(t, now, imp.Timestamp)
	assert.Equal(t, 1.0, imp.InteractionStrength)

	ts := toEpochSeconds(now.Add(-time.Hour))
	strength := 0.8
	full := impressionDoc{ID: "i2", UserID: "u", ArticleID: "a", Timestamp: &ts, InteractionStrength: &strength}
	imp = full.toModel(now)
	assert.Equal(t, now.Add(-time.Hour), imp.Timestamp)
	assert.Equal(t, 0.8, imp.InteractionStrength)
}

func TestEpochSeconds(t *testing.T) {
	at := time.Date(2025, 3, 7, 9, 15, 30, 250_000_000, time.UTC)
	assert.Equal(t, at, fromEpochSeconds(toEpochSeconds(at)))
}

func TestQueries_AreSorted(t *testing.T) {
	filter, opts := dateQuery("07-03-2025")
	assert.Equal(t, bson.M{"date": "07-03-2025"}, filter)
	assert.Equal(t, byID, opts.Sort)

	_, opts = missingEmbeddingQuery(25)
	assert.Equal(t, byID, opts.Sort)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(25), *opts.Limit)

	filter, opts = impressionsQuery("u1")
	assert.Equal(t, bson.M{"userId": "u1"}, filter)
	assert.Equal(t, byTimestamp, opts.Sort)
}
