package postgres

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/ObiAU/newsfeed/internal/models"
)

const articleColumns = `id, headline, content, summary, category, newspaper, news_id, date, editorial_rank, importance_score, embedding`

type rowScanner interface {
	Scan(dest ...any) error
}

func toVector(embedding []float64) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}
	vec := make([]float32, len(embedding))
	for i, v := range embedding {
		vec[i] = float32(v)
	}
	v := pgvector.NewVector(vec)
	return &v
}

func fromVector(v *pgvector.Vector) []float64 {
	if v == nil {
		return nil
	}
	src := v.Slice()
	if len(src) == 0 {
		return nil
	}
	out := make([]float64, len(src))
	for i, f := range src {
		out[i] = float64(f)
	}
	return out
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var (
		a         models.Article
		embedding *pgvector.Vector
	)
	if err := row.Scan(&a.ID, &a.Headline, &a.Content, &a.Summary, &a.Category, &a.Newspaper,
		&a.NewsID, &a.Date, &a.Rank, &a.ImportanceScore, &embedding); err != nil {
		return nil, err
	}
	a.Embedding = fromVector(embedding)
	return &a, nil
}

func (d *DB) UpsertArticle(ctx context.Context, a *models.Article) error {
	stmt := `
		INSERT INTO article (` + articleColumns + `)
		VALUES (` + placeholders(11) + `)
		ON CONFLICT (id) DO UPDATE SET
			headline = EXCLUDED.headline,
			content = EXCLUDED.content,
			summary = EXCLUDED.summary,
			category = EXCLUDED.category,
			newspaper = EXCLUDED.newspaper,
			news_id = EXCLUDED.news_id,
			date = EXCLUDED.date,
			editorial_rank = EXCLUDED.editorial_rank,
			importance_score = EXCLUDED.importance_score,
			embedding = EXCLUDED.embedding
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		a.ID, a.Headline, a.Content, a.Summary, a.Category, a.Newspaper, a.NewsID,
		a.Date, a.Rank, a.ImportanceScore, toVector(a.Embedding),
	); err != nil {
		return errors.Wrapf(err, "failed to upsert article %s", a.ID)
	}
	return nil
}

func (d *DB) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM article WHERE id = `+placeholder(1), id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get article %s", id)
	}
	return a, nil
}

func (d *DB) ListArticlesByDate(ctx context.Context, date string) ([]*models.Article, error) {
	return d.listArticles(ctx, `SELECT `+articleColumns+` FROM article WHERE date = `+placeholder(1)+` ORDER BY seq`, date)
}

func (d *DB) ListArticlesWithoutEmbedding(ctx context.Context, limit int) ([]*models.Article, error) {
	return d.listArticles(ctx, `SELECT `+articleColumns+` FROM article WHERE embedding IS NULL ORDER BY seq LIMIT `+placeholder(1), limit)
}

func (d *DB) listArticles(ctx context.Context, query string, args ...any) ([]*models.Article, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list articles")
	}
	defer rows.Close()

	list := []*models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan article")
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate articles")
	}
	return list, nil
}

func (d *DB) UpdateArticleEmbedding(ctx context.Context, id string, embedding []float64) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE article SET embedding = `+placeholder(1)+` WHERE id = `+placeholder(2), toVector(embedding), id)
	if err != nil {
		return errors.Wrapf(err, "failed to update embedding of article %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.Errorf("article %s not found", id)
	}
	return nil
}
