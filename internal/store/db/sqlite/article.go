package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/ObiAU/newsfeed/internal/models"
)

const articleColumns = `id, headline, content, summary, category, newspaper, news_id, date, editorial_rank, importance_score, embedding`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var (
		a         models.Article
		embedding sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Headline, &a.Content, &a.Summary, &a.Category, &a.Newspaper,
		&a.NewsID, &a.Date, &a.Rank, &a.ImportanceScore, &embedding); err != nil {
		return nil, err
	}

	vec, err := decodeEmbedding(embedding)
	if err != nil {
		return nil, errors.Wrapf(err, "article %s", a.ID)
	}
	a.Embedding = vec
	return &a, nil
}

func (d *DB) UpsertArticle(ctx context.Context, a *models.Article) error {
	embedding, err := encodeEmbedding(a.Embedding)
	if err != nil {
		return err
	}

	stmt := `INSERT INTO article (` + articleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			headline = excluded.headline,
			content = excluded.content,
			summary = excluded.summary,
			category = excluded.category,
			newspaper = excluded.newspaper,
			news_id = excluded.news_id,
			date = excluded.date,
			editorial_rank = excluded.editorial_rank,
			importance_score = excluded.importance_score,
			embedding = excluded.embedding`

	if _, err := d.db.ExecContext(ctx, stmt,
		a.ID, a.Headline, a.Content, a.Summary, a.Category, a.Newspaper, a.NewsID,
		a.Date, a.Rank, a.ImportanceScore, embedding,
	); err != nil {
		return errors.Wrapf(err, "failed to upsert article %s", a.ID)
	}
	return nil
}

func (d *DB) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM article WHERE id = ?`, id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get article %s", id)
	}
	return a, nil
}

// ListArticlesByDate returns the articles of a date in insertion order.
func (d *DB) ListArticlesByDate(ctx context.Context, date string) ([]*models.Article, error) {
	return d.listArticles(ctx, `SELECT `+articleColumns+` FROM article WHERE date = ? ORDER BY rowid`, date)
}

func (d *DB) ListArticlesWithoutEmbedding(ctx context.Context, limit int) ([]*models.Article, error) {
	return d.listArticles(ctx, `SELECT `+articleColumns+` FROM article WHERE embedding IS NULL ORDER BY rowid LIMIT ?`, limit)
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
	encoded, err := encodeEmbedding(embedding)
	if err != nil {
		return err
	}

	res, err := d.db.ExecContext(ctx, `UPDATE article SET embedding = ? WHERE id = ?`, encoded, id)
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
