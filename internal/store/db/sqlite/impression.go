package sqlite

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ObiAU/newsfeed/internal/models"
)

func (d *DB) CreateImpression(ctx context.Context, imp *models.Impression) error {
	stmt := `INSERT INTO impression (id, user_id, article_id, ts, interaction_strength) VALUES (?, ?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, stmt,
		imp.ID, imp.UserID, imp.ArticleID, imp.Timestamp.Unix(), imp.InteractionStrength,
	); err != nil {
		return errors.Wrap(err, "failed to create impression")
	}
	return nil
}

func (d *DB) ListImpressions(ctx context.Context, userID string) ([]*models.Impression, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, article_id, ts, interaction_strength FROM impression WHERE user_id = ? ORDER BY ts, rowid`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list impressions")
	}
	defer rows.Close()

	list := []*models.Impression{}
	for rows.Next() {
		var (
			imp models.Impression
			ts  int64
		)
		if err := rows.Scan(&imp.ID, &imp.UserID, &imp.ArticleID, &ts, &imp.InteractionStrength); err != nil {
			return nil, errors.Wrap(err, "failed to scan impression")
		}
		imp.Timestamp = time.Unix(ts, 0).UTC()
		list = append(list, &imp)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate impressions")
	}
	return list, nil
}

func (d *DB) HasImpressions(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM impression WHERE user_id = ?)`, userID).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check impressions")
	}
	return exists, nil
}
