package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/ObiAU/newsfeed/internal/config"
	"github.com/ObiAU/newsfeed/internal/store"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS article (
	seq              BIGSERIAL,
	id               TEXT PRIMARY KEY,
	headline         TEXT NOT NULL DEFAULT '',
	content          TEXT NOT NULL DEFAULT '',
	summary          TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	newspaper        TEXT NOT NULL DEFAULT '',
	news_id          TEXT NOT NULL DEFAULT '',
	date             TEXT NOT NULL,
	editorial_rank   INTEGER NOT NULL DEFAULT 0,
	importance_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	embedding        vector
);
CREATE INDEX IF NOT EXISTS idx_article_date ON article (date);

CREATE TABLE IF NOT EXISTS impression (
	seq                  BIGSERIAL,
	id                   TEXT PRIMARY KEY,
	user_id              TEXT NOT NULL,
	article_id           TEXT NOT NULL,
	ts                   BIGINT NOT NULL,
	interaction_strength DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_impression_user ON impression (user_id);
`

type DB struct {
	db *sql.DB
}

func NewDB(cfg *config.Config) (store.Driver, error) {
	if cfg.DBDSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", cfg.DBDSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping postgres")
	}

	return &DB{db: db}, nil
}

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate postgres schema")
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}
