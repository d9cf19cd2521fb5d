package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/ObiAU/newsfeed/internal/config"
	"github.com/ObiAU/newsfeed/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS article (
	id               TEXT PRIMARY KEY,
	headline         TEXT NOT NULL DEFAULT '',
	content          TEXT NOT NULL DEFAULT '',
	summary          TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	newspaper        TEXT NOT NULL DEFAULT '',
	news_id          TEXT NOT NULL DEFAULT '',
	date             TEXT NOT NULL,
	editorial_rank   INTEGER NOT NULL DEFAULT 0,
	importance_score REAL NOT NULL DEFAULT 0.5,
	embedding        TEXT
);
CREATE INDEX IF NOT EXISTS idx_article_date ON article (date);

CREATE TABLE IF NOT EXISTS impression (
	id                   TEXT PRIMARY KEY,
	user_id              TEXT NOT NULL,
	article_id           TEXT NOT NULL,
	ts                   INTEGER NOT NULL,
	interaction_strength REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_impression_user ON impression (user_id);
`

type DB struct {
	db *sql.DB
}

// NewDB opens the SQLite database named by cfg.DBDSN.
func NewDB(cfg *config.Config) (store.Driver, error) {
	if cfg.DBDSN == "" {
		return nil, errors.New("dsn required")
	}

	// Each pragma must be prefixed with `_pragma=` for modernc.org/sqlite.
	dsn := cfg.DBDSN
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	sqliteDB, err := sql.Open("sqlite", dsn+sep+"_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", cfg.DBDSN)
	}

	// A single connection with WAL avoids SQLITE_BUSY on concurrent writers.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)

	return &DB{db: sqliteDB}, nil
}

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate sqlite schema")
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func encodeEmbedding(embedding []float64) (any, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode embedding")
	}
	return string(b), nil
}

func decodeEmbedding(raw sql.NullString) ([]float64, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var embedding []float64
	if err := json.Unmarshal([]byte(raw.String), &embedding); err != nil {
		return nil, errors.Wrap(err, "failed to decode embedding")
	}
	return embedding, nil
}
