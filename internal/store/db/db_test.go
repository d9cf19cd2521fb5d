package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ObiAU/newsfeed/internal/config"
)

func TestNewDBDriver_SQLite(t *testing.T) {
	cfg := &config.Config{
		DBDriver: config.DriverSQLite,
		DBDSN:    filepath.Join(t.TempDir(), "feed.db"),
	}
	driver, err := NewDBDriver(cfg)
	require.NoError(t, err)
	defer driver.Close()

	require.NoError(t, driver.Migrate(context.Background()))
	has, err := driver.HasImpressions(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestNewDBDriver_Unknown(t *testing.T) {
	_, err := NewDBDriver(&config.Config{DBDriver: "cassandra", DBDSN: "x"})
	assert.Error(t, err)
}

func TestNewDBDriver_MissingDSN(t *testing.T) {
	_, err := NewDBDriver(&config.Config{DBDriver: config.DriverPostgres})
	assert.Error(t, err)
	_, err = NewDBDriver(&config.Config{DBDriver: config.DriverMongo})
	assert.Error(t, err)
}
