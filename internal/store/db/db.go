package db

import (
	"github.com/pkg/errors"

	"github.com/ObiAU/newsfeed/internal/config"
	"github.com/ObiAU/newsfeed/internal/store"
	"github.com/ObiAU/newsfeed/internal/store/db/mongo"
	"github.com/ObiAU/newsfeed/internal/store/db/postgres"
	"github.com/ObiAU/newsfeed/internal/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on configuration.
func NewDBDriver(cfg *config.Config) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch cfg.DBDriver {
	case config.DriverSQLite:
		driver, err = sqlite.NewDB(cfg)
	case config.DriverPostgres:
		driver, err = postgres.NewDB(cfg)
	case config.DriverMongo:
		driver, err = mongo.NewDB(cfg)
	default:
		return nil, errors.Errorf("unknown db driver %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
