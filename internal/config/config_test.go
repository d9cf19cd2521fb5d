package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(NewViper())

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "news_articles", cfg.MongoDatabase)
	assert.Equal(t, 30*time.Second, cfg.ProcessingInterval)
	assert.Equal(t, 24*time.Hour, cfg.SessionRetention)
	assert.Equal(t, 0.1, cfg.DecayFactor)
	assert.Equal(t, 18, cfg.DefaultCount)
	assert.Equal(t, 15, cfg.PersonalizedPoolSize)
	assert.False(t, cfg.EmbeddingEnabled())
	assert.False(t, cfg.TelegramEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/news")
	t.Setenv("PROCESSING_INTERVAL", "2m")
	t.Setenv("PROFILE_DECAY_FACTOR", "0.25")
	t.Setenv("RECOMMEND_DEFAULT_COUNT", "12")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := Load(NewViper())

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "postgres://localhost/news", cfg.DBDSN)
	assert.Equal(t, 2*time.Minute, cfg.ProcessingInterval)
	assert.Equal(t, 0.25, cfg.DecayFactor)
	assert.Equal(t, 12, cfg.DefaultCount)
	assert.True(t, cfg.EmbeddingEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }},
		{"empty dsn", func(c *Config) { c.DBDSN = "" }},
		{"zero decay", func(c *Config) { c.DecayFactor = 0 }},
		{"zero pool", func(c *Config) { c.PersonalizedPoolSize = 0 }},
		{"negative count", func(c *Config) { c.DefaultCount = -1 }},
		{"zero batch", func(c *Config) { c.EmbeddingBatchSize = 0 }},
		{"zero interval", func(c *Config) { c.ProcessingInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load(NewViper())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestToday(t *testing.T) {
	cfg := Load(NewViper())
	assert.Equal(t, "07-03-2025", cfg.Today(time.Date(2025, 3, 7, 23, 0, 0, 0, time.UTC)))
}
