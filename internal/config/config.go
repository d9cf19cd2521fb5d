package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	DBDriver      string
	DBDSN         string
	MongoDatabase string

	OpenAIAPIKey           string
	EmbeddingModel         string
	EmbeddingDimensions    int
	EmbeddingBatchSize     int
	EmbeddingRatePerSecond float64

	TelegramToken      string
	TelegramWebhookURL string

	ProcessingInterval time.Duration
	SessionRetention   time.Duration
	ServerPort         string
	LogLevel           string
	LogFormat          string

	DecayFactor          float64
	DefaultCount         int
	PersonalizedPoolSize int
	FeedDateLayout       string
}

// NewViper returns a viper instance reading the environment with the
// service defaults applied. Keys are the lower-cased variable names.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("db_driver", DriverSQLite)
	v.SetDefault("db_dsn", "newsfeed.db")
	v.SetDefault("mongo_database", "news_articles")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("embedding_dimensions", 0)
	v.SetDefault("embedding_batch_size", 10)
	v.SetDefault("embedding_rate_per_second", 2.0)
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("telegram_webhook_url", "")
	v.SetDefault("processing_interval", 30*time.Second)
	v.SetDefault("session_retention", 24*time.Hour)
	v.SetDefault("server_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("profile_decay_factor", 0.1)
	v.SetDefault("recommend_default_count", 18)
	v.SetDefault("recommend_personalized_pool", 15)
	v.SetDefault("feed_date_layout", "02-01-2006")

	return v
}

func Load(v *viper.Viper) *Config {
	return &Config{
		DBDriver:               v.GetString("db_driver"),
		DBDSN:                  v.GetString("db_dsn"),
		MongoDatabase:          v.GetString("mongo_database"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		EmbeddingModel:         v.GetString("embedding_model"),
		EmbeddingDimensions:    v.GetInt("embedding_dimensions"),
		EmbeddingBatchSize:     v.GetInt("embedding_batch_size"),
		EmbeddingRatePerSecond: v.GetFloat64("embedding_rate_per_second"),
		TelegramToken:          v.GetString("telegram_bot_token"),
		TelegramWebhookURL:     v.GetString("telegram_webhook_url"),
		ProcessingInterval:     v.GetDuration("processing_interval"),
		SessionRetention:       v.GetDuration("session_retention"),
		ServerPort:             v.GetString("server_port"),
		LogLevel:               v.GetString("log_level"),
		LogFormat:              v.GetString("log_format"),
		DecayFactor:            v.GetFloat64("profile_decay_factor"),
		DefaultCount:           v.GetInt("recommend_default_count"),
		PersonalizedPoolSize:   v.GetInt("recommend_personalized_pool"),
		FeedDateLayout:         v.GetString("feed_date_layout"),
	}
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres, DriverMongo:
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("db dsn required")
	}
	if c.DecayFactor <= 0 {
		return fmt.Errorf("decay factor must be positive, got %v", c.DecayFactor)
	}
	if c.DefaultCount <= 0 || c.PersonalizedPoolSize <= 0 {
		return fmt.Errorf("recommendation counts must be positive")
	}
	if c.EmbeddingBatchSize <= 0 || c.EmbeddingRatePerSecond <= 0 {
		return fmt.Errorf("embedding batch size and rate must be positive")
	}
	if c.ProcessingInterval <= 0 || c.SessionRetention <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	return nil
}

// EmbeddingEnabled reports whether the backfill job can reach OpenAI.
func (c *Config) EmbeddingEnabled() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// Today is the date key of the articles published on now.
func (c *Config) Today(now time.Time) string {
	return now.Format(c.FeedDateLayout)
}
