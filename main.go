package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ObiAU/newsfeed/internal/cache"
	"github.com/ObiAU/newsfeed/internal/config"
	"github.com/ObiAU/newsfeed/internal/ingest"
	"github.com/ObiAU/newsfeed/internal/recommender"
	"github.com/ObiAU/newsfeed/internal/service"
	"github.com/ObiAU/newsfeed/internal/telegram"
)

var (
	v = config.NewViper()

	rootCmd = &cobra.Command{
		Use:   "newsfeed",
		Short: "Personalized daily news feed with editorial cold start.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; the environment may already be set.
			_ = godotenv.Load()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the Telegram bot and the embedding backfill",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	recommendCmd = &cobra.Command{
		Use:   "recommend",
		Short: "Print a user's feed as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return recommend(cmd)
		},
	}

	backfillCmd = &cobra.Command{
		Use:   "backfill",
		Short: "Embed stored articles that have no embedding, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return backfillOnce(cmd.Context())
		},
	}

	importCmd = &cobra.Command{
		Use:   "import <file>",
		Short: "Load articles from a JSON file, or stdin when the file is -",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return importArticles(cmd, args[0])
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.store.Migrate(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info().Str("driver", a.cfg.DBDriver).Msg("schema up to date")
			return nil
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("db-driver", config.DriverSQLite, "database driver (sqlite, postgres, mongo)")
	flags.String("db-dsn", "newsfeed.db", "database source name")
	flags.String("port", "8080", "HTTP port")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "json", "log format (json, console)")

	for key, flag := range map[string]string{
		"db_driver":   "db-driver",
		"db_dsn":      "db-dsn",
		"server_port": "port",
		"log_level":   "log-level",
		"log_format":  "log-format",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	recommendCmd.Flags().String("user", "", "user id")
	recommendCmd.Flags().String("date", "", "date key, defaults to today")
	recommendCmd.Flags().Int("count", 0, "number of articles, 0 for the default")
	recommendCmd.Flags().Bool("initial", true, "build an initial (blended) feed")
	recommendCmd.Flags().StringSlice("exclude", nil, "article ids to leave out")
	_ = recommendCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(serveCmd, recommendCmd, backfillCmd, importCmd, migrateCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Migrate(ctx); err != nil {
		return err
	}

	sessions := cache.New(cache.DefaultMaxSessions, a.cfg.SessionRetention)
	defer sessions.Close()

	components := service.Components{
		Feed:     a.engine,
		Views:    a.tracker,
		Articles: a.store,
		Ingest:   a.ingest,
		Embedder: a.embedder(),
		Sessions: sessions,
		Metrics:  a.metrics,
	}

	if a.cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(a.cfg.TelegramToken, a.cfg.TelegramWebhookURL, telegram.Deps{
			Feed:     a.engine,
			Views:    a.tracker,
			Sessions: sessions,
			DateKey:  a.cfg.Today,
		}, a.logger)
		if err != nil {
			return err
		}
		components.Bot = bot
	} else {
		a.logger.Warn().Msg("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}

	if a.cfg.EmbeddingEnabled() {
		job, err := a.backfillJob()
		if err != nil {
			return err
		}
		components.Backfill = job
	} else {
		a.logger.Warn().Msg("OPENAI_API_KEY not set, embedding backfill and vector search disabled")
	}

	a.logger.Info().Str("driver", a.cfg.DBDriver).Str("port", a.cfg.ServerPort).Msg("starting newsfeed")
	err = service.New(a.cfg, components, a.logger).Run(ctx)
	a.logger.Info().Msg("newsfeed stopped")
	return err
}

func recommend(cmd *cobra.Command) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	flags := cmd.Flags()
	userID, _ := flags.GetString("user")
	date, _ := flags.GetString("date")
	count, _ := flags.GetInt("count")
	initial, _ := flags.GetBool("initial")
	exclude, _ := flags.GetStringSlice("exclude")

	if strings.TrimSpace(date) == "" {
		date = a.cfg.Today(a.now())
	}

	articles, err := a.engine.Recommend(cmd.Context(), recommender.Request{
		UserID:      userID,
		Date:        date,
		ExcludedIDs: exclude,
		Count:       count,
		InitialFeed: initial,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func backfillOnce(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.cfg.EmbeddingEnabled() {
		return fmt.Errorf("OPENAI_API_KEY is required for backfill")
	}
	job, err := a.backfillJob()
	if err != nil {
		return err
	}
	n, err := job.RunOnce(ctx)
	if err != nil {
		return err
	}
	a.logger.Info().Int("embedded", n).Msg("backfill done")
	return nil
}

func importArticles(cmd *cobra.Command, path string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	in := cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	batch, err := ingest.Decode(in)
	if err != nil {
		return err
	}
	if err := a.store.Migrate(cmd.Context()); err != nil {
		return err
	}
	ids, err := a.ingest.Ingest(cmd.Context(), batch)
	if err != nil {
		return err
	}
	a.logger.Info().Int("articles", len(ids)).Str("file", path).Msg("import done")
	return nil
}
