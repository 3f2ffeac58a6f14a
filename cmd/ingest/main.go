// Command ingest loads the continent catalogue from the countries GraphQL API
// into PostgreSQL.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"countriapi/internal/countries/ingest"
	"countriapi/internal/countries/store/cache"
	countrypg "countriapi/internal/countries/store/postgres"
	"countriapi/internal/platform/config"
	"countriapi/internal/platform/logger"
	platformredis "countriapi/internal/platform/redis"
)

const ingestTimeout = 2 * time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, ingestTimeout)
	defer cancel()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	store := countrypg.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	var opts []ingest.LoaderOption
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, ingest.WithInvalidator(cache.New(redisClient.Client, store, cache.WithLogger(log))))
	}

	loader, err := ingest.NewLoader(ingest.NewClient(cfg.GraphQLAPIURL, ingest.WithLogger(log)), store, log, opts...)
	if err != nil {
		return err
	}
	stats, err := loader.Run(ctx)
	if err != nil {
		return err
	}

	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "ingest complete",
		"continents", stats.Continents,
		"countries", stats.Countries,
		"stored_countries", total,
	)
	return nil
}
