// Command seed populates the product store with a deterministic demo catalog.
//
// It reads the same environment as the server (STORE_DRIVER, POSTGRES_*,
// MONGO_*) plus SEED_COUNT and SEED_OWNER.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/repository"
	mongorepo "github.com/utafrali/storefront/internal/repository/mongo"
	"github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/internal/seed"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/logger"
)

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	products := seed.Generate(seed.Options{
		Count:    getEnvInt("SEED_COUNT", 1000),
		Owner:    getEnv("SEED_OWNER", "seed-admin"),
		ImageURL: cfg.MediaBaseURL,
		Seed:     42,
	})
	log.Info("generated products", slog.Int("count", len(products)))

	res, err := seed.Load(ctx, repo, products, log)
	if err != nil {
		return err
	}
	log.Info("seed complete",
		slog.Int("inserted", res.Inserted),
		slog.Int("replaced", res.Replaced),
	)
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.ProductRepository, func(), error) {
	if cfg.StoreDriver == config.StoreMongo {
		client, err := mongorepo.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		return mongorepo.NewProductRepository(client.Database(cfg.MongoDB)), closeFn, nil
	}

	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		MaxConns: 4,
		MinConns: 1,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return postgres.NewProductRepository(pool), pool.Close, nil
}
