package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/harborlane/retaildex/internal/config"
	"github.com/harborlane/retaildex/internal/index"
	logpkg "github.com/harborlane/retaildex/internal/logger"
	"github.com/harborlane/retaildex/internal/metrics"
	"github.com/harborlane/retaildex/internal/repository/embcache"
	"github.com/harborlane/retaildex/internal/store/sqlite"
	openaiTransport "github.com/harborlane/retaildex/internal/transport/openai"
	"github.com/harborlane/retaildex/internal/usecase/seed"
	"github.com/harborlane/retaildex/internal/version"
)

func main() {
	csvPath := flag.String("csv", "", "path to the retail transactions CSV (required)")
	account := flag.String("account", "", "account id to seed (defaults to the configured account)")
	maxRows := flag.Int("max-rows", 0, "maximum rows to ingest (0 = default)")
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: retaildex-seed -csv <file> [-account <id>] [-max-rows <n>]")
		os.Exit(2)
	}

	_ = godotenv.Load()

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	accountID := *account
	if accountID == "" {
		accountID = cfg.Account.ID
	}

	logger.Info("Starting retaildex seeder",
		zap.String("version", version.Version),
		zap.String("csv", *csvPath),
		zap.String("account_id", accountID),
	)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	metrics.Register()

	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	embedder := embcache.New(baseEmbedder, store, metrics.EmbeddingCacheTotal, logger)

	adapter := index.New(store, embedder, index.Caps{
		SearchLimit:    cfg.Index.SearchLimit,
		TopSellerScan:  cfg.Index.TopSellerScan,
		StatisticsScan: cfg.Index.StatisticsScan,
		HybridLimit:    cfg.Index.HybridLimit,
		Similarity:     cfg.Index.Similarity,
	}, cfg.Embedding.Dimensions, logger)
	defer adapter.Close()

	f, err := os.Open(*csvPath)
	if err != nil {
		logger.Fatal("Failed to open CSV", zap.String("path", *csvPath), zap.Error(err))
	}
	defer f.Close()

	seeder := seed.New(store, adapter, embedder, logger)
	summary, err := seeder.Run(ctx, f, seed.Options{
		AccountID: accountID,
		MaxRows:   *maxRows,
	})
	if err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}

	logger.Info("Seeding complete",
		zap.Int("inserted", summary.Inserted),
		zap.Int("skipped", summary.Skipped),
	)
	fmt.Printf("Seeded %d records for account %s (%d rows skipped)\n",
		summary.Inserted, accountID, summary.Skipped)
}
