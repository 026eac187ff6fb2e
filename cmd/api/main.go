package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/docqa/backend/internal/api"
	"github.com/docqa/backend/internal/api/handlers"
	"github.com/docqa/backend/internal/cache"
	rediscache "github.com/docqa/backend/internal/cache/redis"
	"github.com/docqa/backend/internal/documents"
	"github.com/docqa/backend/internal/embedding"
	"github.com/docqa/backend/internal/ingestion"
	"github.com/docqa/backend/internal/llm"
	"github.com/docqa/backend/internal/metrics"
	"github.com/docqa/backend/internal/query"
	"github.com/docqa/backend/internal/storage/sqlite"
	"github.com/docqa/backend/internal/synthesis"
	"github.com/docqa/backend/pkg/config"
	appLogger "github.com/docqa/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting document QA API server", zap.String("version", api.Version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store   documents.Store
		history handlers.HistoryReader
		opts    []query.Option
	)

	switch cfg.Store.Backend {
	case "sqlite":
		sqliteClient, err := sqlite.NewClient(cfg.Store.SQLitePath)
		if err != nil {
			appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
		}
		defer sqliteClient.Close()

		if err := sqliteClient.InitSchema(); err != nil {
			appLogger.Fatal("Failed to initialize schema", zap.Error(err))
		}
		store = sqliteClient
		history = sqliteClient
		opts = append(opts, query.WithHistory(sqliteClient))
	default:
		store = documents.NewMemoryStore()
	}

	if cfg.Store.SeedSamples {
		added, err := documents.Seed(ctx, store, documents.Samples())
		if err != nil {
			appLogger.Fatal("Failed to seed sample documents", zap.Error(err))
		}
		appLogger.Info("Sample documents seeded", zap.Int("added", added))
	}

	var answerCache cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		redisClient, err := rediscache.NewClient(ctx,
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.KeyPrefix,
			cfg.Cache.TTL(),
		)
		if err != nil {
			appLogger.Fatal("Failed to create Redis cache", zap.Error(err))
		}
		defer redisClient.Close()
		answerCache = redisClient
	default:
		answerCache = cache.NewMemory(cfg.Cache.TTL(), cache.WithMaxEntries(cfg.Cache.MaxEntries))
	}

	var (
		embedder    embedding.Embedder    = embedding.NewHashEmbedder()
		synthesizer synthesis.Synthesizer = synthesis.NewTemplateSynthesizer()
	)
	if cfg.LLM.Enabled {
		llmClient := llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			Model:          cfg.LLM.Model,
			EmbeddingModel: cfg.LLM.EmbeddingModel,
			Temperature:    cfg.LLM.Temperature,
			MaxTokens:      cfg.LLM.MaxTokens,
			Timeout:        time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		})
		embedder = llmClient
		synthesizer = llmClient
	}

	queryEngine := query.NewEngine(store, embedder, synthesizer, answerCache, opts...)
	go queryEngine.RunCacheSweeper(ctx, cfg.Cache.SweepInterval())

	if n, err := store.Count(ctx); err == nil {
		metrics.DocumentsTotal.Set(float64(n))
	}

	server := api.NewServer(cfg, api.Deps{
		Engine:       queryEngine,
		Store:        store,
		History:      history,
		Processor:    ingestion.NewProcessor(store),
		EmbedderName: embedder.Name(),
	}, appLogger.GetLogger())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		if err := server.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	cancel()
	if err := server.Shutdown(); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
