package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/harborlane/retaildex/internal/config"
	"github.com/harborlane/retaildex/internal/index"
	logpkg "github.com/harborlane/retaildex/internal/logger"
	"github.com/harborlane/retaildex/internal/metrics"
	"github.com/harborlane/retaildex/internal/repository/embcache"
	"github.com/harborlane/retaildex/internal/store/sqlite"
	chiTransport "github.com/harborlane/retaildex/internal/transport/chi"
	openaiTransport "github.com/harborlane/retaildex/internal/transport/openai"
	chatuc "github.com/harborlane/retaildex/internal/usecase/chat"
	healthuc "github.com/harborlane/retaildex/internal/usecase/health"
	toolsuc "github.com/harborlane/retaildex/internal/usecase/tools"
	"github.com/harborlane/retaildex/internal/version"
)

func main() {
	_ = godotenv.Load()

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting retaildex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_path", cfg.Database.Path),
		zap.String("account_id", cfg.Account.ID),
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
	logger.Info("Connected to database")

	metrics.Register()

	// Embedder chain: OpenAI provider wrapped by the store-backed cache.
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	embedder := embcache.New(baseEmbedder, store, metrics.EmbeddingCacheTotal, logger)

	// The index is initialized here, once, before the server accepts
	// traffic. Request handlers receive it ready to query.
	adapter := index.New(store, embedder, index.Caps{
		SearchLimit:    cfg.Index.SearchLimit,
		TopSellerScan:  cfg.Index.TopSellerScan,
		StatisticsScan: cfg.Index.StatisticsScan,
		HybridLimit:    cfg.Index.HybridLimit,
		Similarity:     cfg.Index.Similarity,
	}, cfg.Embedding.Dimensions, logger)
	if err := adapter.Initialize(ctx, cfg.Account.ID); err != nil {
		logger.Fatal("Failed to initialize search index",
			zap.String("account_id", cfg.Account.ID),
			zap.Error(err),
		)
	}
	defer adapter.Close()
	logger.Info("Search index ready", zap.Int("documents", adapter.Count()))

	completer := openaiTransport.NewChatCompleter(&openaiTransport.ChatConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	})

	executor := toolsuc.NewExecutor(adapter, logger)
	chatSvc := chatuc.New(completer, executor, logger)
	// The cache decorator has no provider connection of its own, so the
	// health check goes to the base provider.
	healthSvc := healthuc.New(store, baseEmbedder)

	server := chiTransport.NewServer(chatSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal server error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
