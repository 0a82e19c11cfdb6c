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
	"go.uber.org/zap"

	"github.com/reelrag/reelrag/internal/config"
	dbMongo "github.com/reelrag/reelrag/internal/db/mongo"
	dbRedis "github.com/reelrag/reelrag/internal/db/redis"
	"github.com/reelrag/reelrag/internal/domain"
	logpkg "github.com/reelrag/reelrag/internal/logger"
	"github.com/reelrag/reelrag/internal/metrics"
	"github.com/reelrag/reelrag/internal/repository/embcache"
	movierepo "github.com/reelrag/reelrag/internal/repository/movie"
	chiTransport "github.com/reelrag/reelrag/internal/transport/chi"
	openaiEmb "github.com/reelrag/reelrag/internal/transport/openai"
	backfilluc "github.com/reelrag/reelrag/internal/usecase/backfill"
	embeddinguc "github.com/reelrag/reelrag/internal/usecase/embedding"
	healthuc "github.com/reelrag/reelrag/internal/usecase/health"
	moviesuc "github.com/reelrag/reelrag/internal/usecase/movies"
	searchuc "github.com/reelrag/reelrag/internal/usecase/search"
	statsuc "github.com/reelrag/reelrag/internal/usecase/stats"
	"github.com/reelrag/reelrag/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting reelrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("database", cfg.Mongo.Database),
		zap.String("collection", cfg.Mongo.Collection),
	)

	ctx := context.Background()

	store, err := dbMongo.NewStore(ctx, dbMongo.Config{
		URI:        cfg.Mongo.URI,
		Database:   cfg.Mongo.Database,
		Collection: cfg.Mongo.Collection,
	})
	if err != nil {
		logger.Fatal("Failed to create document store", zap.Error(err))
	}
	defer func() { _ = store.Close(ctx) }()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Mongo.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Document store not ready", zap.Error(err))
	}
	logger.Info("Connected to document store")

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	// Optional embedding cache. Empty addrs disables it.
	var cache *dbRedis.Store
	if len(cfg.Cache.Addrs) > 0 {
		cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create embedding cache", zap.Error(err))
		}
		defer cache.Close()
		logger.Info("Embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	embedder := buildEmbedder(cfg, cache, logger)

	// Probe the provider once at startup so the first request does not pay
	// for model readiness.
	warmCtx, cancelWarm := context.WithTimeout(ctx, 30*time.Second)
	if err := embedder.base.Warm(warmCtx); err != nil {
		logger.Warn("Embedding provider warmup failed, continuing degraded", zap.Error(err))
	}
	cancelWarm()

	repo := movierepo.New(store.Collection(), cfg.Search.IndexName, cfg.Search.VectorField)

	moviesSvc := moviesuc.New(repo)
	searchSvc := searchuc.New(repo, embedder.failSoft).
		WithBounds(cfg.Search.MaxQueryLength, cfg.Search.MaxLimit)
	backfillSvc := backfilluc.New(repo, embedder.failSoft).
		WithMaxLimit(cfg.Backfill.MaxLimit)
	statsSvc := statsuc.New(repo)
	healthSvc := healthuc.New(store, embedder.base)

	server := chiTransport.NewServer(
		moviesSvc, searchSvc, backfillSvc, statsSvc, healthSvc,
		cfg.Embedding.Model, logger,
	).WithDefaults(cfg.Search.DefaultLimit, cfg.Backfill.DefaultLimit)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
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

// embedderChain holds both ends of the decorator chain: the raw provider for
// warmup and health checks, and the fail-soft outermost embedder for usecases.
type embedderChain struct {
	base     *openaiEmb.Embedder
	failSoft *embeddinguc.FailSoft
}

// cachedProvider routes single embeds through the cache and batch embeds
// straight to the provider. Queries repeat; backfill plots do not.
type cachedProvider struct {
	domain.Embedder
	domain.BatchEmbedder
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> FailSoft
func buildEmbedder(cfg config.Config, cache *dbRedis.Store, logger *zap.Logger) embedderChain {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	var single domain.Embedder = base
	if cache != nil {
		single = embcache.New(base, cache, metrics.EmbeddingCacheTotal, logger)
	}

	failSoft := embeddinguc.NewFailSoft(
		cachedProvider{Embedder: single, BatchEmbedder: base},
		cfg.Embedding.Dimensions,
		logger,
	)

	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cache != nil),
	)

	return embedderChain{base: base, failSoft: failSoft}
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
						"code":    "internal_error",
						"message": "internal error",
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

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
