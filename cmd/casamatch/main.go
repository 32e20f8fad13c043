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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/urbo-labs/casamatch/internal/config"
	"github.com/urbo-labs/casamatch/internal/db"
	dbRedis "github.com/urbo-labs/casamatch/internal/db/redis"
	"github.com/urbo-labs/casamatch/internal/geoindex"
	logpkg "github.com/urbo-labs/casamatch/internal/logger"
	"github.com/urbo-labs/casamatch/internal/metrics"
	"github.com/urbo-labs/casamatch/internal/repository/parsecache"
	propertyrepo "github.com/urbo-labs/casamatch/internal/repository/property"
	"github.com/urbo-labs/casamatch/internal/repository/servicedir"
	"github.com/urbo-labs/casamatch/internal/repository/usagestore"
	chiTransport "github.com/urbo-labs/casamatch/internal/transport/chi"
	openaiParser "github.com/urbo-labs/casamatch/internal/transport/openai"
	extractionuc "github.com/urbo-labs/casamatch/internal/usecase/extraction"
	healthuc "github.com/urbo-labs/casamatch/internal/usecase/health"
	recommenduc "github.com/urbo-labs/casamatch/internal/usecase/recommend"
	usageuc "github.com/urbo-labs/casamatch/internal/usecase/usage"
	"github.com/urbo-labs/casamatch/internal/version"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

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

	logger.Info("Starting casamatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterExtractionMetrics()

	usage := usagestore.New(store)

	// Build the fallback chain — composition root
	fallback, parsers := buildFallback(cfg, store, usage, logger)

	extractSvc := extractionuc.New(fallback, cfg.Region.BoundingBox, logger).
		WithWorkers(cfg.Extraction.Workers).
		WithUsageRecorder(usage)

	propRepo := propertyrepo.New(store)

	points, err := servicedir.Load(cfg.Services.DirectoryPath, logger)
	if err != nil {
		logger.Fatal("Failed to load service directory", zap.Error(err))
	}
	index := geoindex.New(points, cfg.Region.BoundingBox)
	logger.Info("Service index built",
		zap.Int("points", index.Len()),
		zap.Strings("categories", index.Categories()),
	)

	recommendSvc := recommenduc.New(propRepo, index, cfg, logger)
	usageSvc := usageuc.New(usage)

	checkers := make([]healthuc.ParserChecker, len(parsers))
	for i, p := range parsers {
		checkers[i] = p
	}
	healthSvc := healthuc.New(store, checkers...)

	server := chiTransport.NewServer(
		extractSvc, propRepo, propRepo, recommendSvc, usageSvc, healthSvc, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Mount(r)
	r.Handle("/metrics", promhttp.Handler())

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

// buildFallback assembles the provider chain and wraps it in the parse
// cache: OpenAI-compatible providers -> Chain -> Cache. With no providers
// configured, extraction degrades to pattern-only.
func buildFallback(
	cfg config.Config,
	store db.Store,
	usage *usagestore.Store,
	logger *zap.Logger,
) (extractionuc.FallbackParser, []*openaiParser.Parser) {
	chain := extractionuc.NewChain(logger)
	var parsers []*openaiParser.Parser

	for _, pc := range []config.ProviderConfig{cfg.LLM.Primary, cfg.LLM.Secondary} {
		if !pc.Configured() {
			continue
		}
		p := openaiParser.NewParser(&openaiParser.Config{
			APIKey:         pc.APIKey,
			BaseURL:        pc.BaseURL,
			Model:          pc.Model,
			Provider:       pc.Name,
			CostPerCallUSD: pc.CostPerCallUSD,
			Logger:         logger,
		}).WithUsageRecorder(usage)
		chain.Add(p, time.Duration(pc.TimeoutSec)*time.Second)
		parsers = append(parsers, p)
	}

	if chain.Len() == 0 {
		logger.Warn("No fallback providers configured, extraction is pattern-only")
	}
	logger.Info("Fallback chain created", zap.Int("providers", chain.Len()))

	ttl := time.Duration(cfg.LLM.CacheTTLHours) * time.Hour
	return parsecache.New(chain, store, ttl, metrics.ParseCacheTotal, logger).
		WithUsageRecorder(usage), parsers
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

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
