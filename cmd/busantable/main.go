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

	"github.com/busantable/busantable/internal/catalog"
	"github.com/busantable/busantable/internal/config"
	"github.com/busantable/busantable/internal/db"
	dbMemory "github.com/busantable/busantable/internal/db/memory"
	dbRedis "github.com/busantable/busantable/internal/db/redis"
	logpkg "github.com/busantable/busantable/internal/logger"
	"github.com/busantable/busantable/internal/metrics"
	profilerepo "github.com/busantable/busantable/internal/repository/profile"
	sessionrepo "github.com/busantable/busantable/internal/repository/session"
	chiTransport "github.com/busantable/busantable/internal/transport/chi"
	openaiChat "github.com/busantable/busantable/internal/transport/openai"
	"github.com/busantable/busantable/internal/usecase/browse"
	chatuc "github.com/busantable/busantable/internal/usecase/chat"
	"github.com/busantable/busantable/internal/usecase/quality"
	"github.com/busantable/busantable/internal/usecase/recommend"
	"github.com/busantable/busantable/internal/version"
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

	logger.Info("Starting busantable API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("catalog_path", cfg.Catalog.Path),
	)

	// Create the key-value store backing profiles and chat sessions
	var store db.Store
	switch cfg.Database.Driver {
	case "memory":
		store = dbMemory.NewStore()
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Store not ready", zap.Error(err))
	}
	logger.Info("Connected to store")

	// Register chat metrics explicitly (no init())
	metrics.RegisterChatMetrics()

	// Catalog
	fileCatalog := catalog.NewFile(
		cfg.Catalog.Path,
		time.Duration(cfg.Catalog.ReloadSec)*time.Second,
		logger,
	)

	// Repositories
	profileRepo := profilerepo.New(store)
	if cfg.Database.ProfileIdleHours > 0 {
		profileRepo = profileRepo.WithMaxIdle(time.Duration(cfg.Database.ProfileIdleHours) * time.Hour)
	}
	sessionRepo := sessionrepo.New(store)

	// Use case services
	browseSvc := browse.New(fileCatalog)
	recommendSvc := recommend.New(profileRepo)
	qualityEngine := quality.New(quality.Rules{
		IDPrefix:         cfg.Quality.IDPrefix,
		LocalityTokens:   cfg.Quality.LocalityTokens,
		PromoTokens:      cfg.Quality.PromoTokens,
		BannedNameTokens: cfg.Quality.BannedNameTokens,
	})

	completer := openaiChat.NewCompleter(&openaiChat.Config{
		APIKey:  cfg.Chat.APIKey,
		BaseURL: cfg.Chat.BaseURL,
		Model:   cfg.Chat.Model,
		Logger:  logger,
	})
	chatSvc := chatuc.New(browseSvc, recommendSvc, completer, sessionRepo, chatuc.Config{
		Timeout:       time.Duration(cfg.Chat.TimeoutSec) * time.Second,
		MaxCandidates: cfg.Chat.MaxCandidates,
		HistoryLimit:  cfg.Chat.HistoryLimit,
	}, logger)

	// Background profile sweep
	if cfg.Database.ProfileIdleHours > 0 {
		go sweepLoop(ctx, profileRepo, logger)
	}

	server := chiTransport.NewServer(
		browseSvc, recommendSvc, qualityEngine, chatSvc, store, completer, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

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

// sweepLoop periodically drops idle profiles.
func sweepLoop(ctx context.Context, repo *profilerepo.Repo, logger *zap.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.Sweep(ctx)
			if err != nil {
				logger.Warn("profile sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("profile sweep", zap.Int("removed", removed))
			}
		}
	}
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
