package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/yatube/internal/cache"
	"github.com/anonto42/yatube/internal/logger"
	"github.com/anonto42/yatube/internal/media"
	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/router"
	"github.com/anonto42/yatube/pkg/config"
	"github.com/anonto42/yatube/pkg/firebase"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if _, err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Error("failed to initialize databases", zap.Error(err))
		os.Exit(1)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	if err := config.Migrate(db.SQL); err != nil {
		logger.Error("failed to migrate schema", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("schema migrations completed")

	deps := router.Deps{
		DB:             db.SQL,
		Sessions:       middleware.NewSessions(cfg.JWTSecret, cfg.SessionTTL, cfg.IsProduction()),
		SecureCookies:  cfg.IsProduction(),
		PageCache:      pageCache(cfg, db),
		CacheTTL:       cfg.CacheTTL,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
		AuthLimiter:    middleware.NewRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRatePerMinute),
	}
	defer deps.AuthLimiter.Stop()

	deps.Media, err = mediaStore(cfg, db)
	if err != nil {
		logger.Error("failed to initialize media store", zap.Error(err))
		os.Exit(1)
	}

	// Firebase sign-in is optional
	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
		if err != nil {
			logger.Error("failed to initialize firebase", zap.Error(err))
			os.Exit(1)
		}
		deps.Firebase = app
	}

	e, err := router.New(deps)
	if err != nil {
		logger.Error("failed to build router", zap.Error(err))
		os.Exit(1)
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

func pageCache(cfg *config.Config, db *config.DB) cache.Store {
	switch {
	case cfg.CacheDisabled:
		logger.Info("page cache disabled")
		return cache.NoopStore{}
	case db.Redis != nil:
		logger.Info("page cache backed by redis")
		return cache.NewRedisStore(db.Redis, "yatube:")
	default:
		logger.Info("page cache backed by in-process lru", zap.Int("size", cfg.CacheSize))
		return cache.NewLRUStore(cfg.CacheSize, cfg.CacheTTL)
	}
}

func mediaStore(cfg *config.Config, db *config.DB) (media.Store, error) {
	if db.Mongo != nil {
		logger.Info("media stored in gridfs", zap.String("database", cfg.MongoDatabase))
		return media.NewGridFSStore(db.Mongo.Database(cfg.MongoDatabase))
	}
	logger.Info("media stored on disk", zap.String("root", cfg.MediaRoot))
	return media.NewDiskStore(cfg.MediaRoot)
}
