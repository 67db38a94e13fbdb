package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/drcartoon/cartoonbox/internal/auth"
	"github.com/drcartoon/cartoonbox/internal/cache"
	"github.com/drcartoon/cartoonbox/internal/catalog"
	"github.com/drcartoon/cartoonbox/internal/config"
	"github.com/drcartoon/cartoonbox/internal/database"
	"github.com/drcartoon/cartoonbox/internal/docstore"
	"github.com/drcartoon/cartoonbox/internal/library"
	"github.com/drcartoon/cartoonbox/internal/logging"
	"github.com/drcartoon/cartoonbox/internal/metrics"
	"github.com/drcartoon/cartoonbox/internal/middleware"
	"github.com/drcartoon/cartoonbox/internal/storage"
	"github.com/drcartoon/cartoonbox/internal/tracing"
)

// API bundles the collaborators the HTTP handlers need.
type API struct {
	service  *library.Service
	store    library.Store
	catalog  *catalog.Client
	resolver *auth.Resolver
	archiver *storage.Archiver
	log      *logging.Logger
	authCfg  config.AuthConfig
}

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	// Initialize tracing
	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize tracer")
		}
		defer closer.Close()
	}

	// Pick the library store backend
	store, cleanup, err := newStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize library store")
	}
	defer cleanup()

	service := library.NewService(store, logger, cfg.Library.HistoryLimit)

	// Catalog cache is optional: a missing Redis only costs cache hits.
	var catalogCache *cache.Cache
	catalogCache, err = cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Catalog.CacheTTL)
	if err != nil {
		logger.WithError(err).Warn("Catalog cache unavailable, fetching uncached")
		catalogCache = nil
	} else {
		defer catalogCache.Close()
	}

	catalogClient := catalog.NewClient(catalog.Options{
		BaseURL:    cfg.Catalog.BaseURL,
		Collection: cfg.Catalog.Collection,
		Rows:       cfg.Catalog.Rows,
		Timeout:    cfg.Catalog.Timeout,
		Cache:      catalogCache,
	}, logger)

	resolver := auth.NewResolver(cfg.Auth)

	// Export archival is optional
	var archiver *storage.Archiver
	if cfg.Storage.Enabled {
		archiver, err = storage.New(cfg.Storage)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize export storage")
		}
	}

	api := &API{
		service:  service,
		store:    store,
		catalog:  catalogClient,
		resolver: resolver,
		archiver: archiver,
		log:      logger,
		authCfg:  cfg.Auth,
	}

	// Start metrics server
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		go func() {
			logger.Infof("Starting metrics server on :%d", cfg.Metrics.Port)
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("Metrics server failed")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			metricsServer.Shutdown(ctx)
		}()
	}

	router := setupRouter(api, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.WithBackend(cfg.Library.Backend).Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// newStore builds the configured store backend. The returned cleanup is
// always safe to call.
func newStore(cfg *config.Config, logger *logging.Logger) (library.Store, func(), error) {
	switch cfg.Library.Backend {
	case "postgres":
		db, err := database.New(cfg.Database)
		if err != nil {
			return nil, func() {}, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, func() {}, fmt.Errorf("failed to ensure schema: %w", err)
		}
		return database.NewRepository(db), db.Close, nil

	case "redis":
		store, err := docstore.New(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, func() {}, fmt.Errorf("failed to connect to document store: %w", err)
		}
		return store, func() { store.Close() }, nil

	case "memory":
		logger.Warn("Using in-memory store, data will not survive restarts")
		return library.NewMemoryStore(), func() {}, nil

	default:
		return nil, func() {}, fmt.Errorf("unknown library backend %q", cfg.Library.Backend)
	}
}
