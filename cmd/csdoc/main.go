// Package main is the entry point for the CS-DOC document server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"csdoc/internal/cache"
	"csdoc/internal/catalog"
	"csdoc/internal/category"
	"csdoc/internal/config"
	"csdoc/internal/content"
	"csdoc/internal/database"
	"csdoc/internal/handlers"
	"csdoc/internal/ingest"
	"csdoc/internal/ledger"
	"csdoc/internal/listing"
	"csdoc/internal/middleware"
	"csdoc/internal/router"
	"csdoc/internal/storage"
	"csdoc/internal/store"
)

// Write requests allowed per client IP per minute.
const writeLimit = 120

func main() {
	// Load configuration from environment variables (and .env when present).
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Ensure the fixed category tree exists (idempotent).
	if err := database.SeedCategories(ctx, db); err != nil {
		logger.Error("failed to seed categories", "error", err)
		os.Exit(1)
	}

	bodies, err := content.New(cfg.ContentRoot)
	if err != nil {
		logger.Error("failed to open content root", "dir", cfg.ContentRoot, "error", err)
		os.Exit(1)
	}

	// Connect to S3-compatible object storage (optional; uploads with
	// images or attachments answer 503 without it).
	var (
		objects     ingest.ObjectStore
		attachments catalog.AttachmentRemover
	)
	storageClient, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.S3PublicURL,
	)
	switch {
	case err != nil:
		logger.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	case storageClient != nil:
		objects, attachments = storageClient, storageClient
		logger.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", storageClient.Bucket())
	default:
		logger.Warn("s3 storage not configured, image and attachment uploads disabled")
	}

	// Connect to Valkey for the listing cache (optional).
	var listingCache listing.Cache
	if cfg.ValkeyHost != "" {
		valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, logger)
		if err != nil {
			logger.Warn("valkey unreachable, listing cache disabled", "error", err)
		} else {
			defer valkeyClient.Close()
			lc := cache.NewListingCache(valkeyClient, cfg.ListingTTL, logger)
			lc.Purge(ctx)
			listingCache = lc
		}
	}

	// Initialize data stores and services.
	tx := store.NewTxManager(db)
	categoryStore := store.NewCategoryStore(db)
	postStore := store.NewPostStore(db)
	versionStore := store.NewVersionStore(db)

	tree := category.New(categoryStore, tx, logger, cfg.CascadeDepth)
	docs := catalog.New(postStore, bodies, ledger.New(versionStore), tree, tx, attachments, logger)
	listings := listing.New(postStore, tree, versionStore, listingCache, logger)
	ingester := ingest.New(objects, logger)

	limiter := middleware.NewRateLimiter(writeLimit, time.Minute)
	defer limiter.Stop()

	r := router.New(router.Deps{
		Logger:      logger,
		Categories:  handlers.NewCategories(tree, listings, logger),
		Posts:       handlers.NewPosts(docs, listings, ingester, logger),
		Uploads:     handlers.NewUploads(ingester, logger),
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
	})

	// WriteTimeout must cover multipart uploads of large attachments.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		logger.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// newLogger outputs text at debug level in development and JSON at info
// level elsewhere.
func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsDev() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
