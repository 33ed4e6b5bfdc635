// Package main is the entry point for the gallery server.
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

	"galleryd/internal/cache"
	"galleryd/internal/config"
	"galleryd/internal/database"
	"galleryd/internal/gallery"
	"galleryd/internal/handlers"
	"galleryd/internal/middleware"
	"galleryd/internal/router"
	"galleryd/internal/session"
	"galleryd/internal/store"
)

func main() {
	// Structured logger — text output, debug level everywhere for now.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"gallery_root", cfg.GalleryRoot,
		"cache_ttl", cfg.CacheTTL,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to Redis (route cache, sessions, view counters).
	redisClient, err := cache.ConnectRedis(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Read-only session store — sessions are created by the auth service.
	sessionStore := session.NewStore(redisClient)

	// Open the media library.
	library, err := gallery.NewLibrary(cfg.GalleryRoot)
	if err != nil {
		slog.Error("failed to open gallery root", "error", err)
		os.Exit(1)
	}
	views := gallery.NewViews(redisClient)
	thumbs := gallery.NewThumbnailer(library, cfg.ThumbMaxEdge)

	// Data stores.
	purgeLogStore := store.NewPurgeLogStore(db)
	settingsStore := store.NewSettingsStore(db)

	// Route cache over Redis, partitioned by the session identity.
	backend := cache.NewRedisBackend(redisClient)
	cacheState := cache.NewState(backend, cfg.CacheTTL, middleware.UserIDFromRequest)
	cacheState.Start()
	defer cacheState.Stop()

	// Handler groups.
	api := handlers.NewAPI(library, views, thumbs, cacheState, settingsStore, purgeLogStore)
	admin := handlers.NewAdmin(cacheState, purgeLogStore)

	// Set up the Chi router with all middleware and routes.
	r := router.New(sessionStore, cacheState, api, admin)

	// Create the HTTP server with sensible timeouts. WriteTimeout must
	// accommodate thumbnail rendering of large originals.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
