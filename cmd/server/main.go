// Nahw Station - Arabic Grammar Adventure Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/itqan/nahw-station/internal/api"
	"github.com/itqan/nahw-station/internal/catalog"
	"github.com/itqan/nahw-station/internal/config"
	"github.com/itqan/nahw-station/internal/identity"
	"github.com/itqan/nahw-station/internal/media"
	"github.com/itqan/nahw-station/internal/middleware"
	"github.com/itqan/nahw-station/internal/remote"
	"github.com/itqan/nahw-station/internal/session"
	"github.com/itqan/nahw-station/internal/store"
	"github.com/itqan/nahw-station/internal/syncer"
	"github.com/itqan/nahw-station/web"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	cat, err := catalog.New()
	if err != nil {
		slog.Error("Failed to load station catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Station catalog loaded")

	remoteClient := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	if remoteClient.Configured() {
		slog.Info("Remote score store configured", "base_url", cfg.Remote.BaseURL)
	} else {
		slog.Info("Remote score store not configured, running local-only")
	}

	gateway := syncer.New(remoteClient, repo)
	sessions := session.NewManager(cat, gateway, cfg.SessionTTL)

	mediaClient := media.NewClient(cfg.MediaURL, 30*time.Second)
	if mediaClient.Enabled() {
		slog.Info("Media service configured", "url", cfg.MediaURL)
	} else {
		slog.Info("Media service not configured, narration and illustrations disabled")
	}

	// Initialize handlers.
	baseHandler := api.NewHandler(sessions, mediaClient, cfg.IsDevelopment())
	gameHandler := api.NewGameHandler(baseHandler)
	mediaHandler := api.NewMediaHandler(baseHandler)
	eventsHandler := api.NewEventsHandler(baseHandler, cfg.FrontendURL)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware())

	gameHandler.RegisterRoutes(r)
	mediaHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/events", eventsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout, event stream connections stay open
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions.StartSweeper(ctx)
	slog.Info("Session sweeper started", "session_ttl", cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	// Closing sessions flushes each player's final save.
	sessions.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
