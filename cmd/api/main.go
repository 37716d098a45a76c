// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/educhat/internal/app"
	"github.com/capitalize-ai/educhat/internal/config"
	"github.com/capitalize-ai/educhat/internal/handler"
	"github.com/capitalize-ai/educhat/internal/middleware"
	"github.com/capitalize-ai/educhat/pkg/logger"
	"github.com/capitalize-ai/educhat/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var log *logger.Logger
	var err error
	if cfg.IsDevelopment() {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New(cfg.LogLevel)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "educhat", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Wire the tutor and its backends
	startCtx, cancelStart := context.WithTimeout(ctx, 30*time.Second)
	application, err := app.New(startCtx, cfg, log)
	cancelStart()
	if err != nil {
		log.Error("failed to initialize application", zap.Error(err))
		os.Exit(1)
	}
	defer application.Close()

	if n, err := application.Index.Count(); err != nil {
		log.Warn("course index unavailable", zap.String("dir", cfg.IndexDir), zap.Error(err))
	} else {
		log.Info("course index loaded", zap.Int("chunks", n))
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      newRouter(cfg, application, log),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func newRouter(cfg *config.Config, application *app.App, log *logger.Logger) http.Handler {
	healthHandler := handler.NewHealthHandler(application.Checks())
	chatHandler := handler.NewChatHandler(application.Chat, application.Interactions(), log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Browser page and its chat endpoint
	r.Get("/", handler.Index)
	r.With(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).Post("/chat", chatHandler.Chat)

	// API routes, authenticated when a JWT secret is configured
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(middleware.Auth(cfg.JWTSecret))
		}
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat", chatHandler.Chat)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", chatHandler.Session)
			r.Get("/interactions", chatHandler.Interactions)
		})
	})

	return r
}
