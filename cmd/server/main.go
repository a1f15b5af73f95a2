package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/joho/godotenv/autoload"

	"github.com/btcprophets/leaderboard/internal/api"
	"github.com/btcprophets/leaderboard/internal/config"
	"github.com/btcprophets/leaderboard/internal/logging"
	"github.com/btcprophets/leaderboard/internal/metrics"
	"github.com/btcprophets/leaderboard/internal/roi"
	"github.com/btcprophets/leaderboard/internal/store"
)

func main() {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		bootstrap.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, "prophets-leaderboard", cfg.Log)
	if err != nil {
		bootstrap.Error("failed to initialize logger", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// --- Initialize ledger source ---
	openCtx, cancelOpen := context.WithTimeout(context.Background(), 15*time.Second)
	src, release, err := store.Open(openCtx, store.Options{
		DatabaseURL:      cfg.DatabaseURL,
		StatementTimeout: cfg.StatementTimeout,
		SQLitePath:       cfg.SQLitePath,
		RedisURL:         cfg.RedisURL,
		CacheTTL:         cfg.DirectoryCacheTTL,
	}, logger)
	cancelOpen()
	if err != nil {
		release()
		logger.Error("ledger source unavailable", "err", err)
		os.Exit(1)
	}
	defer release()

	// --- Leaderboard engine ---
	policy := roi.KeywordPolicy{
		TitleTerms:       cfg.TitleTerms,
		DescriptionTerms: cfg.DescriptionTerms,
	}
	engine := roi.NewEngine(src, policy, logger)
	svc := api.NewService(engine, src, logger)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(metrics.Middleware)
	r.Use(api.CORS(cfg.AllowedOrigins))

	r.Get("/health", svc.Health)

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", svc.DataSourceHealth)
		r.Get("/leaderboard", svc.GetLeaderboard)
		r.Get("/leaderboard/report", svc.GetReport)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("leaderboard listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down leaderboard...")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	fmt.Println("leaderboard stopped")
}
