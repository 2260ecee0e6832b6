package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/Concierge/internal/agent"
	"github.com/MikeSquared-Agency/Concierge/internal/api"
	"github.com/MikeSquared-Agency/Concierge/internal/config"
	"github.com/MikeSquared-Agency/Concierge/internal/directory"
	"github.com/MikeSquared-Agency/Concierge/internal/engine"
	"github.com/MikeSquared-Agency/Concierge/internal/hermes"
	"github.com/MikeSquared-Agency/Concierge/internal/scoring"
	"github.com/MikeSquared-Agency/Concierge/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	queryText := flag.String("query", "", "answer one free-text query on stdout and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = newLogger(cfg.Logging, *queryText != "")
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repository
	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open repository", "driver", cfg.Repository.Driver, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	// Scoring
	registry, err := scoring.StandardRegistry(cfg.Scoring.ProximityHorizonKm).WithDefaults(scoring.WeightSet(cfg.Scoring.Weights))
	if err != nil {
		logger.Error("invalid scoring weights", "error", err)
		os.Exit(1)
	}
	scorer := scoring.NewScorer(registry, logger)
	eng := engine.New(repo, scorer, logger, engine.WithConcurrency(cfg.Scoring.Concurrency))
	logger.Info("scoring configured", "weights", registry.DefaultWeights().String(), "concurrency", cfg.Scoring.Concurrency)

	if *queryText != "" {
		code := runOnce(ctx, agent.New(eng, logger), *queryText)
		closeRepo()
		os.Exit(code)
	}

	// Hermes (optional)
	opts := []agent.Option{agent.WithRequestTimeout(cfg.RequestTimeout())}
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			defer hc.Close()
			opts = append(opts, agent.WithHermes(hc))
			logger.Info("connected to hermes")
		}
	}

	a := agent.New(eng, logger, opts...)
	if err := a.SetupSubscriptions(); err != nil {
		logger.Error("failed to subscribe to recommend requests", "error", err)
		os.Exit(1)
	}

	// API server
	router := api.NewRouter(a, cfg.API.RateLimitPerMinute, logger)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// in-flight requests finish before the repository closes
	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	cancel()

	logger.Info("shutdown complete")
}

func newLogger(cfg config.LoggingConfig, oneShot bool) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	out := os.Stdout
	if oneShot {
		// stdout carries the answer
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

// openRepository builds the configured repository. Remote repositories are
// cached; every repository is guarded by a timeout and circuit breaker.
func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Repository, func(), error) {
	var (
		repo    store.Repository
		cleanup = func() {}
	)
	switch cfg.Repository.Driver {
	case config.DriverMemory:
		mem, err := store.NewMemoryRepositoryFromFile(cfg.Repository.SeedFile)
		if err != nil {
			return nil, nil, err
		}
		repo = mem
		logger.Info("using in-memory repository", "seed_file", cfg.Repository.SeedFile)
	case config.DriverPostgres:
		db, err := store.NewPostgresRepository(ctx, cfg.Repository.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		repo = db
		cleanup = func() { db.Close() }
		logger.Info("connected to database")
	case config.DriverDirectory:
		repo = directory.NewHTTPClient(cfg.Repository.DirectoryURL, logger)
		logger.Info("using restaurant directory", "url", cfg.Repository.DirectoryURL)
	default:
		return nil, nil, fmt.Errorf("unknown repository driver %q", cfg.Repository.Driver)
	}

	if cfg.Repository.Driver != config.DriverMemory && cfg.Repository.CacheSize > 0 {
		repo = store.NewCache(repo, cfg.Repository.CacheSize, cfg.CacheTTL())
	}
	b := cfg.Repository.Breaker
	repo = store.NewGuard(cfg.Repository.Driver, repo, cfg.RepositoryTimeout(), store.BreakerSettings{
		MaxFailures:      uint32(b.MaxFailures),
		OpenTimeout:      cfg.BreakerOpenTimeout(),
		HalfOpenRequests: uint32(b.HalfOpenRequests),
	}, logger)
	return repo, cleanup, nil
}

func runOnce(ctx context.Context, a *agent.Agent, text string) int {
	rec, err := a.RecommendText(ctx, text)
	if err != nil {
		reason, _ := agent.Classify(err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", reason, err)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		return 1
	}
	return 0
}
