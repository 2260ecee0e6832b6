package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/Concierge/internal/scoring"
)

var envVars = []string{
	"CONCIERGE_PORT", "CONCIERGE_METRICS_PORT", "CONCIERGE_REPOSITORY_DRIVER",
	"CONCIERGE_SEED_FILE", "CONCIERGE_DATABASE_URL", "CONCIERGE_DIRECTORY_URL",
	"CONCIERGE_REPOSITORY_TIMEOUT_MS", "CONCIERGE_CACHE_SIZE", "CONCIERGE_HERMES_URL",
	"CONCIERGE_SCORING_CONCURRENCY", "CONCIERGE_RATE_LIMIT_PER_MINUTE",
	"CONCIERGE_LOG_LEVEL", "CONCIERGE_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "concierge.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Repository.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %s", cfg.Repository.Driver)
	}
	if cfg.Repository.CacheSize != 128 {
		t.Errorf("expected cache size 128, got %d", cfg.Repository.CacheSize)
	}
	if cfg.Repository.Breaker.MaxFailures != 5 {
		t.Errorf("expected breaker max failures 5, got %d", cfg.Repository.Breaker.MaxFailures)
	}
	if cfg.Hermes.URL != "" {
		t.Errorf("expected hermes disabled by default, got %s", cfg.Hermes.URL)
	}
	if cfg.Scoring.Concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", cfg.Scoring.Concurrency)
	}
	if cfg.API.RateLimitPerMinute != 120 {
		t.Errorf("expected rate limit 120, got %d", cfg.API.RateLimitPerMinute)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json', got '%s'", cfg.Logging.Format)
	}

	// Scoring defaults
	expectedWeights := scoring.DefaultWeights()
	if len(cfg.Scoring.Weights) != len(expectedWeights) {
		t.Errorf("expected %d scoring weights, got %d", len(expectedWeights), len(cfg.Scoring.Weights))
	}
	var weightSum float64
	for name, expected := range expectedWeights {
		actual := cfg.Scoring.Weights[name]
		if math.Abs(actual-expected) > 0.001 {
			t.Errorf("scoring weight %s: expected %f, got %f", name, expected, actual)
		}
		weightSum += actual
	}
	if math.Abs(weightSum-1.0) > 0.001 {
		t.Errorf("scoring weights sum to %f, expected 1.0", weightSum)
	}

	// Duration helpers
	if cfg.RepositoryTimeout() != 3*time.Second {
		t.Errorf("expected RepositoryTimeout 3s, got %v", cfg.RepositoryTimeout())
	}
	if cfg.CacheTTL() != time.Minute {
		t.Errorf("expected CacheTTL 1m, got %v", cfg.CacheTTL())
	}
	if cfg.BreakerOpenTimeout() != 30*time.Second {
		t.Errorf("expected BreakerOpenTimeout 30s, got %v", cfg.BreakerOpenTimeout())
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("expected RequestTimeout 30s, got %v", cfg.RequestTimeout())
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONCIERGE_PORT", "9000")
	t.Setenv("CONCIERGE_METRICS_PORT", "9001")
	t.Setenv("CONCIERGE_REPOSITORY_DRIVER", "postgres")
	t.Setenv("CONCIERGE_DATABASE_URL", "postgres://localhost/concierge_test")
	t.Setenv("CONCIERGE_REPOSITORY_TIMEOUT_MS", "1500")
	t.Setenv("CONCIERGE_CACHE_SIZE", "0")
	t.Setenv("CONCIERGE_HERMES_URL", "nats://nats:4222")
	t.Setenv("CONCIERGE_SCORING_CONCURRENCY", "8")
	t.Setenv("CONCIERGE_RATE_LIMIT_PER_MINUTE", "notanumber")
	t.Setenv("CONCIERGE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9001 {
		t.Errorf("expected metrics port 9001, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Repository.Driver != DriverPostgres {
		t.Errorf("expected postgres driver, got '%s'", cfg.Repository.Driver)
	}
	if cfg.Repository.DatabaseURL != "postgres://localhost/concierge_test" {
		t.Errorf("expected database URL, got '%s'", cfg.Repository.DatabaseURL)
	}
	if cfg.RepositoryTimeout() != 1500*time.Millisecond {
		t.Errorf("expected timeout 1.5s, got %v", cfg.RepositoryTimeout())
	}
	if cfg.Repository.CacheSize != 0 {
		t.Errorf("expected cache disabled, got %d", cfg.Repository.CacheSize)
	}
	if cfg.Hermes.URL != "nats://nats:4222" {
		t.Errorf("expected hermes URL, got '%s'", cfg.Hermes.URL)
	}
	if cfg.Scoring.Concurrency != 8 {
		t.Errorf("expected concurrency 8, got %d", cfg.Scoring.Concurrency)
	}
	if cfg.API.RateLimitPerMinute != 120 {
		t.Errorf("expected malformed rate limit to be ignored, got %d", cfg.API.RateLimitPerMinute)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 8800
repository:
  driver: directory
  directory_url: http://directory:8080
  breaker:
    max_failures: 2
scoring:
  weights:
    rating: 0.5
    proximity: 0.5
logging:
  format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8800 {
		t.Errorf("expected port 8800, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected default metrics port to survive, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Repository.DirectoryURL != "http://directory:8080" {
		t.Errorf("expected directory URL, got '%s'", cfg.Repository.DirectoryURL)
	}
	if cfg.Repository.Breaker.MaxFailures != 2 {
		t.Errorf("expected max failures 2, got %d", cfg.Repository.Breaker.MaxFailures)
	}
	if cfg.Repository.Breaker.OpenTimeoutMs != 30000 {
		t.Errorf("expected default open timeout, got %d", cfg.Repository.Breaker.OpenTimeoutMs)
	}
	if len(cfg.Scoring.Weights) != 2 {
		t.Errorf("expected file weights to replace defaults, got %v", cfg.Scoring.Weights)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected text format, got '%s'", cfg.Logging.Format)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server:\n  port: 8800\n")
	t.Setenv("CONCIERGE_PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected env to win, got %d", cfg.Server.Port)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown driver", "repository:\n  driver: redis\n", "unknown repository driver"},
		{"postgres without url", "repository:\n  driver: postgres\n", "database_url"},
		{"directory without url", "repository:\n  driver: directory\n", "directory_url"},
		{"zero concurrency", "scoring:\n  concurrency: 0\n", "concurrency"},
		{"negative cache", "repository:\n  cache_size: -1\n", "cache_size"},
		{"bad yaml", "server: [", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultWeightsAreACopy(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Scoring.Weights["rating"] = 0.9
	if scoring.DefaultWeights()["rating"] == 0.9 {
		t.Error("mutating loaded weights changed the scoring defaults")
	}
	again, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Scoring.Weights["rating"] == 0.9 {
		t.Error("mutating loaded weights leaked into the next Load")
	}
}
