package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Concierge/internal/scoring"
)

const (
	DriverMemory    = "memory"
	DriverPostgres  = "postgres"
	DriverDirectory = "directory"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Repository RepositoryConfig `yaml:"repository"`
	Hermes     HermesConfig     `yaml:"hermes"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port        int `yaml:"port"`
	MetricsPort int `yaml:"metrics_port"`
}

type RepositoryConfig struct {
	Driver       string        `yaml:"driver"` // memory, postgres or directory
	SeedFile     string        `yaml:"seed_file"`
	DatabaseURL  string        `yaml:"database_url"`
	DirectoryURL string        `yaml:"directory_url"`
	TimeoutMs    int           `yaml:"timeout_ms"`
	CacheSize    int           `yaml:"cache_size"` // 0 disables the cache
	CacheTTLMs   int           `yaml:"cache_ttl_ms"`
	Breaker      BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	MaxFailures      int `yaml:"max_failures"`
	OpenTimeoutMs    int `yaml:"open_timeout_ms"`
	HalfOpenRequests int `yaml:"half_open_requests"`
}

// HermesConfig configures the message bus. An empty URL disables it.
type HermesConfig struct {
	URL              string `yaml:"url"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms"`
}

type ScoringConfig struct {
	Weights            map[string]float64 `yaml:"weights"`
	Concurrency        int                `yaml:"concurrency"`
	ProximityHorizonKm float64            `yaml:"proximity_horizon_km"`
}

type APIConfig struct {
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"` // 0 disables rate limiting
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) RepositoryTimeout() time.Duration {
	return time.Duration(c.Repository.TimeoutMs) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Repository.CacheTTLMs) * time.Millisecond
}

func (c *Config) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.Repository.Breaker.OpenTimeoutMs) * time.Millisecond
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Hermes.RequestTimeoutMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Repository: RepositoryConfig{
			Driver:     DriverMemory,
			TimeoutMs:  3000,
			CacheSize:  128,
			CacheTTLMs: 60000,
			Breaker: BreakerConfig{
				MaxFailures:      5,
				OpenTimeoutMs:    30000,
				HalfOpenRequests: 1,
			},
		},
		Hermes: HermesConfig{
			RequestTimeoutMs: 30000,
		},
		Scoring: ScoringConfig{
			Weights:            map[string]float64(scoring.DefaultWeights()),
			Concurrency:        4,
			ProximityHorizonKm: 5,
		},
		API: APIConfig{
			RateLimitPerMinute: 120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// a weights map in the file replaces the defaults rather than merging
		var overrides struct {
			Scoring struct {
				Weights map[string]float64 `yaml:"weights"`
			} `yaml:"scoring"`
		}
		if err := yaml.Unmarshal(data, &overrides); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if overrides.Scoring.Weights != nil {
			cfg.Scoring.Weights = nil
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail at first use.
// Weight names and sums are checked against the criteria registry at startup.
func (c *Config) Validate() error {
	switch c.Repository.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Repository.DatabaseURL == "" {
			return fmt.Errorf("repository.database_url is required for the postgres driver")
		}
	case DriverDirectory:
		if c.Repository.DirectoryURL == "" {
			return fmt.Errorf("repository.directory_url is required for the directory driver")
		}
	default:
		return fmt.Errorf("unknown repository driver %q", c.Repository.Driver)
	}
	if c.Repository.TimeoutMs <= 0 {
		return fmt.Errorf("repository.timeout_ms must be positive")
	}
	if c.Repository.CacheSize < 0 {
		return fmt.Errorf("repository.cache_size must not be negative")
	}
	if c.Scoring.Concurrency < 1 {
		return fmt.Errorf("scoring.concurrency must be at least 1")
	}
	if c.Scoring.ProximityHorizonKm <= 0 {
		return fmt.Errorf("scoring.proximity_horizon_km must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CONCIERGE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("CONCIERGE_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("CONCIERGE_REPOSITORY_DRIVER"); v != "" {
		cfg.Repository.Driver = v
	}
	if v := os.Getenv("CONCIERGE_SEED_FILE"); v != "" {
		cfg.Repository.SeedFile = v
	}
	if v := os.Getenv("CONCIERGE_DATABASE_URL"); v != "" {
		cfg.Repository.DatabaseURL = v
	}
	if v := os.Getenv("CONCIERGE_DIRECTORY_URL"); v != "" {
		cfg.Repository.DirectoryURL = v
	}
	if v := os.Getenv("CONCIERGE_REPOSITORY_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Repository.TimeoutMs = n
		}
	}
	if v := os.Getenv("CONCIERGE_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Repository.CacheSize = n
		}
	}
	if v := os.Getenv("CONCIERGE_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("CONCIERGE_SCORING_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scoring.Concurrency = n
		}
	}
	if v := os.Getenv("CONCIERGE_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("CONCIERGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CONCIERGE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
