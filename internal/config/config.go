package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Link strategy names accepted in LINK_STRATEGIES.
const (
	StrategyInternal = "internal"
	StrategyRaw      = "raw"
)

var pageSizes = []string{"A3", "A4", "A5", "Letter", "Legal"}

type Config struct {
	// Build inputs and outputs
	ManifestPath string
	OutputPath   string
	CacheDir     string

	// Retrieval
	FetchTimeout     time.Duration
	FetchRetries     int
	FetchConcurrency int
	UserAgent        string

	// Index layout
	PageSize     string
	IndexMargin  float64
	IndexHeading string

	// Ordered link strategies
	LinkStrategies []string

	// Serve mode
	Port           string
	BinderAPIKey   string
	JobTTL         time.Duration
	BuildRateLimit int

	// Logging
	LogFormat string
	LogLevel  string
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		ManifestPath: envOr("MANIFEST_PATH", "README.md"),
		OutputPath:   envOr("OUTPUT_PATH", "pdfs/master.pdf"),
		CacheDir:     envOr("CACHE_DIR", ".cache"),

		FetchTimeout:     envDuration("FETCH_TIMEOUT", 60*time.Second),
		FetchRetries:     envInt("FETCH_RETRIES", 3),
		FetchConcurrency: envInt("FETCH_CONCURRENCY", 4),
		UserAgent:        envOr("USER_AGENT", "binder/1.0"),

		PageSize:     envOr("PAGE_SIZE", "A4"),
		IndexMargin:  envFloat("INDEX_MARGIN", 72),
		IndexHeading: envOr("INDEX_HEADING", "Index"),

		LinkStrategies: envList("LINK_STRATEGIES", []string{StrategyInternal, StrategyRaw}),

		Port:           envOr("PORT", "8090"),
		BinderAPIKey:   os.Getenv("BINDER_API_KEY"),
		JobTTL:         envDuration("JOB_TTL", 1*time.Hour),
		BuildRateLimit: envInt("BUILD_RATE_LIMIT", 6),

		LogFormat: envOr("LOG_FORMAT", "json"),
		LogLevel:  envOr("LOG_LEVEL", "info"),
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 60 * time.Second
	}
	if cfg.FetchRetries < 0 {
		cfg.FetchRetries = 3
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 4
	}
	if cfg.IndexMargin <= 0 {
		cfg.IndexMargin = 72
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.BuildRateLimit <= 0 {
		cfg.BuildRateLimit = 6
	}

	return cfg
}

func (c Config) Validate() error {
	if c.ManifestPath == "" {
		return fmt.Errorf("MANIFEST_PATH is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("OUTPUT_PATH is required")
	}
	if !slices.Contains(pageSizes, c.PageSize) {
		return fmt.Errorf("PAGE_SIZE %q is not one of %s", c.PageSize, strings.Join(pageSizes, ", "))
	}
	if len(c.LinkStrategies) == 0 {
		return fmt.Errorf("LINK_STRATEGIES must name at least one strategy")
	}
	seen := map[string]bool{}
	for _, s := range c.LinkStrategies {
		if s != StrategyInternal && s != StrategyRaw {
			return fmt.Errorf("unknown link strategy %q", s)
		}
		if seen[s] {
			return fmt.Errorf("link strategy %q listed twice", s)
		}
		seen[s] = true
	}
	// Internal links are placed before rendering, raw ones after.
	if seen[StrategyRaw] && seen[StrategyInternal] && c.LinkStrategies[0] != StrategyInternal {
		return fmt.Errorf("link strategy %q must come before %q", StrategyInternal, StrategyRaw)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
