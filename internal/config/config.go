package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Environment string
	LogLevel    zerolog.Level
	ListenAddr  string

	// Upstream feeds.
	CatalogBaseURL string
	CatalogPath    string
	ReportsBaseURL string
	UserAgent      string
	HTTPTimeout    time.Duration

	// Ingestion policy.
	FetchCooldown    time.Duration
	FetchWindow      time.Duration
	MaxFetchAttempts int
	ConnectBackoff   time.Duration
	FetchInterval    time.Duration
	HarvestInterval  time.Duration

	// Persistence and caching.
	StationsTable     string
	ObservationsTable string
	MemcachedAddrs    string
	CacheTTL          time.Duration
	CacheLRUSize      int
	SnapshotBucket    string
}

type Option func(*Config)

func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

func WithLogLevel(level string) Option {
	return func(c *Config) {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			parsed = zerolog.InfoLevel
		}
		c.LogLevel = parsed
	}
}

func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

// New creates a configuration with default values.
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment: "production",
		LogLevel:    zerolog.InfoLevel,
		ListenAddr:  ":8080",

		CatalogBaseURL: "https://aviationweather.gov",
		CatalogPath:    "/docs/metar/stations.txt",
		ReportsBaseURL: "https://tgftp.nws.noaa.gov/data/observations/metar/decoded",
		UserAgent:      "metarwatch/1.0",
		HTTPTimeout:    30 * time.Second,

		FetchCooldown:    20 * time.Second,
		FetchWindow:      30 * time.Minute,
		MaxFetchAttempts: 5,
		ConnectBackoff:   5 * time.Second,
		FetchInterval:    30 * time.Minute,
		HarvestInterval:  7 * 24 * time.Hour,

		StationsTable:     "metarwatch-stations",
		ObservationsTable: "metarwatch-observations",
		CacheTTL:          1700 * time.Second,
		CacheLRUSize:      1024,
	}

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// InitializeLogging sets up zerolog based on the configuration.
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	if c.Environment == "local" || c.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}

// LoadFromEnv loads configuration from environment variables, falling back
// to defaults for anything unset.
func LoadFromEnv() *Config {
	cfg := New(
		WithEnvironment(getEnvOrDefault("ENV", "production")),
		WithLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
		WithHTTPTimeout(getDurationEnvOrDefault("HTTP_TIMEOUT", 30*time.Second)),
	)

	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.CatalogBaseURL = getEnvOrDefault("CATALOG_BASE_URL", cfg.CatalogBaseURL)
	cfg.CatalogPath = getEnvOrDefault("CATALOG_PATH", cfg.CatalogPath)
	cfg.ReportsBaseURL = getEnvOrDefault("REPORTS_BASE_URL", cfg.ReportsBaseURL)
	cfg.UserAgent = getEnvOrDefault("USER_AGENT", cfg.UserAgent)

	cfg.FetchCooldown = getDurationEnvOrDefault("FETCH_COOLDOWN", cfg.FetchCooldown)
	cfg.FetchWindow = getDurationEnvOrDefault("FETCH_WINDOW", cfg.FetchWindow)
	cfg.MaxFetchAttempts = getIntEnvOrDefault("MAX_FETCH_ATTEMPTS", cfg.MaxFetchAttempts)
	cfg.ConnectBackoff = getDurationEnvOrDefault("CONNECT_BACKOFF", cfg.ConnectBackoff)
	cfg.FetchInterval = getDurationEnvOrDefault("FETCH_INTERVAL", cfg.FetchInterval)
	cfg.HarvestInterval = getDurationEnvOrDefault("HARVEST_INTERVAL", cfg.HarvestInterval)

	cfg.StationsTable = getEnvOrDefault("STATIONS_TABLE", cfg.StationsTable)
	cfg.ObservationsTable = getEnvOrDefault("OBSERVATIONS_TABLE", cfg.ObservationsTable)
	cfg.MemcachedAddrs = getEnvOrDefault("MEMCACHED_ADDRS", cfg.MemcachedAddrs)
	cfg.CacheTTL = getDurationEnvOrDefault("CACHE_TTL", cfg.CacheTTL)
	cfg.CacheLRUSize = getIntEnvOrDefault("CACHE_LRU_SIZE", cfg.CacheLRUSize)
	cfg.SnapshotBucket = getEnvOrDefault("SNAPSHOT_BUCKET", cfg.SnapshotBucket)

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Warn().Str("key", key).Msg("Invalid duration in environment variable, using default")
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Warn().Str("key", key).Msg("Invalid integer in environment variable, using default")
	}
	return defaultValue
}
