package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 20*time.Second, cfg.FetchCooldown)
	assert.Equal(t, 30*time.Minute, cfg.FetchWindow)
	assert.Equal(t, 5, cfg.MaxFetchAttempts)
	assert.Equal(t, 5*time.Second, cfg.ConnectBackoff)
	assert.Equal(t, 1700*time.Second, cfg.CacheTTL)
	assert.Equal(t, "https://tgftp.nws.noaa.gov/data/observations/metar/decoded", cfg.ReportsBaseURL)
}

func TestNewWithOptions(t *testing.T) {
	cfg := New(
		WithEnvironment("local"),
		WithLogLevel("debug"),
		WithHTTPTimeout(3*time.Second),
	)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
}

func TestWithLogLevelInvalidFallsBack(t *testing.T) {
	cfg := New(WithLogLevel("shouting"))
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("FETCH_COOLDOWN", "2s")
	t.Setenv("MAX_FETCH_ATTEMPTS", "7")
	t.Setenv("MEMCACHED_ADDRS", "cache1:11211,cache2:11211")
	t.Setenv("CACHE_TTL", "10m")

	cfg := LoadFromEnv()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, zerolog.WarnLevel, cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.FetchCooldown)
	assert.Equal(t, 7, cfg.MaxFetchAttempts)
	assert.Equal(t, "cache1:11211,cache2:11211", cfg.MemcachedAddrs)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
}

func TestLoadFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("FETCH_COOLDOWN", "soon")
	t.Setenv("MAX_FETCH_ATTEMPTS", "many")

	cfg := LoadFromEnv()

	assert.Equal(t, 20*time.Second, cfg.FetchCooldown)
	assert.Equal(t, 5, cfg.MaxFetchAttempts)
}
