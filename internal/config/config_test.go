package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults tests that a missing file yields defaults.
func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://booth.pm", cfg.Scraping.BaseURL)
	assert.Equal(t, 20, cfg.Scraping.RequestsPerMinute)
	assert.Equal(t, 3, cfg.Scraping.BurstLimit)
	assert.Equal(t, time.Hour, cfg.Cache.ResultTTL)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 3, cfg.Search.MinResults)
	assert.Equal(t, 3, cfg.Search.MaxAttempts)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

// TestLoad_FileAndEnv tests file values and env overrides.
func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scraping:
  requests_per_minute: 30
  user_agents:
    - test-agent
cache:
  backend: redis
  result_ttl: 2h
search:
  allow_multi: true
`), 0o600))

	t.Setenv("APP_CACHE_BACKEND", "postgres")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Scraping.RequestsPerMinute)
	assert.Equal(t, []string{"test-agent"}, cfg.Scraping.UserAgents)
	assert.Equal(t, 2*time.Hour, cfg.Cache.ResultTTL)
	assert.Equal(t, "postgres", cfg.Cache.Backend)
	assert.True(t, cfg.Database.Enabled)
	assert.True(t, cfg.Search.AllowMulti)
}

// TestLoad_InvalidFile tests that a malformed file is an error.
func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

// TestNormalize tests bounds correction.
func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		check  func(t *testing.T, c *Config)
	}{
		{
			name:   "ttl below minimum",
			mutate: func(c *Config) { c.Cache.ResultTTL = time.Second },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, time.Minute, c.Cache.ResultTTL) },
		},
		{
			name:   "ttl above maximum",
			mutate: func(c *Config) { c.Cache.ResultTTL = 48 * time.Hour },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, 24*time.Hour, c.Cache.ResultTTL) },
		},
		{
			name:   "rpm clamped",
			mutate: func(c *Config) { c.Scraping.RequestsPerMinute = 500 },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, 120, c.Scraping.RequestsPerMinute) },
		},
		{
			name: "burst bounded by rpm",
			mutate: func(c *Config) {
				c.Scraping.RequestsPerMinute = 5
				c.Scraping.BurstLimit = 50
			},
			check: func(t *testing.T, c *Config) { assert.Equal(t, 5, c.Scraping.BurstLimit) },
		},
		{
			name:   "zero burst raised",
			mutate: func(c *Config) { c.Scraping.BurstLimit = 0 },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, 1, c.Scraping.BurstLimit) },
		},
		{
			name:   "timeout clamped",
			mutate: func(c *Config) { c.Scraping.Timeout = 10 * time.Minute },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, 120*time.Second, c.Scraping.Timeout) },
		},
		{
			name:   "retries clamped",
			mutate: func(c *Config) { c.Scraping.Retry.MaxAttempts = -1 },
			check:  func(t *testing.T, c *Config) { assert.Zero(t, c.Scraping.Retry.MaxAttempts) },
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Cache.Backend = "sqlite" },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, "memory", c.Cache.Backend) },
		},
		{
			name: "disabled postgres cache leaves database off",
			mutate: func(c *Config) {
				c.Cache.Enabled = false
				c.Cache.Backend = "postgres"
			},
			check: func(t *testing.T, c *Config) { assert.False(t, c.Database.Enabled) },
		},
		{
			name:   "zero prefetch interval raised",
			mutate: func(c *Config) { c.Prefetch.Interval = 0 },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, time.Minute, c.Prefetch.Interval) },
		},
		{
			name:   "negative prefetch timeout raised",
			mutate: func(c *Config) { c.Prefetch.Timeout = -time.Second },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, 10*time.Second, c.Prefetch.Timeout) },
		},
		{
			name: "prefetch settings in range kept",
			mutate: func(c *Config) {
				c.Prefetch.Interval = 30 * time.Minute
				c.Prefetch.Timeout = 5 * time.Minute
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 30*time.Minute, c.Prefetch.Interval)
				assert.Equal(t, 5*time.Minute, c.Prefetch.Timeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Cache:    CacheConfig{ResultTTL: time.Hour, Backend: "memory"},
				Scraping: ScrapingConfig{RequestsPerMinute: 20, BurstLimit: 3, Timeout: 30 * time.Second},
			}
			tt.mutate(c)
			c.Normalize()
			tt.check(t, c)
		})
	}
}
