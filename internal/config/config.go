// Package config provides application configuration management using Viper.
// Configuration is loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Scraping ScrapingConfig `mapstructure:"scraping"`
	Search   SearchConfig   `mapstructure:"search"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Data     DataConfig     `mapstructure:"data"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Prefetch PrefetchConfig `mapstructure:"prefetch"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name  string `mapstructure:"name"`
	Env   string `mapstructure:"env"` // development, staging, production
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`
}

// ScrapingConfig holds marketplace client settings.
type ScrapingConfig struct {
	BaseURL           string            `mapstructure:"base_url"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	RequestsPerMinute int               `mapstructure:"requests_per_minute"`
	BurstLimit        int               `mapstructure:"burst_limit"`
	MaxWait           time.Duration     `mapstructure:"max_wait"`
	UserAgents        []string          `mapstructure:"user_agents"`
	Headers           map[string]string `mapstructure:"headers"`
	Retry             RetryConfig       `mapstructure:"retry"`
	CB                CBConfig          `mapstructure:"circuit_breaker"`
}

// RetryConfig holds retry settings.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	WaitTime    time.Duration `mapstructure:"wait_time"`
	MaxWaitTime time.Duration `mapstructure:"max_wait_time"`
}

// CBConfig holds circuit breaker settings.
type CBConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// SearchConfig holds query resolution defaults.
type SearchConfig struct {
	PerPage     int  `mapstructure:"per_page"`
	MinResults  int  `mapstructure:"min_results"`
	MaxAttempts int  `mapstructure:"max_attempts"`
	AllowMulti  bool `mapstructure:"allow_multi"`
	VerifyMode  bool `mapstructure:"verify_mode"`
	VerifyTopN  int  `mapstructure:"verify_top_n"`
	VerifyMemo  int  `mapstructure:"verify_memo_size"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Backend    string        `mapstructure:"backend"` // memory, redis, postgres
	ResultTTL  time.Duration `mapstructure:"result_ttl"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	MemorySize int           `mapstructure:"memory_size"`
}

// DataConfig points at user override files; bundled copies are used when absent.
type DataConfig struct {
	AliasFile     string `mapstructure:"alias_file"`
	RelevanceFile string `mapstructure:"relevance_file"`
}

// DatabaseConfig holds database connection settings.
// When enabled, click and search history are persisted in PostgreSQL.
type DatabaseConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Name         string        `mapstructure:"name"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	SSLMode      string        `mapstructure:"ssl_mode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
	SlowQuery    time.Duration `mapstructure:"slow_query"`
	ProfileID    string        `mapstructure:"profile_id"`
}

// RedisConfig holds Redis connection settings for the cache and distributed locking.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PrefetchConfig holds background cache warming settings.
type PrefetchConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	OnStartup bool          `mapstructure:"on_startup"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxPages  int           `mapstructure:"max_pages"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, file path
}

// SentryConfig holds Sentry error tracking settings.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Bounds applied by Normalize.
const (
	MinResultTTL = time.Minute
	MaxResultTTL = 24 * time.Hour
	MinRPM       = 1
	MaxRPM       = 120
	MinTimeout   = time.Second
	MaxTimeout   = 120 * time.Second
	MaxRetries   = 10

	MinPrefetchInterval = time.Minute
	MinPrefetchTimeout  = 10 * time.Second
)

// Load reads configuration from file and environment variables.
// Priority: env vars > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found, continue with defaults + env vars
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Normalize()

	return &cfg, nil
}

// Normalize pulls out-of-range values back into their bounds.
func (c *Config) Normalize() {
	c.Cache.ResultTTL = clamp(c.Cache.ResultTTL, MinResultTTL, MaxResultTTL)
	c.Scraping.RequestsPerMinute = clamp(c.Scraping.RequestsPerMinute, MinRPM, MaxRPM)
	c.Scraping.BurstLimit = clamp(c.Scraping.BurstLimit, 1, c.Scraping.RequestsPerMinute)
	c.Scraping.Timeout = clamp(c.Scraping.Timeout, MinTimeout, MaxTimeout)
	c.Scraping.Retry.MaxAttempts = clamp(c.Scraping.Retry.MaxAttempts, 0, MaxRetries)

	switch c.Cache.Backend {
	case "memory", "redis", "postgres":
	default:
		c.Cache.Backend = "memory"
	}
	if c.Cache.Enabled && c.Cache.Backend == "postgres" {
		c.Database.Enabled = true
	}

	if c.Search.VerifyTopN < 0 {
		c.Search.VerifyTopN = 0
	}
	if c.Prefetch.MaxPages < 1 {
		c.Prefetch.MaxPages = 1
	}
	c.Prefetch.Interval = max(c.Prefetch.Interval, MinPrefetchInterval)
	c.Prefetch.Timeout = max(c.Prefetch.Timeout, MinPrefetchTimeout)
}

func clamp[T int | time.Duration](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "booth-outfit-search")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.debug", true)

	// Scraping defaults
	v.SetDefault("scraping.base_url", "https://booth.pm")
	v.SetDefault("scraping.timeout", "30s")
	v.SetDefault("scraping.requests_per_minute", 20)
	v.SetDefault("scraping.burst_limit", 3)
	v.SetDefault("scraping.max_wait", "30s")
	v.SetDefault("scraping.retry.max_attempts", 3)
	v.SetDefault("scraping.retry.wait_time", "1s")
	v.SetDefault("scraping.retry.max_wait_time", "10s")
	v.SetDefault("scraping.circuit_breaker.max_requests", 3)
	v.SetDefault("scraping.circuit_breaker.interval", "60s")
	v.SetDefault("scraping.circuit_breaker.timeout", "30s")
	v.SetDefault("scraping.circuit_breaker.failure_ratio", 0.5)

	// Search defaults
	v.SetDefault("search.per_page", 24)
	v.SetDefault("search.min_results", 3)
	v.SetDefault("search.max_attempts", 3)
	v.SetDefault("search.allow_multi", false)
	v.SetDefault("search.verify_mode", false)
	v.SetDefault("search.verify_top_n", 10)
	v.SetDefault("search.verify_memo_size", 1024)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.result_ttl", "1h")
	v.SetDefault("cache.key_prefix", "booth-search")
	v.SetDefault("cache.memory_size", 512)

	// Data defaults
	v.SetDefault("data.alias_file", "data/avatar_aliases.yaml")
	v.SetDefault("data.relevance_file", "data/relevance.yaml")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "booth_search")
	v.SetDefault("database.user", "app")
	v.SetDefault("database.password", "secret")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.slow_query", "200ms")
	v.SetDefault("database.profile_id", "default")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Prefetch defaults
	v.SetDefault("prefetch.enabled", false)
	v.SetDefault("prefetch.interval", "30m")
	v.SetDefault("prefetch.on_startup", false)
	v.SetDefault("prefetch.timeout", "10m")
	v.SetDefault("prefetch.max_pages", 2)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")

	// Sentry defaults
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)
}
