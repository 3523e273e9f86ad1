// Package main is the entry point for the booth-outfit-search API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"booth-outfit-search/internal/alias"
	"booth-outfit-search/internal/app/service"
	"booth-outfit-search/internal/config"
	"booth-outfit-search/internal/domain"
	"booth-outfit-search/internal/infra/memory"
	"booth-outfit-search/internal/infra/postgres"
	"booth-outfit-search/internal/infra/postgres/migrations"
	"booth-outfit-search/internal/infra/provider"
	"booth-outfit-search/internal/infra/provider/booth"
	rediscache "booth-outfit-search/internal/infra/redis"
	"booth-outfit-search/internal/job"
	"booth-outfit-search/internal/logger"
	"booth-outfit-search/internal/relevance"
	"booth-outfit-search/internal/textnorm"
	"booth-outfit-search/internal/transport/httpserver"
	"booth-outfit-search/internal/transport/httpserver/dto"
	"booth-outfit-search/internal/validator"
	"booth-outfit-search/pkg/locker"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("APP_CONFIG_FILE"))
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(
		logger.Config{
			Level:  cfg.Logger.Level,
			Format: cfg.Logger.Format,
			Output: cfg.Logger.Output,
		},
		logger.SentryConfig{
			Enabled:     cfg.Sentry.Enabled,
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		},
	)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting booth-outfit-search",
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	ctx := context.Background()

	// Connect to database (preferences, and the postgres cache backend)
	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = postgres.NewConnection(ctx,
			postgres.Config{
				Host:         cfg.Database.Host,
				Port:         cfg.Database.Port,
				Name:         cfg.Database.Name,
				User:         cfg.Database.User,
				Password:     cfg.Database.Password,
				SSLMode:      cfg.Database.SSLMode,
				MaxOpenConns: cfg.Database.MaxOpenConns,
				MaxIdleConns: cfg.Database.MaxIdleConns,
				MaxLifetime:  cfg.Database.MaxLifetime,
				SlowQuery:    cfg.Database.SlowQuery,
			},
			log.Logger,
		)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer func() { _ = postgres.Close(db) }()

		if err := migrations.Run(db); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		log.Info("database migrations completed")
	}

	// Connect to Redis (redis cache backend and distributed locking)
	var redisClient *redis.Client
	if cfg.Cache.Enabled && cfg.Cache.Backend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr()))
	}

	// Create marketplace client
	client := booth.New(
		provider.ClientConfig{
			BaseURL:    cfg.Scraping.BaseURL,
			Timeout:    cfg.Scraping.Timeout,
			UserAgents: cfg.Scraping.UserAgents,
			Headers:    cfg.Scraping.Headers,
			Pacing: provider.PacingConfig{
				RequestsPerMinute: cfg.Scraping.RequestsPerMinute,
				BurstLimit:        cfg.Scraping.BurstLimit,
				MaxWait:           cfg.Scraping.MaxWait,
			},
			Retry: provider.RetryConfig{
				MaxAttempts: cfg.Scraping.Retry.MaxAttempts,
				WaitTime:    cfg.Scraping.Retry.WaitTime,
				MaxWaitTime: cfg.Scraping.Retry.MaxWaitTime,
			},
			CB: provider.CBConfig{
				MaxRequests:  cfg.Scraping.CB.MaxRequests,
				Interval:     cfg.Scraping.CB.Interval,
				Timeout:      cfg.Scraping.CB.Timeout,
				FailureRatio: cfg.Scraping.CB.FailureRatio,
			},
		},
		log.Logger,
	)

	// Load alias and relevance data
	entries, err := alias.LoadEntries(cfg.Data.AliasFile, log.Logger)
	if err != nil {
		log.Fatal("failed to load alias dataset", zap.Error(err))
	}
	aliases := alias.NewResolver(entries, textnorm.Normalize)
	scorer := relevance.NewScorer(relevance.Load(cfg.Data.RelevanceFile, log.Logger))

	cache := newResultCache(cfg, db, redisClient, log.Logger)
	prefs := newPreferenceStore(cfg, db)

	// Create services
	searchSvc := service.NewSearchService(
		service.Deps{
			Fetcher:     client,
			Parser:      booth.NewParser(log.Logger),
			Extractor:   booth.NewDescriptionExtractor(log.Logger),
			Cache:       cache,
			Preferences: prefs,
			Scorer:      scorer,
			Aliases:     aliases,
		},
		service.Options{
			VerifyTTL:      cfg.Cache.ResultTTL,
			VerifyMemoSize: cfg.Search.VerifyMemo,
		},
		log.Logger,
	)
	prefetchSvc := service.NewPrefetchService(searchSvc, cfg.Prefetch.MaxPages, log.Logger)
	favoriteSvc := service.NewFavoriteService(newFavoriteStore(cfg, db), log.Logger)

	// Create distributed locker
	var distLocker locker.DistributedLocker
	if redisClient != nil {
		distLocker = locker.NewRedisLocker(redisClient, log.Logger)
	} else {
		distLocker = locker.NewLocalLocker()
	}

	// Create validator
	v := validator.New()

	// Create HTTP server
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Port:      cfg.App.Port,
			BodyLimit: 1024 * 1024, // 1MB
			Debug:     cfg.App.Debug,
			Defaults: dto.Defaults{
				PerPage:     cfg.Search.PerPage,
				MinResults:  cfg.Search.MinResults,
				MaxAttempts: cfg.Search.MaxAttempts,
				AllowMulti:  cfg.Search.AllowMulti,
				VerifyMode:  cfg.Search.VerifyMode,
				VerifyTopN:  cfg.Search.VerifyTopN,
				MaxPages:    cfg.Prefetch.MaxPages,
			},
		},
		searchSvc,
		prefetchSvc,
		favoriteSvc,
		v,
		log.Logger,
	)

	// Start prefetch scheduler with distributed locking
	var scheduler *job.PrefetchScheduler
	if cfg.Prefetch.Enabled {
		scheduler = job.NewPrefetchScheduler(
			prefetchSvc,
			searchSvc,
			job.PrefetchConfig{
				Interval:  cfg.Prefetch.Interval,
				Timeout:   cfg.Prefetch.Timeout,
				OnStartup: cfg.Prefetch.OnStartup,
			},
			log.Logger,
			distLocker,
		)
		scheduler.Start(cfg.Prefetch.OnStartup)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutdown signal received")

		if scheduler != nil {
			scheduler.Stop()
		}

		// Shutdown server with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.App.ShutdownWithContext(ctx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	// Start server
	if err := server.Start(cfg.App.Port); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

// newResultCache builds the configured cache backend, or nil when caching is off.
func newResultCache(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log *zap.Logger) domain.ResultCache {
	if !cfg.Cache.Enabled {
		log.Info("cache disabled")
		return nil
	}

	log.Info("cache enabled",
		zap.String("backend", cfg.Cache.Backend),
		zap.Duration("result_ttl", cfg.Cache.ResultTTL),
	)

	switch cfg.Cache.Backend {
	case "redis":
		return rediscache.NewResultCache(redisClient, log, cfg.Cache.KeyPrefix, cfg.Cache.ResultTTL)
	case "postgres":
		return postgres.NewResultCache(db, cfg.Cache.ResultTTL, log)
	default:
		return memory.NewResultCache(cfg.Cache.MemorySize, cfg.Cache.ResultTTL, log)
	}
}

// newPreferenceStore keeps history in PostgreSQL when a database is configured.
func newPreferenceStore(cfg *config.Config, db *gorm.DB) domain.PreferenceStore {
	if db == nil {
		return memory.NewPreferenceStore()
	}
	return postgres.NewPreferenceStore(db, cfg.Database.ProfileID)
}

// newFavoriteStore keeps favorites in PostgreSQL when a database is configured.
func newFavoriteStore(cfg *config.Config, db *gorm.DB) domain.FavoriteStore {
	if db == nil {
		return memory.NewFavoriteStore()
	}
	return postgres.NewFavoriteStore(db, cfg.Database.ProfileID)
}
