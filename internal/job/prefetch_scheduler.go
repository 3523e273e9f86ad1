// Package job provides background job schedulers.
package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"booth-outfit-search/internal/app/service"
	"booth-outfit-search/pkg/locker"
)

const prefetchLockKey = "prefetch:scheduler:lock"

// Prefetcher warms the cache for popular avatars.
type Prefetcher interface {
	PrefetchAll(ctx context.Context) []service.PrefetchResult
}

// CacheCleaner drops expired cache entries.
type CacheCleaner interface {
	CleanupCache(ctx context.Context) (int, error)
}

// PrefetchScheduler periodically prunes the result cache and re-warms it for
// popular avatars, holding a distributed lock so only one instance runs a cycle.
type PrefetchScheduler struct {
	prefetcher Prefetcher
	cleaner    CacheCleaner
	interval   time.Duration
	timeout    time.Duration
	logger     *zap.Logger
	locker     locker.DistributedLocker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PrefetchConfig holds prefetch scheduler configuration.
type PrefetchConfig struct {
	Interval  time.Duration
	Timeout   time.Duration
	OnStartup bool
}

// NewPrefetchScheduler creates a new PrefetchScheduler. cleaner may be nil.
func NewPrefetchScheduler(
	prefetcher Prefetcher,
	cleaner CacheCleaner,
	cfg PrefetchConfig,
	logger *zap.Logger,
	locker locker.DistributedLocker,
) *PrefetchScheduler {
	return &PrefetchScheduler{
		prefetcher: prefetcher,
		cleaner:    cleaner,
		interval:   cfg.Interval,
		timeout:    cfg.Timeout,
		logger:     logger,
		locker:     locker,
	}
}

// Start begins the background prefetch job.
func (s *PrefetchScheduler) Start(runOnStartup bool) {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.logger.Info("starting prefetch scheduler",
		zap.Duration("interval", s.interval),
		zap.Bool("run_on_startup", runOnStartup),
	)

	s.wg.Add(1)
	go s.run(runOnStartup)
}

// Stop cancels a running cycle and waits for the loop to exit.
func (s *PrefetchScheduler) Stop() {
	s.logger.Info("stopping prefetch scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("prefetch scheduler stopped")
}

func (s *PrefetchScheduler) run(runOnStartup bool) {
	defer s.wg.Done()

	if runOnStartup {
		s.executePrefetch(s.ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.executePrefetch(s.ctx)
		}
	}
}

// executePrefetch runs one cycle under the lock.
//
// The lock TTL is the interval: after a clean cycle it is kept as a cooldown
// so other instances skip this round; after any failure it is released so the
// next instance to tick retries.
func (s *PrefetchScheduler) executePrefetch(parent context.Context) {
	acquired, err := s.locker.Acquire(parent, prefetchLockKey, s.interval)
	if err != nil {
		s.logger.Error("failed to acquire distributed lock", zap.Error(err))
		return
	}
	if !acquired {
		s.logger.Debug("another instance is prefetching, skipping execution")
		return
	}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if s.cleaner != nil {
		if removed, err := s.cleaner.CleanupCache(ctx); err != nil {
			s.logger.Warn("cache cleanup failed", zap.Error(err))
		} else if removed > 0 {
			s.logger.Info("expired cache entries removed", zap.Int("removed", removed))
		}
	}

	results := s.prefetcher.PrefetchAll(ctx)

	totalItems := 0
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			s.logger.Warn("avatar prefetch failed",
				zap.String("avatar", r.Avatar),
				zap.Error(r.Error),
			)
			continue
		}
		totalItems += r.Count
	}

	if failed > 0 || ctx.Err() != nil {
		if err := s.locker.Release(context.WithoutCancel(parent), prefetchLockKey); err != nil {
			s.logger.Error("failed to release lock after prefetch error", zap.Error(err))
		}
		s.logger.Info("prefetch completed with errors, lock released for retry",
			zap.Int("total_items", totalItems),
			zap.Int("avatars_failed", failed),
		)
		return
	}

	s.logger.Info("prefetch completed successfully, lock held for cooldown",
		zap.Int("total_items", totalItems),
		zap.Int("avatars", len(results)),
		zap.Duration("cooldown", s.interval),
	)
}
