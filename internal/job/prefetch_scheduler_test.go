package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"booth-outfit-search/internal/app/service"
	"booth-outfit-search/pkg/locker"
)

type fakePrefetcher struct {
	mu      sync.Mutex
	runs    int
	results []service.PrefetchResult
}

func (f *fakePrefetcher) PrefetchAll(context.Context) []service.PrefetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return f.results
}

func (f *fakePrefetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type fakeCleaner struct {
	calls   int
	removed int
	err     error
}

func (f *fakeCleaner) CleanupCache(context.Context) (int, error) {
	f.calls++
	return f.removed, f.err
}

// failingLocker always fails to acquire.
type failingLocker struct{}

func (failingLocker) Acquire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func (failingLocker) Release(context.Context, string) error { return nil }

func newScheduler(p Prefetcher, c CacheCleaner, l locker.DistributedLocker) *PrefetchScheduler {
	return NewPrefetchScheduler(p, c, PrefetchConfig{
		Interval: time.Hour,
		Timeout:  time.Minute,
	}, zap.NewNop(), l)
}

// TestExecutePrefetch_LockHandling tests cooldown after success and release after failure.
func TestExecutePrefetch_LockHandling(t *testing.T) {
	tests := []struct {
		name         string
		results      []service.PrefetchResult
		wantLockHeld bool
	}{
		{
			name:         "success keeps lock for cooldown",
			results:      []service.PrefetchResult{{Avatar: "桔梗", Count: 24}},
			wantLockHeld: true,
		},
		{
			name: "failure releases lock",
			results: []service.PrefetchResult{
				{Avatar: "桔梗", Count: 24},
				{Avatar: "マヌカ", Error: errors.New("status 503")},
			},
			wantLockHeld: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l := locker.NewLocalLocker()
			prefetcher := &fakePrefetcher{results: tt.results}
			cleaner := &fakeCleaner{removed: 2}

			newScheduler(prefetcher, cleaner, l).executePrefetch(ctx)

			assert.Equal(t, 1, prefetcher.count())
			assert.Equal(t, 1, cleaner.calls)

			acquired, err := l.Acquire(ctx, prefetchLockKey, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, !tt.wantLockHeld, acquired)
		})
	}
}

// TestExecutePrefetch_SkipsWhenLocked tests that a held lock skips the cycle.
func TestExecutePrefetch_SkipsWhenLocked(t *testing.T) {
	ctx := context.Background()
	l := locker.NewLocalLocker()
	_, err := l.Acquire(ctx, prefetchLockKey, time.Hour)
	require.NoError(t, err)

	prefetcher := &fakePrefetcher{}
	cleaner := &fakeCleaner{}
	newScheduler(prefetcher, cleaner, l).executePrefetch(ctx)

	assert.Zero(t, prefetcher.count())
	assert.Zero(t, cleaner.calls)
}

// TestExecutePrefetch_LockError tests that lock failures skip the cycle.
func TestExecutePrefetch_LockError(t *testing.T) {
	prefetcher := &fakePrefetcher{}
	newScheduler(prefetcher, nil, failingLocker{}).executePrefetch(context.Background())

	assert.Zero(t, prefetcher.count())
}

// TestExecutePrefetch_CleanupFailureTolerated tests that a failing cleanup does not stop warming.
func TestExecutePrefetch_CleanupFailureTolerated(t *testing.T) {
	prefetcher := &fakePrefetcher{}
	cleaner := &fakeCleaner{err: errors.New("db down")}

	newScheduler(prefetcher, cleaner, locker.NewLocalLocker()).executePrefetch(context.Background())

	assert.Equal(t, 1, prefetcher.count())
}

// TestPrefetchScheduler_StartStop tests the startup run and a clean shutdown.
func TestPrefetchScheduler_StartStop(t *testing.T) {
	prefetcher := &fakePrefetcher{}
	s := newScheduler(prefetcher, nil, locker.NewLocalLocker())

	s.Start(true)
	require.Eventually(t, func() bool { return prefetcher.count() == 1 }, time.Second, 10*time.Millisecond)
	s.Stop()

	assert.Equal(t, 1, prefetcher.count())
}
