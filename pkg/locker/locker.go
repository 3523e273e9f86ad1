// Package locker provides the lock that keeps periodic jobs from running on
// more than one instance at a time.
package locker

import (
	"context"
	"time"
)

// DistributedLocker acquires named, self-expiring locks.
// Implementations must be safe for concurrent use.
//
// Typical usage:
//
//	acquired, err := locker.Acquire(ctx, "prefetch:lock", 30*time.Minute)
//	if err != nil || !acquired {
//	    return
//	}
//	defer locker.Release(ctx, "prefetch:lock")
type DistributedLocker interface {
	// Acquire tries once to take the lock. It reports false, not an error,
	// when someone else holds it. The lock expires after ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release gives up a lock held by this instance; releasing a lock it
	// does not hold is a no-op.
	Release(ctx context.Context, key string) error
}
