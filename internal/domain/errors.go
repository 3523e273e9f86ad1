package domain

import (
	"errors"
	"fmt"
	"time"
)

// FetchErrorKind classifies a page fetch failure.
type FetchErrorKind string

const (
	FetchErrorNetwork     FetchErrorKind = "network"
	FetchErrorStatus      FetchErrorKind = "status"
	FetchErrorRateLimited FetchErrorKind = "rate_limited"
	FetchErrorBreakerOpen FetchErrorKind = "breaker_open"
)

// DefaultRetryAfter is used when a rate-limited response carries no usable Retry-After header.
const DefaultRetryAfter = 60 * time.Second

// FetchError is the only error kind that crosses the search core's boundary.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrorRateLimited:
		return fmt.Sprintf("rate limited by marketplace, retry after %s", e.RetryAfter)
	case FetchErrorStatus:
		return fmt.Sprintf("marketplace returned status %d for %s", e.StatusCode, e.URL)
	case FetchErrorBreakerOpen:
		return "marketplace temporarily unavailable (circuit open)"
	default:
		if e.Err != nil {
			return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
		}
		return fmt.Sprintf("network error fetching %s", e.URL)
	}
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a later retry may succeed.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FetchErrorNetwork, FetchErrorRateLimited, FetchErrorBreakerOpen:
		return true
	case FetchErrorStatus:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// AsFetchError unwraps err to a *FetchError.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsRetryable reports whether err is a fetch failure worth retrying later.
func IsRetryable(err error) bool {
	fe, ok := AsFetchError(err)
	return ok && fe.Retryable()
}

// RetryAfter returns the rate-limit hint carried by err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	fe, ok := AsFetchError(err)
	if !ok || fe.Kind != FetchErrorRateLimited {
		return 0, false
	}
	return fe.RetryAfter, true
}
