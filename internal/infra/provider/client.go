// Package provider provides HTTP client utilities for marketplace scraping.
package provider

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ClientConfig holds configuration for a marketplace client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgents []string
	Headers    map[string]string
	Pacing     PacingConfig
	Retry      RetryConfig
	CB         CBConfig
}

// PacingConfig bounds the outgoing request rate.
type PacingConfig struct {
	RequestsPerMinute int
	BurstLimit        int
	// MaxWait caps how long a request may wait for a slot.
	MaxWait time.Duration
}

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts int
	WaitTime    time.Duration
	MaxWaitTime time.Duration
}

// CBConfig holds circuit breaker configuration.
type CBConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
}

// DefaultHeaders are sent with every marketplace request.
var DefaultHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "ko-KR,ko;q=0.9,ja;q=0.8,en;q=0.7",
	"Cache-Control":   "no-cache",
}

// DefaultUserAgents is the browser user-agent pool rotated across requests.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// NewRestyClient creates a new Resty HTTP client with retry configuration.
// Network errors and 5xx responses are retried; 429 is left to the caller.
func NewRestyClient(cfg ClientConfig) *resty.Client {
	headers := cfg.Headers
	if headers == nil {
		headers = DefaultHeaders
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeaders(headers).
		SetRetryCount(cfg.Retry.MaxAttempts).
		SetRetryWaitTime(cfg.Retry.WaitTime).
		SetRetryMaxWaitTime(cfg.Retry.MaxWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}

			return r.StatusCode() >= 500
		})

	agents := cfg.UserAgents
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	rotator := &userAgentRotator{agents: agents}
	client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader("User-Agent", rotator.next())
		return nil
	})

	return client
}

type userAgentRotator struct {
	agents []string
	n      atomic.Uint64
}

func (u *userAgentRotator) next() string {
	i := u.n.Add(1) - 1
	return u.agents[i%uint64(len(u.agents))]
}

// NewCircuitBreaker creates a new circuit breaker for a marketplace client.
// isSuccessful decides which errors do not count as failures; nil counts all.
func NewCircuitBreaker[T any](
	name string,
	cfg CBConfig,
	isSuccessful func(err error) bool,
	logger *zap.Logger,
) *gobreaker.CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:         name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		IsSuccessful: isSuccessful,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= 3 && failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return gobreaker.NewCircuitBreaker[T](settings)
}

// Pacer spaces out requests to stay under the configured rate.
type Pacer struct {
	limiter *rate.Limiter
	maxWait time.Duration
}

// NewPacer creates a Pacer allowing rpm requests per minute with the given burst.
// A non-positive rpm disables pacing.
func NewPacer(cfg PacingConfig) *Pacer {
	if cfg.RequestsPerMinute <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 0)}
	}

	burst := cfg.BurstLimit
	if burst < 1 {
		burst = 1
	}

	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), burst),
		maxWait: cfg.MaxWait,
	}
}

// Wait blocks until a request may be sent, the context ends or MaxWait elapses.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.maxWait)
		defer cancel()
	}
	return p.limiter.Wait(ctx)
}

// Tokens returns the currently available request slots.
func (p *Pacer) Tokens() float64 {
	return p.limiter.Tokens()
}
