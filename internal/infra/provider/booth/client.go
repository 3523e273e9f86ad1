// Package booth implements the Booth marketplace page fetcher and parsers.
package booth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"booth-outfit-search/internal/domain"
	"booth-outfit-search/internal/infra/provider"
	applog "booth-outfit-search/internal/logger"
)

// DefaultBaseURL is the public marketplace origin.
const DefaultBaseURL = "https://booth.pm"

const (
	searchPath = "/ko/search/"
	itemPath   = "/ko/items/"
)

// Client implements domain.PageFetcher for Booth.
type Client struct {
	client *resty.Client
	cb     *gobreaker.CircuitBreaker[string]
	pacer  *provider.Pacer
	logger *zap.Logger

	requests    atomic.Int64
	failures    atomic.Int64
	rateLimited atomic.Int64
}

// New creates a new Booth client.
func New(cfg provider.ClientConfig, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	return &Client{
		client: provider.NewRestyClient(cfg),
		cb:     provider.NewCircuitBreaker[string]("booth", cfg.CB, breakerSuccess, logger),
		pacer:  provider.NewPacer(cfg.Pacing),
		logger: logger,
	}
}

// breakerSuccess keeps client-side outcomes from tripping the breaker:
// a missing item or a rate limit says nothing about marketplace health.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	fe, ok := domain.AsFetchError(err)
	if !ok {
		return false
	}
	return fe.Kind == domain.FetchErrorRateLimited ||
		(fe.Kind == domain.FetchErrorStatus && fe.StatusCode < 500)
}

// FetchSearchPage returns the HTML of one search result page.
func (c *Client) FetchSearchPage(ctx context.Context, keyword string, page int, categoryID, sort string) (string, error) {
	query := map[string]string{"page": strconv.Itoa(max(page, 1))}
	if categoryID != "" {
		query["category"] = categoryID
	}
	if sort != "" {
		query["sort"] = sort
	}

	return c.get(ctx, searchPath+url.PathEscape(keyword), query)
}

// FetchItemPage returns the HTML of a single item detail page.
func (c *Client) FetchItemPage(ctx context.Context, itemID string) (string, error) {
	return c.get(ctx, itemPath+url.PathEscape(itemID), nil)
}

// Stats reports request counters and the breaker state.
func (c *Client) Stats() domain.ClientStats {
	return domain.ClientStats{
		Requests:     c.requests.Load(),
		Failures:     c.failures.Load(),
		RateLimited:  c.rateLimited.Load(),
		BreakerState: c.cb.State().String(),
	}
}

func (c *Client) get(ctx context.Context, path string, query map[string]string) (string, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return "", &domain.FetchError{Kind: domain.FetchErrorNetwork, URL: path, Err: ctx.Err()}
		}
		c.rateLimited.Add(1)
		return "", &domain.FetchError{
			Kind:       domain.FetchErrorRateLimited,
			URL:        path,
			RetryAfter: domain.DefaultRetryAfter,
			Err:        err,
		}
	}

	c.requests.Add(1)

	body, err := c.cb.Execute(func() (string, error) {
		r, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(query).
			Get(path)
		if err != nil {
			return "", &domain.FetchError{Kind: domain.FetchErrorNetwork, URL: path, Err: err}
		}

		switch {
		case r.StatusCode() == http.StatusTooManyRequests:
			return "", &domain.FetchError{
				Kind:       domain.FetchErrorRateLimited,
				URL:        path,
				StatusCode: r.StatusCode(),
				RetryAfter: parseRetryAfter(r.Header().Get("Retry-After"), time.Now()),
			}
		case r.IsError():
			return "", &domain.FetchError{Kind: domain.FetchErrorStatus, URL: path, StatusCode: r.StatusCode()}
		}

		return r.String(), nil
	})
	if err != nil {
		err = c.classify(path, err)
		c.failures.Add(1)

		c.logger.Warn("booth fetch failed", append(applog.FetchErrorFields(err),
			zap.String("path", path),
			zap.String("state", c.cb.State().String()),
		)...)

		return "", err
	}

	c.logger.Debug("booth page fetched",
		zap.String("path", path),
		zap.Int("bytes", len(body)),
	)

	return body, nil
}

// classify turns breaker rejections into typed fetch errors.
func (c *Client) classify(path string, err error) error {
	if fe, ok := domain.AsFetchError(err); ok {
		if fe.Kind == domain.FetchErrorRateLimited {
			c.rateLimited.Add(1)
		}
		return fe
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.FetchError{Kind: domain.FetchErrorBreakerOpen, URL: path, Err: err}
	}
	return &domain.FetchError{Kind: domain.FetchErrorNetwork, URL: path, Err: fmt.Errorf("booth request: %w", err)}
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return domain.DefaultRetryAfter
	}

	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(header); err == nil {
		if d := at.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
		return 0
	}

	return domain.DefaultRetryAfter
}
