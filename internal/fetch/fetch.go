// Package fetch provides polite HTTP retrieval for the web retrievers:
// a shared client with request timeout, proactive rate limiting and
// bounded retries with randomised backoff.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/newslookout/newslookout/internal/logger"
)

// Default client tuning.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultAttempts  = 3
	DefaultBackoff   = 2 * time.Second
	DefaultRate      = 1.0 // requests per second
	DefaultUserAgent = "Mozilla/5.0 (compatible; NewsLookout/2.0)"
)

// Client fetches URLs on behalf of a retriever. One client per
// retriever keeps the per-site rate limit independent.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	attempts  int
	backoff   time.Duration
	userAgent string
}

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithAttempts sets how many times a fetch is tried before giving up.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackoff sets the base delay between retries. The actual delay is
// randomised between the base and twice the base.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// WithRate sets the proactive throttle in requests per second.
func WithRate(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a fetch client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: DefaultTimeout},
		limiter:   rate.NewLimiter(rate.Limit(DefaultRate), 1),
		attempts:  DefaultAttempts,
		backoff:   DefaultBackoff,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches the URL, retrying transient failures. A response counts
// as transient when the transport errors or the server answers 429 or
// a 5xx status. Non-retryable statuses fail immediately.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}

		if attempt < c.attempts {
			delay := c.backoff + time.Duration(rand.Int63n(int64(c.backoff)+1))
			logger.Debug("fetch retry", "url", url, "attempt", attempt, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return nil, fmt.Errorf("fetching %s after %d attempts: %w", url, c.attempts, lastErr)
}

// get performs a single GET, reporting whether a failure is retryable.
func (c *Client) get(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("reading response: %w", err)
	}
	return body, false, nil
}
