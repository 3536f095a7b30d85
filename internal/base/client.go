// Package base provides the shared HTTP client used by the MAST and ExoMAST clients.
package base

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	apierrors "github.com/olgasafonova/mast-mcp-server/internal/errors"
	"github.com/olgasafonova/mast-mcp-server/internal/infra"
	"github.com/olgasafonova/mast-mcp-server/metrics"
	"github.com/olgasafonova/mast-mcp-server/tracing"
)

const (
	// DefaultTimeout for API requests. Portal queries over large regions are slow.
	DefaultTimeout = 60 * time.Second

	// MaxConcurrentRequests limits parallel API calls
	MaxConcurrentRequests = 5

	// MaxResponseSize caps how much of a response body is read
	MaxResponseSize = 64 << 20

	// DefaultUserAgent identifies the server to upstream archives
	DefaultUserAgent = "mast-mcp-server/1.0"
)

// Client provides common HTTP client infrastructure with optional caching,
// concurrency limiting, circuit breaking, and coalescing of identical requests.
type Client struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	Cache      *infra.Cache
	Coalescer  *infra.Coalescer[[]byte]
	Breaker    *infra.Breaker
	Semaphore  chan struct{}
	UserAgent  string
	MaxRetries int

	// Upstream labels metrics, spans and errors ("mast", "exomast")
	Upstream string
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.HTTPClient = c
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.Logger = l
	}
}

// WithCache sets the response cache. A nil cache disables caching.
func WithCache(c *infra.Cache) ClientOption {
	return func(client *Client) {
		client.Cache = c
	}
}

// WithMaxRetries sets how many times a failed request is retried
func WithMaxRetries(n int) ClientOption {
	return func(client *Client) {
		if n < 0 {
			n = 0
		}
		client.MaxRetries = n
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		client.UserAgent = ua
	}
}

// WithTimeout replaces the HTTP client with one using the given timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		if d > 0 {
			client.HTTPClient = newHTTPClient(d)
		}
	}
}

// NewClient creates a new base client for the named upstream. Caching and
// retries are off unless enabled through options.
func NewClient(upstream string, opts ...ClientOption) *Client {
	c := &Client{
		HTTPClient: newHTTPClient(DefaultTimeout),
		Logger:     slog.Default(),
		Coalescer:  infra.NewCoalescer[[]byte](infra.DefaultSharedCallTimeout),
		Semaphore:  make(chan struct{}, MaxConcurrentRequests),
		UserAgent:  DefaultUserAgent,
		Upstream:   upstream,
	}

	for _, opt := range opts {
		opt(c)
	}

	breakerCfg := infra.DefaultBreakerConfig()
	breakerCfg.IsSuccessful = healthyRejection
	c.Breaker = infra.NewBreaker(upstream, breakerCfg)

	return c
}

// Close releases resources held by the client
func (c *Client) Close() {
	c.Cache.Purge()
}

// BreakerStats returns the current circuit breaker state
func (c *Client) BreakerStats() infra.BreakerStats {
	return c.Breaker.Stats()
}

// InFlight returns the number of distinct requests currently running
func (c *Client) InFlight() int {
	return c.Coalescer.InFlight()
}

// AcquireSlot blocks until a request slot is available or context is canceled
func (c *Client) AcquireSlot(ctx context.Context) error {
	select {
	case c.Semaphore <- struct{}{}:
		return nil
	default:
	}

	metrics.RateLimitWaits.Inc()
	select {
	case c.Semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context canceled while waiting for request slot: %w", ctx.Err())
	}
}

// ReleaseSlot releases a request slot
func (c *Client) ReleaseSlot() {
	<-c.Semaphore
}

// Request describes a single upstream call
type Request struct {
	Method string // defaults to GET, or POST when Form is set
	URL    string
	Form   url.Values // sent as an urlencoded body

	// Service names the upstream operation for metrics and errors
	Service string

	// CacheIf decides whether a successful body may be cached. Nil never caches.
	CacheIf func(body []byte) bool
}

func (r Request) method() string {
	if r.Method != "" {
		return r.Method
	}
	if r.Form != nil {
		return http.MethodPost
	}
	return http.MethodGet
}

func (r Request) key() string {
	return r.method() + " " + r.URL + "\n" + r.Form.Encode()
}

// Do performs the request and returns the body of a 2xx response. Non-2xx
// responses and transport failures become *errors.UpstreamError.
//
// Identical concurrent requests share one upstream call. That call is not
// canceled when one of its callers gives up.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	key := req.key()
	cacheKey := infra.Key(req.Service, []byte(key))

	if req.CacheIf != nil && c.Cache.Enabled() {
		if body, ok := c.Cache.Get(cacheKey); ok {
			metrics.RecordCacheAccess(true)
			return body, nil
		}
		metrics.RecordCacheAccess(false)
	}

	body, shared, err := c.Coalescer.Do(ctx, key, func(callCtx context.Context) ([]byte, error) {
		return c.do(callCtx, req)
	})
	if shared {
		metrics.CoalescedRequests.WithLabelValues(c.Upstream).Inc()
	}
	if err != nil {
		return nil, err
	}

	if req.CacheIf != nil && c.Cache.Enabled() && req.CacheIf(body) {
		c.Cache.Set(cacheKey, body)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, req Request) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, c.Upstream+".request")
	defer span.End()
	tracing.AddUpstreamAttributes(span, c.Upstream, req.Service)

	body, err := c.Breaker.Execute(func() ([]byte, error) {
		if err := c.AcquireSlot(ctx); err != nil {
			return nil, err
		}
		defer c.ReleaseSlot()

		body, err := backoff.Retry(ctx,
			func() ([]byte, error) { return c.attempt(ctx, req) },
			backoff.WithBackOff(c.retryBackOff()),
			backoff.WithMaxTries(uint(c.MaxRetries)+1),
			backoff.WithMaxElapsedTime(0),
			backoff.WithNotify(func(err error, next time.Duration) {
				metrics.RecordRetry(c.Upstream, req.Service)
				c.Logger.Warn("Upstream request failed, retrying",
					"upstream", c.Upstream,
					"service", req.Service,
					"backoff", next,
					"error", err)
			}),
		)
		return body, retryResult(err)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return body, nil
}

// retryBackOff is the wait between retries of a failed request
func (c *Client) retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}

// retryResult strips the retry markers attempt adds to an error
func retryResult(err error) error {
	if err == nil {
		return nil
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	var wait *backoff.RetryAfterError
	var upErr *apierrors.UpstreamError
	if errors.As(err, &wait) && errors.As(err, &upErr) {
		return upErr
	}
	return err
}

// healthyRejection reports whether err is a 4xx from an upstream that is up
func healthyRejection(err error) bool {
	var upErr *apierrors.UpstreamError
	return errors.As(err, &upErr) && upErr.StatusCode >= 400 && upErr.StatusCode < 500
}

// attempt performs one HTTP round trip. Failures not worth retrying are
// wrapped with backoff.Permanent; a 429 with Retry-After carries the wait.
func (c *Client) attempt(ctx context.Context, req Request) ([]byte, error) {
	var reqBody io.Reader
	if req.Form != nil {
		reqBody = strings.NewReader(req.Form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), req.URL, reqBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.UserAgent)
	if req.Form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		metrics.RecordAPICall(c.Upstream, req.Service, time.Since(start).Seconds(), false, 0)
		if ctx.Err() != nil {
			return nil, backoff.Permanent(fmt.Errorf("%s request canceled: %w", req.Service, ctx.Err()))
		}
		return nil, apierrors.NewUpstreamError(req.Service, 0, err.Error())
	}

	body, err := readAndClose(resp)
	duration := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordAPICall(c.Upstream, req.Service, duration, false, 0)
		if errors.Is(err, ErrResponseTooLarge) {
			return nil, backoff.Permanent(fmt.Errorf("%s response: %w", req.Service, err))
		}
		return nil, fmt.Errorf("failed to read %s response: %w", req.Service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordAPICall(c.Upstream, req.Service, duration, false, resp.StatusCode)
		upErr := apierrors.NewUpstreamError(req.Service, resp.StatusCode, truncate(strings.TrimSpace(string(body)), 200))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if seconds := retryAfter(resp.Header.Get("Retry-After")); seconds > 0 {
				return nil, errors.Join(upErr, backoff.RetryAfter(seconds))
			}
			return nil, upErr
		case resp.StatusCode >= 500:
			return nil, upErr
		default:
			return nil, backoff.Permanent(upErr)
		}
	}

	metrics.RecordAPICall(c.Upstream, req.Service, duration, true, resp.StatusCode)
	c.Logger.Debug("Upstream request completed",
		"upstream", c.Upstream,
		"service", req.Service,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration_ms", int(duration*1000))
	return body, nil
}

// retryAfter parses a Retry-After header given in seconds, capped at 10
func retryAfter(v string) int {
	seconds, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || seconds <= 0 {
		return 0
	}
	return min(seconds, 10)
}

// ErrResponseTooLarge is returned for bodies over MaxResponseSize
var ErrResponseTooLarge = fmt.Errorf("response exceeds %d bytes", MaxResponseSize)

// readAndClose reads the response body and closes it. Bodies larger than
// MaxResponseSize fail with ErrResponseTooLarge.
func readAndClose(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxResponseSize {
		return nil, ErrResponseTooLarge
	}
	return body, nil
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// newHTTPClient creates an HTTP client with optimized transport settings
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		DisableCompression:    false,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
