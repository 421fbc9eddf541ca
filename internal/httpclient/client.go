// Package httpclient provides the shared outbound HTTP client: context-aware
// timeouts, User-Agent injection, retries with backoff and a circuit breaker.
//
// Every image provider and vision classifier gets its own Client so that one
// failing upstream trips only its own breaker.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/srthknk/biomuseum/internal/errors"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests if not specified.
	DefaultTimeout = 30 * time.Second

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second

	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 15 * time.Second
	defaultDialTimeout           = 10 * time.Second
	defaultDialKeepAlive         = 30 * time.Second

	defaultUserAgent = "BioMuseum/1.0 (+https://github.com/srthknk/biomuseum)"
)

// RetryConfig configures retries of failed requests. Network errors, 5xx and
// 429 responses are retried.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// BreakerConfig configures the circuit breaker. The breaker opens when
// FailureThreshold of the last Window executions failed, and half-opens after Delay.
type BreakerConfig struct {
	FailureThreshold uint
	Window           uint
	Delay            time.Duration
}

// Config holds configuration for creating an HTTP client.
type Config struct {
	// DefaultTimeout is applied if the request context has no deadline.
	DefaultTimeout time.Duration

	// UserAgent is added to requests that do not set one.
	UserAgent string

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// Retry is nil for single-shot requests.
	Retry *RetryConfig

	// CircuitBreaker is nil to disable the breaker.
	CircuitBreaker *BreakerConfig
}

// DefaultConfig returns a Config with production defaults: two retries and a breaker.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:      DefaultTimeout,
		UserAgent:           defaultUserAgent,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		Retry: &RetryConfig{
			MaxRetries: 2,
			BaseDelay:  250 * time.Millisecond,
			MaxDelay:   2 * time.Second,
		},
		CircuitBreaker: &BreakerConfig{
			FailureThreshold: 5,
			Window:           10,
			Delay:            30 * time.Second,
		},
	}
}

// Client is a context-aware HTTP client. Safe for concurrent use.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
	executor       failsafe.Executor[*http.Response]
	breaker        circuitbreaker.CircuitBreaker[*http.Response]
}

// New creates a new HTTP client. A nil cfg uses DefaultConfig; zero fields of
// a non-nil cfg fall back to their defaults except Retry and CircuitBreaker.
func New(cfg *Config) *Client {
	var c Config
	if cfg == nil {
		c = DefaultConfig()
	} else {
		c = *cfg
	}
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = defaultIdleConnTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: defaultDialKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          c.MaxIdleConns,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		IdleConnTimeout:       c.IdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
	}

	client := &Client{
		client:         &http.Client{Transport: transport},
		defaultTimeout: c.DefaultTimeout,
		userAgent:      c.UserAgent,
	}
	client.executor, client.breaker = newExecutor(c.Retry, c.CircuitBreaker)

	return client
}

// ShouldRetry reports whether a response or error is worth another attempt.
func ShouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		// The caller gave up, retrying cannot help.
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
}

//nolint:bodyclose // *http.Response is a type parameter here, not a live response
func newExecutor(retryCfg *RetryConfig, breakerCfg *BreakerConfig) (failsafe.Executor[*http.Response], circuitbreaker.CircuitBreaker[*http.Response]) {
	var policies []failsafe.Policy[*http.Response]

	if retryCfg != nil && retryCfg.MaxRetries > 0 {
		base, maxDelay := retryCfg.BaseDelay, retryCfg.MaxDelay
		if base <= 0 {
			base = 100 * time.Millisecond
		}
		if maxDelay < base {
			maxDelay = base
		}
		policies = append(policies, retrypolicy.NewBuilder[*http.Response]().
			WithBackoff(base, maxDelay).
			WithMaxRetries(retryCfg.MaxRetries).
			WithJitterFactor(0.1).
			HandleIf(ShouldRetry).
			ReturnLastFailure().
			Build())
	}

	var breaker circuitbreaker.CircuitBreaker[*http.Response]
	if breakerCfg != nil && breakerCfg.Window > 0 {
		threshold := max(breakerCfg.FailureThreshold, 1)
		breaker = circuitbreaker.NewBuilder[*http.Response]().
			WithFailureThresholdRatio(threshold, breakerCfg.Window).
			WithDelay(breakerCfg.Delay).
			WithSuccessThreshold(1).
			HandleIf(ShouldRetry).
			Build()
		policies = append(policies, breaker)
	}

	if len(policies) == 0 {
		return nil, nil
	}
	return failsafe.With(policies...), breaker
}

// IsCircuitOpen reports whether err was returned because the breaker is open.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, circuitbreaker.ErrOpen)
}

// BreakerOpen reports whether the client's circuit breaker currently rejects requests.
func (c *Client) BreakerOpen() bool {
	return c.breaker != nil && c.breaker.IsOpen()
}

// Do executes an HTTP request with timeout enforcement, retries and the breaker.
//
// If ctx has no deadline, the client's default timeout is applied; the timeout
// stays armed until the returned body is closed. A response that still fails
// after all retries is closed and reported as an error.
// The response body must be closed by the caller if err is nil.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cancel := context.CancelFunc(func() {})
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.defaultTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
	}
	req = req.WithContext(ctx)

	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.execute(ctx, req)
	if err != nil {
		cancel()
		return nil, err
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (c *Client) execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.executor == nil {
		return c.roundTrip(req)
	}

	var (
		attempt int
		last    *http.Response
	)
	resp, err := c.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		if last != nil {
			drainAndClose(last)
			last = nil
		}

		attemptReq := req
		if attempt > 0 {
			rewound, rewindErr := rewind(req)
			if rewindErr != nil {
				return nil, rewindErr
			}
			attemptReq = rewound
		}
		attempt++

		r, doErr := c.roundTrip(attemptReq)
		last = r
		return r, doErr
	})

	if err != nil {
		drainAndClose(last)
		if resp != nil && resp != last {
			drainAndClose(resp)
		}
		return nil, err
	}
	if ShouldRetry(resp, nil) {
		// Retries exhausted on a retryable status.
		status := resp.StatusCode
		drainAndClose(resp)
		return nil, errors.Newf("upstream returned status %d after %d attempts", status, attempt).
			Component("httpclient").
			Category(errors.CategoryRetry).
			Context("status_code", status).
			Context("attempts", attempt).
			Build()
	}
	return resp, nil
}

func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// rewind returns a copy of req with a fresh body for a retry attempt.
func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body cannot be replayed for retry")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// cancelOnClose releases the request timeout once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// Get performs a GET request with context.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// NewPostRequest builds a POST request for Do. body may be nil, an io.Reader,
// []byte, string, or any value that is marshaled to JSON.
func NewPostRequest(ctx context.Context, url, contentType string, body any) (*http.Request, error) {
	var bodyReader io.Reader = http.NoBody
	var isJSON bool

	switch v := body.(type) {
	case nil:
	case io.Reader:
		bodyReader = v
	case []byte:
		bodyReader = bytes.NewReader(v)
	case string:
		bodyReader = strings.NewReader(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		isJSON = true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request: %w", err)
	}

	switch {
	case contentType != "":
		req.Header.Set("Content-Type", contentType)
	case isJSON:
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// HTTPClient exposes the underlying *http.Client, for transport mocking in tests.
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

// Close closes idle connections in the connection pool.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
