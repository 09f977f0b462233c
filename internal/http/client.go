package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fivetwenty-io/crm-client/internal/constants"
	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// Static errors for err113 compliance.
var (
	ErrServerStatus = errors.New("server returned an error status")
	ErrCircuitOpen  = errors.New("request rejected by circuit breaker")
)

const defaultUserAgent = "crm-client/1.0"

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Client is the HTTP transport of the CRM client. It implements crm.Transport.
type Client struct {
	baseURL        string
	legacyBaseURL  string
	httpClient     *retryablehttp.Client
	logger         Logger
	debug          bool
	userAgent      string
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker
	maxConcurrency int
	requests       atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig enables retries of transient failures.
func WithRetryConfig(retryMax int, retryWaitMin, retryWaitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = retryWaitMin
		c.httpClient.RetryWaitMax = retryWaitMax
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// WithLegacyBaseURL sets the base URL used by legacy endpoints.
func WithLegacyBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.legacyBaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRateLimit caps the number of calls per second.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithCircuitBreaker opens the circuit after threshold consecutive transport
// failures and keeps it open for timeout.
func WithCircuitBreaker(threshold uint32, timeout time.Duration) Option {
	return func(c *Client) {
		if threshold == 0 {
			return
		}

		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "crm-transport",
			Timeout: timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		})
	}
}

// WithMaxConcurrency bounds the number of in-flight calls of one batch.
func WithMaxConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxConcurrency = min(n, constants.MaxConcurrencyLimit)
		}
	}
}

// NewClient creates a transport for baseURL. Legacy endpoints use the same
// base URL unless WithLegacyBaseURL is given.
func NewClient(baseURL string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = 0
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	trimmed := strings.TrimRight(baseURL, "/")

	client := &Client{
		baseURL:        trimmed,
		legacyBaseURL:  trimmed,
		httpClient:     retryClient,
		userAgent:      defaultUserAgent,
		maxConcurrency: constants.DefaultConcurrencyLimit,
	}

	// Send counts the first attempt; the hook counts retries.
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		if attempt > 0 {
			client.requests.Add(1)
		}
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// RequestCount returns the number of attempts made, retries and calls refused
// by the rate limiter or circuit breaker included.
func (c *Client) RequestCount() int64 {
	return c.requests.Load()
}

// URL returns the full URL of a request.
func (c *Client) URL(req *crm.Request) string {
	base := c.baseURL
	if req.Generation() == crm.GenerationLegacy {
		base = c.legacyBaseURL
	}

	fullURL := base + req.Path()
	if query := req.QueryValues().Encode(); query != "" {
		fullURL += "?" + query
	}

	return fullURL
}

// Send performs one call. Responses below 500 are returned as is; network
// failures and 5xx responses become *crm.TransportError.
func (c *Client) Send(ctx context.Context, req *crm.Request) (*crm.RawResponse, error) {
	c.requests.Add(1)

	if c.limiter != nil {
		err := c.limiter.Wait(ctx)
		if err != nil {
			return nil, c.transportError(req, 0, err)
		}
	}

	if c.breaker == nil {
		return c.send(ctx, req)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.send(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, c.transportError(req, 0, fmt.Errorf("%w: %w", ErrCircuitOpen, err))
		}

		return nil, err
	}

	resp, _ := result.(*crm.RawResponse)

	return resp, nil
}

// SendBatch performs all calls concurrently, bounded by the configured
// concurrency. Result i belongs to request i; failures are *crm.BatchError.
func (c *Client) SendBatch(ctx context.Context, reqs []*crm.Request) []crm.BatchResult {
	results := make([]crm.BatchResult, len(reqs))

	var group errgroup.Group
	group.SetLimit(c.maxConcurrency)

	for index, req := range reqs {
		group.Go(func() error {
			resp, err := c.Send(ctx, req)
			if err != nil {
				err = &crm.BatchError{Index: index, Err: err}
			}

			results[index] = crm.BatchResult{Response: resp, Err: err}

			return nil
		})
	}

	_ = group.Wait()

	return results
}

func (c *Client) send(ctx context.Context, req *crm.Request) (*crm.RawResponse, error) {
	fullURL := c.URL(req)

	var body interface{}
	if req.Body() != nil {
		body = bytes.NewReader(req.Body())
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, string(req.Method()), fullURL, body)
	if err != nil {
		return nil, c.transportError(req, 0, fmt.Errorf("creating request: %w", err))
	}

	for key, values := range req.Header() {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", constants.JSONContentType)

	if req.Body() != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", defaultContentType(req))
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": string(req.Method()),
			"url":    crm.RedactSecrets(fullURL),
		})
	}

	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(req, 0, err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(req, resp.StatusCode, fmt.Errorf("reading response body: %w", err))
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":   resp.StatusCode,
			"duration": time.Since(start).String(),
			"bytes":    len(respBody),
		})
	}

	if resp.StatusCode >= constants.HTTPStatusInternalServerError {
		return nil, c.transportError(req, resp.StatusCode, fmt.Errorf("%w: %s", ErrServerStatus, http.StatusText(resp.StatusCode)))
	}

	return &crm.RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

func (c *Client) transportError(req *crm.Request, statusCode int, err error) *crm.TransportError {
	if c.logger != nil {
		c.logger.Warn("HTTP transport failure", map[string]interface{}{
			"method": string(req.Method()),
			"path":   req.Path(),
			"status": statusCode,
		})
	}

	return &crm.TransportError{
		Method:     string(req.Method()),
		URL:        crm.RedactSecrets(c.URL(req)),
		StatusCode: statusCode,
		Err:        &redactedError{msg: crm.RedactSecrets(err.Error()), err: err},
	}
}

func defaultContentType(req *crm.Request) string {
	if req.Generation() == crm.GenerationLegacy {
		return constants.FormContentType
	}

	return constants.JSONContentType
}

// redactedError keeps the cause reachable for errors.Is while its message no
// longer carries credentials.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
