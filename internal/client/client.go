package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/fivetwenty-io/crm-client/internal/auth"
	"github.com/fivetwenty-io/crm-client/internal/constants"
	"github.com/fivetwenty-io/crm-client/internal/hooks"
	"github.com/fivetwenty-io/crm-client/internal/http"
	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// Static errors for err113 compliance.
var (
	ErrAPIEndpointRequired      = errors.New("API endpoint is required")
	ErrNoTokenManagerConfigured = errors.New("no token manager configured")
)

// requestCounter is implemented by transports that count HTTP attempts.
type requestCounter interface {
	RequestCount() int64
}

// Client implements the crm.Client interface.
type Client struct {
	transport          crm.Transport
	processor          *Processor
	tokenManager       auth.TokenManager
	legacyTokenManager auth.TokenManager
	closers            []func() error
}

var _ crm.Client = (*Client)(nil)

// createTokenManager creates the token manager used for modern endpoints.
func createTokenManager(config *crm.Config) auth.TokenManager {
	if config.RefreshToken != "" && config.ClientID != "" && config.ClientSecret != "" {
		return auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:     config.TokenURL,
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RefreshToken: config.RefreshToken,
			AccessToken:  config.AccessToken,
		})
	}

	if config.AccessToken != "" {
		return auth.NewStaticTokenManager(config.AccessToken)
	}

	if config.AuthToken != "" {
		return auth.NewStaticTokenManager(config.AuthToken)
	}

	return nil
}

// createLegacyTokenManager creates the token manager used for legacy
// endpoints. Without an authtoken the modern credential is tried.
func createLegacyTokenManager(config *crm.Config, fallback auth.TokenManager) auth.TokenManager {
	if config.AuthToken != "" {
		return auth.NewStaticTokenManager(config.AuthToken)
	}

	return fallback
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *crm.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.LegacyAPIEndpoint != "" {
		httpOpts = append(httpOpts, http.WithLegacyBaseURL(config.LegacyAPIEndpoint))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if config.RateLimit > 0 {
		httpOpts = append(httpOpts, http.WithRateLimit(config.RateLimit))
	}

	if config.CircuitBreakerThreshold > 0 {
		httpOpts = append(httpOpts, http.WithCircuitBreaker(config.CircuitBreakerThreshold, config.CircuitBreakerTimeout))
	}

	if config.MaxConcurrency > 0 {
		httpOpts = append(httpOpts, http.WithMaxConcurrency(config.MaxConcurrency))
	}

	return httpOpts
}

// New creates a CRM client talking HTTP to config.APIEndpoint.
func New(ctx context.Context, config *crm.Config) (*Client, error) {
	return NewWithTokenManager(ctx, config, createTokenManager(config))
}

// NewWithTokenManager creates a CRM client with a custom token manager for
// modern endpoints.
func NewWithTokenManager(ctx context.Context, config *crm.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config.APIEndpoint == "" {
		return nil, ErrAPIEndpointRequired
	}

	transport := http.NewClient(config.APIEndpoint, createHTTPClientOptions(config)...)

	return NewWithTransport(ctx, config, transport, tokenManager)
}

// NewWithTransport creates a CRM client on top of any transport.
func NewWithTransport(ctx context.Context, config *crm.Config, transport crm.Transport, tokenManager auth.TokenManager) (*Client, error) {
	client := &Client{
		transport:          transport,
		tokenManager:       tokenManager,
		legacyTokenManager: createLegacyTokenManager(config, tokenManager),
	}

	preHooks := append([]crm.PreExecuteHook(nil), config.PreExecuteHooks...)
	postHooks := append([]crm.PostExecuteHook(nil), config.PostExecuteHooks...)

	if config.MetricsRegisterer != nil {
		metrics, err := hooks.NewMetrics(config.MetricsRegisterer)
		if err != nil {
			return nil, fmt.Errorf("creating metrics hooks: %w", err)
		}

		preHooks = append(preHooks, metrics.PreExecute)
		postHooks = append(postHooks, metrics.PostExecute)
	}

	if config.NATSURL != "" {
		publisher, err := hooks.ConnectNATS(ctx, config.NATSURL, config.NATSSubject, config.Logger)
		if err != nil {
			return nil, fmt.Errorf("creating execution event publisher: %w", err)
		}

		postHooks = append(postHooks, publisher.PostExecute)
		client.closers = append(client.closers, publisher.Close)
	}

	client.processor = NewProcessor(
		transport,
		client.middlewareChain(config),
		NewRegistry(config.Transformers),
		WithPreExecuteHooks(preHooks...),
		WithPostExecuteHooks(postHooks...),
		WithProcessorLogger(config.Logger),
	)

	return client, nil
}

// middlewareChain registers validation, authentication and payload
// relocation, then the configured middlewares.
func (c *Client) middlewareChain(config *crm.Config) *crm.MiddlewareChain {
	chain := crm.NewMiddlewareChain(
		crm.ValidationMiddleware(),
		c.authenticationMiddleware(),
		crm.PayloadRelocationMiddleware(config.RelocationThreshold),
	)

	if config.Debug && config.Logger != nil {
		chain.Use(crm.LoggingMiddleware(config.Logger))
	}

	chain.Use(config.Middlewares...)

	return chain
}

func (c *Client) authenticationMiddleware() crm.Middleware {
	modern := crm.AuthenticationMiddleware(tokenProvider(c.tokenManager))
	legacy := crm.AuthenticationMiddleware(tokenProvider(c.legacyTokenManager))

	return func(ctx context.Context, req *crm.Request) error {
		if req.Generation() == crm.GenerationLegacy {
			return legacy(ctx, req)
		}

		return modern(ctx, req)
	}
}

func tokenProvider(manager auth.TokenManager) crm.TokenProvider {
	return func(ctx context.Context) (string, error) {
		if manager == nil {
			return "", auth.ErrNoToken
		}

		token, err := manager.GetToken(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to get token: %w", err)
		}

		return token, nil
	}
}

// Execute implements crm.Executor.Execute.
func (c *Client) Execute(ctx context.Context, req *crm.Request) (*crm.Response, error) {
	return c.processor.Execute(ctx, req)
}

// Paginator implements crm.Executor.Paginator.
func (c *Client) Paginator(req *crm.Request) (crm.Paginator, error) {
	return c.processor.Paginator(req)
}

// ExecuteBatch implements crm.Client.ExecuteBatch.
func (c *Client) ExecuteBatch(ctx context.Context, reqs []*crm.Request) ([]*crm.Response, error) {
	return c.processor.ExecuteBatch(ctx, reqs)
}

// NewQuery implements crm.Client.NewQuery.
func (c *Client) NewQuery(id crm.EndpointID, module string) (*crm.Request, error) {
	return query(c, id, module)
}

// Records implements crm.Client.Records.
func (c *Client) Records(module string) crm.RecordsClient {
	return NewRecordsClient(c, module)
}

// LegacyRecords implements crm.Client.LegacyRecords.
func (c *Client) LegacyRecords(module string) crm.LegacyRecordsClient {
	return NewLegacyRecordsClient(c, module)
}

// ExecutionCount implements crm.Client.ExecutionCount.
func (c *Client) ExecutionCount() int64 {
	return c.processor.ExecutionCount()
}

// RequestCount implements crm.Client.RequestCount.
func (c *Client) RequestCount() int64 {
	counter, ok := c.transport.(requestCounter)
	if !ok {
		return 0
	}

	return counter.RequestCount()
}

// GetTokenManager returns the token manager for modern endpoints.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// GetToken returns the current access token from the token manager.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	if c.tokenManager == nil {
		return "", ErrNoTokenManagerConfigured
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}

	return token, nil
}

// Close releases resources held by hooks.
func (c *Client) Close() error {
	var errs []error

	for _, closer := range c.closers {
		err := closer()
		if err != nil {
			errs = append(errs, err)
		}
	}

	c.closers = nil

	return errors.Join(errs...)
}
