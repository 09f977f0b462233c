package crm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a crm.Client.
//
// # Authentication precedence
//
// The concrete client (see pkg/crmclient) picks the credential source as
// follows:
//  1. RefreshToken + ClientID/ClientSecret: access tokens are obtained and
//     renewed through the OAuth2 refresh grant at TokenURL.
//  2. AccessToken: used as is for modern endpoints.
//  3. AuthToken: used as is for legacy endpoints, and for modern endpoints
//     when no other credential is configured.
//
// Legacy endpoints use AuthToken when it is set and fall back to the modern
// credential otherwise. The authentication middleware decides where the
// credential goes.
//
// # Retries
//
// Retries are disabled unless RetryMax is positive. The pipeline itself never
// retries a failed execution.
type Config struct {
	// APIEndpoint: base URL of the modern REST API (e.g., "https://www.zohoapis.com").
	APIEndpoint string
	// LegacyAPIEndpoint: base URL of the legacy API (e.g., "https://crm.zoho.com").
	LegacyAPIEndpoint string

	// AuthToken: legacy authtoken.
	AuthToken string
	// AccessToken: OAuth access token used directly.
	AccessToken string
	// RefreshToken, ClientID, ClientSecret: enable OAuth2 refresh.
	RefreshToken string
	ClientID     string
	ClientSecret string
	// TokenURL: OAuth2 token endpoint. Defaults to the accounts server.
	TokenURL string

	// HTTPTimeout: per-attempt HTTP timeout.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of retries for transient failures. Zero disables retries.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit: maximum requests per second sent by the transport. Zero disables it.
	RateLimit float64
	// CircuitBreakerThreshold: consecutive transport failures that open the
	// circuit. Zero disables the breaker.
	CircuitBreakerThreshold uint32
	// CircuitBreakerTimeout: how long the circuit stays open.
	CircuitBreakerTimeout time.Duration
	// MaxConcurrency bounds the number of in-flight requests of one batch.
	MaxConcurrency int
	// RelocationThreshold: encoded query size above which POST and PUT
	// parameters move into the body.
	RelocationThreshold int

	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer and the processor.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string

	// Middlewares run after the built-in validation, authentication and
	// payload relocation stages.
	Middlewares      []Middleware
	PreExecuteHooks  []PreExecuteHook
	PostExecuteHooks []PostExecuteHook
	// Transformers override or extend the built-in transformer registry.
	Transformers map[EndpointID]Transformer

	// MetricsRegisterer: when set, execution metrics are registered on it.
	MetricsRegisterer prometheus.Registerer
	// NATSURL: when set, one event per execution is published to NATSSubject.
	NATSURL     string
	NATSSubject string
}
