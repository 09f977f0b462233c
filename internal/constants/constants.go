package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// CLI configuration.
const (
	// ConfigDirName is the directory under $HOME holding the CLI config.
	ConfigDirName = ".crm"

	// ConfigFileName is the CLI config file name.
	ConfigFileName = "config.yml"

	// EnvPrefix prefixes environment variables read by the CLI.
	EnvPrefix = "CRM"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Default endpoints.
const (
	// DefaultAPIEndpoint is the base URL of the modern REST API.
	DefaultAPIEndpoint = "https://www.zohoapis.com"

	// DefaultLegacyAPIEndpoint is the base URL of the legacy API.
	DefaultLegacyAPIEndpoint = "https://crm.zoho.com"

	// DefaultTokenURL is the OAuth token endpoint used for refresh grants.
	DefaultTokenURL = "https://accounts.zoho.com/oauth/v2/token"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry and concurrency limits.
const (
	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// DefaultConcurrencyLimit bounds concurrent requests of one batch.
	DefaultConcurrencyLimit = 5

	// MaxConcurrencyLimit is the widest fan-out a single paginated call may request.
	MaxConcurrencyLimit = 20
)

// HTTP status thresholds.
const (
	// HTTPStatusInternalServerError is the first status treated as a transport failure.
	HTTPStatusInternalServerError = 500
)

// Pagination.
const (
	// MaxPageSize is the widest window either API generation serves per call.
	MaxPageSize = 200
)

// Request shaping.
const (
	// DefaultRelocationThreshold is the encoded query length above which large
	// parameters move into the request body.
	DefaultRelocationThreshold = 2048

	// LegacyAuthScope is the scope parameter sent with legacy authtoken calls.
	LegacyAuthScope = "crmapi"

	// OAuthHeaderPrefix prefixes the access token in the Authorization header.
	OAuthHeaderPrefix = "Zoho-oauthtoken "

	// FormContentType is set when parameters move into the body.
	FormContentType = "application/x-www-form-urlencoded"

	// JSONContentType is set on JSON request bodies.
	JSONContentType = "application/json"
)

// Time formats.
const (
	// LegacyTimeLayout is the timestamp layout used by the legacy API.
	LegacyTimeLayout = "2006-01-02 15:04:05"
)

// Field names carrying record modification times.
const (
	// LegacyModifiedTimeField is the modified-time field name in legacy rows.
	LegacyModifiedTimeField = "Modified Time"

	// ModifiedTimeField is the modified-time field name in modern records.
	ModifiedTimeField = "Modified_Time"
)

// Authentication.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second
)
