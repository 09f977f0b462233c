package crm

import (
	"errors"
	"fmt"
)

// Static errors for err113 compliance.
var (
	ErrNoExecutor      = errors.New("request is not bound to an executor")
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	ErrNoTransformer   = errors.New("no transformer registered for endpoint")
	ErrPaginatedBatch  = errors.New("auto-paginated requests cannot be batched")
	ErrNotPaginated    = errors.New("endpoint does not support pagination")
	ErrValidation      = errors.New("request validation failed")
	ErrConfigRequired  = errors.New("config is required")
	ErrEmptyBatch      = errors.New("batch contains no requests")
)

// API error categories. An *APIError matches its category sentinel and ErrAPI
// through errors.Is.
var (
	ErrAPI              = errors.New("CRM API error")
	ErrRateLimited      = errors.New("API rate limit exceeded")
	ErrAuthentication   = errors.New("authentication failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrNotFound         = errors.New("resource not found")
	ErrServerError      = errors.New("remote server error")
)

// ErrorKind is the stable classification of every error the client returns.
type ErrorKind string

// Error kinds.
const (
	KindValidation ErrorKind = "validation"
	KindTransport  ErrorKind = "transport"
	KindAPI        ErrorKind = "api"
	KindUnreadable ErrorKind = "unreadable_response"
	KindBatch      ErrorKind = "batch_partial"
	KindUnknown    ErrorKind = "unknown"
)

// APICategory groups vendor error codes.
type APICategory string

// API categories.
const (
	CategoryRateLimit      APICategory = "rate_limit"
	CategoryAuthentication APICategory = "authentication"
	CategoryPermission     APICategory = "permission"
	CategoryInvalidRequest APICategory = "invalid_request"
	CategoryNotFound       APICategory = "not_found"
	CategoryServer         APICategory = "server"
	CategoryGeneric        APICategory = "generic"
)

// codeCategories maps legacy numeric codes and modern symbolic codes.
var codeCategories = map[string]APICategory{
	"4820":              CategoryRateLimit,
	"4421":              CategoryRateLimit,
	"4424":              CategoryRateLimit,
	"TOO_MANY_REQUESTS": CategoryRateLimit,

	"4000":                   CategoryAuthentication,
	"4500":                   CategoryServer,
	"4501":                   CategoryAuthentication,
	"4834":                   CategoryAuthentication,
	"4890":                   CategoryAuthentication,
	"INVALID_TOKEN":          CategoryAuthentication,
	"AUTHENTICATION_FAILURE": CategoryAuthentication,
	"AUTHORIZATION_FAILED":   CategoryAuthentication,

	"4001":                 CategoryPermission,
	"4487":                 CategoryPermission,
	"NO_PERMISSION":        CategoryPermission,
	"OAUTH_SCOPE_MISMATCH": CategoryPermission,

	"4401":                   CategoryInvalidRequest,
	"4502":                   CategoryInvalidRequest,
	"4600":                   CategoryInvalidRequest,
	"4831":                   CategoryInvalidRequest,
	"4832":                   CategoryInvalidRequest,
	"4835":                   CategoryInvalidRequest,
	"INVALID_DATA":           CategoryInvalidRequest,
	"INVALID_MODULE":         CategoryInvalidRequest,
	"INVALID_URL_PATTERN":    CategoryInvalidRequest,
	"INVALID_REQUEST_METHOD": CategoryInvalidRequest,
	"MANDATORY_NOT_FOUND":    CategoryInvalidRequest,
	"REQUIRED_PARAM_MISSING": CategoryInvalidRequest,

	"4103":             CategoryNotFound,
	"4423":             CategoryNotFound,
	"RECORD_NOT_FOUND": CategoryNotFound,

	"INTERNAL_ERROR": CategoryServer,
}

// CategoryOf returns the category of a vendor error code.
func CategoryOf(code string) APICategory {
	if category, ok := codeCategories[code]; ok {
		return category
	}

	return CategoryGeneric
}

func (c APICategory) sentinel() error {
	switch c {
	case CategoryRateLimit:
		return ErrRateLimited
	case CategoryAuthentication:
		return ErrAuthentication
	case CategoryPermission:
		return ErrPermissionDenied
	case CategoryInvalidRequest:
		return ErrInvalidRequest
	case CategoryNotFound:
		return ErrNotFound
	case CategoryServer:
		return ErrServerError
	default:
		return ErrAPI
	}
}

// ValidationError reports a structurally invalid request. It is raised before
// any I/O.
type ValidationError struct {
	Field   string
	Message string
	Request *Request
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error { return e.Err }

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransportError reports a network or protocol failure. Messages are redacted
// before the error is built.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport error: %s %s: status %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("transport error: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error { return e.Err }

// APIError is an application-level failure encoded in a response body.
type APIError struct {
	Code     string      `json:"code"     yaml:"code"`
	Message  string      `json:"message"  yaml:"message"`
	Category APICategory `json:"category" yaml:"category"`
	Request  *Request    `json:"-"        yaml:"-"`
}

// NewAPIError builds an APIError, mapping the code to its category.
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:     code,
		Message:  message,
		Category: CategoryOf(code),
	}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (code: %s)", e.Category.sentinel(), e.Message, e.Code)
}

// Is matches ErrAPI and the sentinel of the error's category.
func (e *APIError) Is(target error) bool {
	return target == ErrAPI || target == e.Category.sentinel()
}

// UnreadableResponseError reports a body that could not be decoded at all.
type UnreadableResponseError struct {
	Snippet string
	Err     error
}

const snippetLimit = 256

// NewUnreadableResponseError keeps a short, printable prefix of the body.
func NewUnreadableResponseError(body []byte, err error) *UnreadableResponseError {
	snippet := body
	if len(snippet) > snippetLimit {
		snippet = snippet[:snippetLimit]
	}

	return &UnreadableResponseError{Snippet: RedactSecrets(string(snippet)), Err: err}
}

// Error implements the error interface.
func (e *UnreadableResponseError) Error() string {
	return fmt.Sprintf("unreadable response: %v (body: %q)", e.Err, e.Snippet)
}

// Unwrap returns the decoding error.
func (e *UnreadableResponseError) Unwrap() error { return e.Err }

// BatchError attributes a failure to one request of a batch.
type BatchError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return fmt.Sprintf("batch request %d failed: %v", e.Index, e.Err)
}

// Unwrap returns the original failure.
func (e *BatchError) Unwrap() error { return e.Err }

// PageError attributes a failure to one page of a paginated call.
type PageError struct {
	Page int
	Err  error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("fetching page %d: %v", e.Page, e.Err)
}

// Unwrap returns the original failure.
func (e *PageError) Unwrap() error { return e.Err }

// KindOf classifies an error returned by the client.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		return KindBatch
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindValidation
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return KindAPI
	}

	var unreadableErr *UnreadableResponseError
	if errors.As(err, &unreadableErr) {
		return KindUnreadable
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return KindTransport
	}

	return KindUnknown
}

// IsRateLimited checks if the error is a rate-limit API error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsNotFound checks if the error is a not found API error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthentication checks if the error is an authentication API error.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsValidation checks if the error was raised before any I/O.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
