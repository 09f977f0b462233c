package crm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fivetwenty-io/crm-client/internal/constants"
)

// Middleware prepares a request before it is sent. It may mutate the request
// it receives, which is always a private copy of the caller's request.
type Middleware func(ctx context.Context, req *Request) error

// MiddlewareChain applies middlewares in registration order.
type MiddlewareChain struct {
	middlewares []Middleware
}

// NewMiddlewareChain creates a chain from the given middlewares.
func NewMiddlewareChain(middlewares ...Middleware) *MiddlewareChain {
	chain := &MiddlewareChain{middlewares: make([]Middleware, 0, len(middlewares))}
	chain.Use(middlewares...)

	return chain
}

// Use appends middlewares to the chain.
func (c *MiddlewareChain) Use(middlewares ...Middleware) {
	for _, middleware := range middlewares {
		if middleware != nil {
			c.middlewares = append(c.middlewares, middleware)
		}
	}
}

// Len returns the number of registered middlewares.
func (c *MiddlewareChain) Len() int {
	return len(c.middlewares)
}

// Apply runs every middleware against req and stops at the first failure.
func (c *MiddlewareChain) Apply(ctx context.Context, req *Request) error {
	for i, middleware := range c.middlewares {
		err := middleware(ctx, req)
		if err != nil {
			return fmt.Errorf("middleware %d failed: %w", i, err)
		}
	}

	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// requestShape is the structural view of a request checked by ValidationMiddleware.
type requestShape struct {
	NeedsModule bool
	NeedsID     bool
	Module      string `validate:"required_if=NeedsModule true,excludesall=/?#&"`
	RecordID    string `validate:"required_if=NeedsID true,excludesall=/?#&"`
	PageSize    int    `validate:"omitempty,min=1,max=200"`
	Concurrency int    `validate:"omitempty,min=1,max=20"`
	MaxItems    int    `validate:"min=0"`
}

// ValidationMiddleware rejects structurally invalid requests before any I/O.
func ValidationMiddleware() Middleware {
	return func(ctx context.Context, req *Request) error {
		endpoint := req.Endpoint()

		shape := requestShape{
			NeedsModule: endpoint.RequiresModule,
			NeedsID:     endpoint.RequiresRecordID,
			Module:      req.Module(),
			RecordID:    req.RecordID(),
			PageSize:    req.PageSize(),
			Concurrency: req.Pagination().Concurrency,
			MaxItems:    req.Limits().MaxItems,
		}

		err := validate.Struct(shape)
		if err != nil {
			return validationFailure(req, err)
		}

		if req.Body() != nil && !req.Method().AllowsBody() {
			return &ValidationError{
				Field:   "body",
				Message: fmt.Sprintf("%s requests cannot carry a body", req.Method()),
				Request: req,
			}
		}

		if req.Pagination().IsAuto() && !endpoint.Paginated {
			return &ValidationError{
				Field:   "pagination",
				Message: "endpoint " + string(endpoint.ID) + " is not paginated",
				Request: req,
				Err:     ErrNotPaginated,
			}
		}

		if !req.Limits().MaxModifiedTime.IsZero() && !sortedByModifiedTime(req) {
			return &ValidationError{
				Field:   "limits",
				Message: "a modification-time limit requires ascending sort on the modified time field",
				Request: req,
			}
		}

		return nil
	}
}

func validationFailure(req *Request, err error) error {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fieldErr := fieldErrors[0]

		return &ValidationError{
			Field:   fieldErr.Field(),
			Message: fmt.Sprintf("failed on the '%s' rule", fieldErr.Tag()),
			Request: req,
		}
	}

	return &ValidationError{Message: err.Error(), Request: req, Err: err}
}

func sortedByModifiedTime(req *Request) bool {
	columnKey, orderKey, column := "sort_by", "sort_order", constants.ModifiedTimeField
	if req.Generation() == GenerationLegacy {
		columnKey, orderKey, column = "sortColumnString", "sortOrderString", constants.LegacyModifiedTimeField
	}

	return paramEquals(req, columnKey, column) && paramEquals(req, orderKey, "asc")
}

func paramEquals(req *Request, key, want string) bool {
	value, ok := req.ParamValue(key)
	if !ok {
		return false
	}

	got, ok := FormatParam(value, req.Generation())

	return ok && strings.EqualFold(got, want)
}

// AuthenticationMiddleware injects the credential returned by provider. Legacy
// requests carry it as the authtoken parameter, modern requests as an
// Authorization header.
func AuthenticationMiddleware(provider TokenProvider) Middleware {
	return func(ctx context.Context, req *Request) error {
		token, err := provider(ctx)
		if err != nil {
			return &ValidationError{
				Field:   "credential",
				Message: "token provider failed",
				Request: req,
				Err:     fmt.Errorf("%w: %w", ErrAuthentication, err),
			}
		}

		if token == "" {
			return &ValidationError{
				Field:   "credential",
				Message: "token provider returned an empty token",
				Request: req,
				Err:     ErrAuthentication,
			}
		}

		if req.Generation() == GenerationLegacy {
			req.WithParam("authtoken", token)
			req.WithParam("scope", constants.LegacyAuthScope)

			return nil
		}

		req.WithHeader("Authorization", constants.OAuthHeaderPrefix+token)

		return nil
	}
}

var payloadParams = map[string]bool{"xmlData": true, "jsonData": true}

// PayloadRelocationMiddleware moves parameters of POST and PUT requests into a
// form-encoded body once the encoded query grows beyond threshold bytes.
// Payload parameters are moved first, then the largest remaining ones until the
// query fits.
func PayloadRelocationMiddleware(threshold int) Middleware {
	if threshold <= 0 {
		threshold = constants.DefaultRelocationThreshold
	}

	return func(ctx context.Context, req *Request) error {
		if req.Method() != MethodPost && req.Method() != MethodPut {
			return nil
		}

		if req.Body() != nil {
			return nil
		}

		values := req.QueryValues()
		if len(values.Encode()) <= threshold {
			return nil
		}

		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}

		sort.SliceStable(keys, func(i, j int) bool {
			if payloadParams[keys[i]] != payloadParams[keys[j]] {
				return payloadParams[keys[i]]
			}

			if len(values.Get(keys[i])) != len(values.Get(keys[j])) {
				return len(values.Get(keys[i])) > len(values.Get(keys[j]))
			}

			return keys[i] < keys[j]
		})

		form := url.Values{}

		for _, key := range keys {
			if !payloadParams[key] && len(values.Encode()) <= threshold {
				break
			}

			form[key] = values[key]
			values.Del(key)
			req.WithoutParam(key)
		}

		req.WithBody([]byte(form.Encode()))
		req.WithHeader("Content-Type", constants.FormContentType)

		return nil
	}
}

// HeaderMiddleware adds custom headers to requests.
func HeaderMiddleware(headers map[string]string) Middleware {
	return func(ctx context.Context, req *Request) error {
		for key, value := range headers {
			req.WithHeader(key, value)
		}

		return nil
	}
}

// LoggingMiddleware logs requests.
func LoggingMiddleware(logger Logger) Middleware {
	return func(ctx context.Context, req *Request) error {
		logger.Debug("API Request", map[string]interface{}{
			"method":   string(req.Method()),
			"path":     req.Path(),
			"endpoint": string(req.Endpoint().ID),
			"params":   len(req.Params()),
		})

		return nil
	}
}
