package crm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request describes one API call. Method and path come from the endpoint and
// are fixed at construction; everything else may be changed through the
// builder methods until the request is executed.
//
// Executing a request never mutates it: the executor works on a Clone.
type Request struct {
	endpoint   Endpoint
	module     string
	recordID   string
	params     Params
	headers    http.Header
	body       []byte
	pagination Pagination
	limits     SoftLimits
	pageSize   int
	executor   Executor
}

// NewRequest creates a request for the given endpoint and module.
func NewRequest(endpoint Endpoint, module string) *Request {
	return &Request{
		endpoint: endpoint,
		module:   module,
		params:   Params{},
		headers:  make(http.Header),
	}
}

// NewRequestFor creates a request for a built-in endpoint.
func NewRequestFor(id EndpointID, module string) (*Request, error) {
	endpoint, ok := LookupEndpoint(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, id)
	}

	return NewRequest(endpoint, module), nil
}

// Bind attaches the executor used by Execute, Get and Paginator.
func (r *Request) Bind(executor Executor) *Request {
	r.executor = executor

	return r
}

// Clone returns an independent copy of the request. The executor binding is shared.
func (r *Request) Clone() *Request {
	cloned := *r
	cloned.params = r.params.Clone()
	cloned.headers = r.headers.Clone()

	if cloned.headers == nil {
		cloned.headers = make(http.Header)
	}

	if r.body != nil {
		cloned.body = append([]byte(nil), r.body...)
	}

	return &cloned
}

// Endpoint returns the endpoint descriptor.
func (r *Request) Endpoint() Endpoint { return r.endpoint }

// Method returns the HTTP method.
func (r *Request) Method() Method { return r.endpoint.Method }

// Generation returns the API generation of the endpoint.
func (r *Request) Generation() Generation { return r.endpoint.Generation }

// Module returns the CRM module the request targets.
func (r *Request) Module() string { return r.module }

// RecordID returns the record id, if any.
func (r *Request) RecordID() string { return r.recordID }

// Path returns the resolved request path.
func (r *Request) Path() string {
	return r.endpoint.ResolvePath(r.module, r.recordID)
}

// Params returns the live parameter map.
func (r *Request) Params() Params { return r.params }

// ParamValue returns a single parameter.
func (r *Request) ParamValue(key string) (any, bool) {
	value, ok := r.params[key]

	return value, ok
}

// QueryValues returns the parameters cast to their wire form.
func (r *Request) QueryValues() url.Values {
	return r.params.Values(r.endpoint.Generation)
}

// Header returns the live header map.
func (r *Request) Header() http.Header { return r.headers }

// Body returns the request body.
func (r *Request) Body() []byte { return r.body }

// Pagination returns the pagination descriptor.
func (r *Request) Pagination() Pagination { return r.pagination }

// Limits returns the soft limits.
func (r *Request) Limits() SoftLimits { return r.limits }

// PageSize returns the configured page size, zero meaning the default.
func (r *Request) PageSize() int { return r.pageSize }

// WithParam sets a parameter.
func (r *Request) WithParam(key string, value any) *Request {
	r.params[key] = value

	return r
}

// WithParams sets several parameters.
func (r *Request) WithParams(params Params) *Request {
	for key, value := range params {
		r.params[key] = value
	}

	return r
}

// WithoutParam removes a parameter.
func (r *Request) WithoutParam(key string) *Request {
	delete(r.params, key)

	return r
}

// WithHeader sets a header.
func (r *Request) WithHeader(key, value string) *Request {
	r.headers.Set(key, value)

	return r
}

// WithBody sets the request body.
func (r *Request) WithBody(body []byte) *Request {
	r.body = body

	return r
}

// WithRecordID sets the record id used by the {id} path placeholder and the
// legacy "id" parameter.
func (r *Request) WithRecordID(id string) *Request {
	r.recordID = id

	if r.endpoint.Generation == GenerationLegacy && r.endpoint.RequiresRecordID {
		r.params["id"] = id
	}

	return r
}

// WithPageSize sets the number of items requested per page.
func (r *Request) WithPageSize(size int) *Request {
	r.pageSize = size

	return r
}

// WithMaxItems sets the item-count soft limit.
func (r *Request) WithMaxItems(n int) *Request {
	r.limits.MaxItems = n

	return r
}

// WithModifiedUntil sets the modification-time soft limit.
func (r *Request) WithModifiedUntil(t time.Time) *Request {
	r.limits.MaxModifiedTime = t

	return r
}

// AutoPaginated switches automatic pagination on or off.
func (r *Request) AutoPaginated(enabled bool) *Request {
	if enabled {
		r.pagination.Mode = PaginationAuto
	} else {
		r.pagination.Mode = PaginationOff
	}

	return r
}

// Concurrency sets how many pages are requested at once while auto-paginating.
func (r *Request) Concurrency(n int) *Request {
	r.pagination.Concurrency = n

	return r
}

// Execute runs the request through its executor.
func (r *Request) Execute(ctx context.Context) (*Response, error) {
	if r.executor == nil {
		return nil, ErrNoExecutor
	}

	return r.executor.Execute(ctx, r)
}

// Get executes the request and returns only the transformed content.
func (r *Request) Get(ctx context.Context) (any, error) {
	resp, err := r.Execute(ctx)
	if err != nil {
		return nil, err
	}

	return resp.Content, nil
}

// Paginator returns a paginator for manual page-by-page stepping.
func (r *Request) Paginator() (Paginator, error) {
	if r.executor == nil {
		return nil, ErrNoExecutor
	}

	return r.executor.Paginator(r)
}

// String implements fmt.Stringer.
func (r *Request) String() string {
	return fmt.Sprintf("%s %s", r.endpoint.Method, r.Path())
}
