package crm

import "context"

// Transport sends requests to the remote API.
type Transport interface {
	// Send performs one call. Network failures and server-side protocol
	// failures are returned as *TransportError.
	Send(ctx context.Context, req *Request) (*RawResponse, error)
	// SendBatch performs all calls and returns once every one has completed or
	// failed. Result i belongs to request i.
	SendBatch(ctx context.Context, reqs []*Request) []BatchResult
}

// Executor runs requests. Requests bound to an executor delegate Execute, Get
// and Paginator to it.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
	Paginator(req *Request) (Paginator, error)
}

// Paginator drives a paginated request one step at a time. A paginator serves
// exactly one logical call and is not safe for concurrent use.
type Paginator interface {
	// Fetch requests the next page, or the next group of pages when the
	// request declares a concurrency width. It returns the step's merged
	// response, or nil once the stream is exhausted.
	Fetch(ctx context.Context) (*Response, error)
	// FetchAll fetches until exhaustion and returns the merged response.
	FetchAll(ctx context.Context) (*Response, error)
	// HasMoreData reports whether another Fetch may return data. Once false it
	// stays false.
	HasMoreData() bool
	// FetchCount is the number of page requests issued so far.
	FetchCount() int
	// Pages returns the retained page responses in order.
	Pages() []*Response
}

// Transformer converts a decoded payload of one endpoint into domain data.
// The processor calls DetectError, IsEmpty, then EmptyValue or Clean and
// Convert, in that order.
type Transformer interface {
	DetectError(payload any) error
	IsEmpty(payload any, req *Request) bool
	EmptyValue(req *Request) any
	Clean(payload any, req *Request) (any, error)
	Convert(cleaned any, req *Request) (any, error)
}

// TokenProvider returns the credential injected by the authentication middleware.
type TokenProvider func(ctx context.Context) (string, error)

// PreExecuteHook observes a request right before it is dispatched. It receives
// its own copy of the prepared request.
type PreExecuteHook func(ctx context.Context, req *Request)

// PostExecuteHook observes the transport outcome of a dispatched request.
type PostExecuteHook func(ctx context.Context, req *Request, resp *RawResponse, err error)
