package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// Static errors for err113 compliance.
var (
	ErrBatchSizeMismatch = errors.New("transport returned a different number of batch results")
	errTrailingData      = errors.New("unexpected data after JSON document")
)

// Processor runs requests through middleware, hooks, transport and the
// matching transformer. It implements crm.Executor.
type Processor struct {
	transport  crm.Transport
	chain      *crm.MiddlewareChain
	registry   *Registry
	preHooks   []crm.PreExecuteHook
	postHooks  []crm.PostExecuteHook
	logger     crm.Logger
	executions atomic.Int64
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithPreExecuteHooks registers hooks fired right before dispatch.
func WithPreExecuteHooks(hooks ...crm.PreExecuteHook) ProcessorOption {
	return func(p *Processor) {
		p.preHooks = append(p.preHooks, hooks...)
	}
}

// WithPostExecuteHooks registers hooks fired after the transport returned.
func WithPostExecuteHooks(hooks ...crm.PostExecuteHook) ProcessorOption {
	return func(p *Processor) {
		p.postHooks = append(p.postHooks, hooks...)
	}
}

// WithProcessorLogger sets the logger.
func WithProcessorLogger(logger crm.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a processor. A nil chain means no middleware; a nil
// registry means the built-in transformers.
func NewProcessor(transport crm.Transport, chain *crm.MiddlewareChain, registry *Registry, opts ...ProcessorOption) *Processor {
	if chain == nil {
		chain = crm.NewMiddlewareChain()
	}

	if registry == nil {
		registry = NewRegistry(nil)
	}

	processor := &Processor{
		transport: transport,
		chain:     chain,
		registry:  registry,
	}

	for _, opt := range opts {
		opt(processor)
	}

	return processor
}

// ExecutionCount returns the number of dispatched calls: one per single
// execution, per page and per batch slot.
func (p *Processor) ExecutionCount() int64 {
	return p.executions.Load()
}

// Execute runs a request. Auto-paginated requests are delegated to a fresh
// paginator and return the merged response.
func (p *Processor) Execute(ctx context.Context, req *crm.Request) (*crm.Response, error) {
	if req.Pagination().IsAuto() {
		pager, err := p.newPaginator(req)
		if err != nil {
			return nil, err
		}

		return pager.FetchAll(ctx)
	}

	return p.executeSingle(ctx, req)
}

// Paginator returns a paginator for manual stepping.
func (p *Processor) Paginator(req *crm.Request) (crm.Paginator, error) {
	pager, err := p.newPaginator(req)
	if err != nil {
		return nil, err
	}

	return pager, nil
}

// ExecuteBatch runs non-paginated requests through one transport batch.
// Response i belongs to request i. When some requests fail, the successful
// slots are still filled and the failure with the lowest index is returned.
func (p *Processor) ExecuteBatch(ctx context.Context, reqs []*crm.Request) ([]*crm.Response, error) {
	for index, req := range reqs {
		if req.Pagination().IsAuto() {
			return nil, &crm.ValidationError{
				Field:   "pagination",
				Message: fmt.Sprintf("request %d is auto-paginated", index),
				Request: req,
				Err:     crm.ErrPaginatedBatch,
			}
		}
	}

	if len(reqs) == 0 {
		return nil, &crm.ValidationError{Field: "requests", Message: "batch is empty", Err: crm.ErrEmptyBatch}
	}

	responses, errs, err := p.dispatchBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}

	for _, slotErr := range errs {
		if slotErr != nil {
			return responses, slotErr
		}
	}

	return responses, nil
}

func (p *Processor) executeSingle(ctx context.Context, req *crm.Request) (*crm.Response, error) {
	submitted := req.Clone()
	prepared := req.Clone()

	err := p.chain.Apply(ctx, prepared)
	if err != nil {
		return nil, err
	}

	p.executions.Add(1)
	p.firePreHooks(ctx, prepared)

	start := time.Now()
	raw, err := p.transport.Send(ctx, prepared)

	p.firePostHooks(ctx, prepared, raw, err)
	p.logExecution(prepared, start, err)

	if err != nil {
		return nil, err
	}

	return p.transform(submitted, raw)
}

// dispatchBatch prepares every request before any I/O, then sends them as one
// batch. errs[i] is a *crm.BatchError for each failed slot; err is set when
// nothing was sent.
func (p *Processor) dispatchBatch(ctx context.Context, reqs []*crm.Request) ([]*crm.Response, []error, error) {
	submitted := make([]*crm.Request, len(reqs))
	prepared := make([]*crm.Request, len(reqs))

	for index, req := range reqs {
		submitted[index] = req.Clone()
		prepared[index] = req.Clone()

		err := p.chain.Apply(ctx, prepared[index])
		if err != nil {
			return nil, nil, &prepareError{index: index, err: err}
		}
	}

	for _, req := range prepared {
		p.executions.Add(1)
		p.firePreHooks(ctx, req)
	}

	start := time.Now()
	results := p.transport.SendBatch(ctx, prepared)

	if len(results) != len(prepared) {
		return nil, nil, fmt.Errorf("%w: sent %d, got %d", ErrBatchSizeMismatch, len(prepared), len(results))
	}

	responses := make([]*crm.Response, len(reqs))
	errs := make([]error, len(reqs))

	for index, result := range results {
		p.firePostHooks(ctx, prepared[index], result.Response, result.Err)
		p.logExecution(prepared[index], start, result.Err)

		if result.Err != nil {
			errs[index] = batchError(index, result.Err)

			continue
		}

		resp, err := p.transform(submitted[index], result.Response)
		if err != nil {
			errs[index] = &crm.BatchError{Index: index, Err: err}

			continue
		}

		responses[index] = resp
	}

	return responses, errs, nil
}

// prepareError is a middleware failure on one request of a batch. Nothing of
// the batch was sent.
type prepareError struct {
	index int
	err   error
}

func (e *prepareError) Error() string {
	return fmt.Sprintf("preparing batch request %d: %v", e.index, e.err)
}

func (e *prepareError) Unwrap() error { return e.err }

func batchError(index int, err error) error {
	var batchErr *crm.BatchError
	if errors.As(err, &batchErr) && batchErr.Index == index {
		return batchErr
	}

	return &crm.BatchError{Index: index, Err: err}
}

// transform decodes a raw body and runs the endpoint's transformer.
func (p *Processor) transform(submitted *crm.Request, raw *crm.RawResponse) (*crm.Response, error) {
	transformer, err := p.registry.Lookup(submitted.Endpoint().ID)
	if err != nil {
		return nil, err
	}

	var body []byte
	if raw != nil {
		body = raw.Body
	}

	payload, err := decodePayload(body)
	if err != nil {
		return nil, err
	}

	err = transformer.DetectError(payload)
	if err != nil {
		var apiErr *crm.APIError
		if errors.As(err, &apiErr) && apiErr.Request == nil {
			apiErr.Request = submitted
		}

		return nil, err
	}

	if raw != nil && raw.StatusCode >= http.StatusBadRequest {
		apiErr := crm.NewAPIError(strconv.Itoa(raw.StatusCode), http.StatusText(raw.StatusCode))
		apiErr.Request = submitted

		return nil, apiErr
	}

	rawBodies := [][]byte{body}

	if transformer.IsEmpty(payload, submitted) {
		return crm.NewResponse(submitted, rawBodies, transformer.EmptyValue(submitted), true), nil
	}

	cleaned, err := transformer.Clean(payload, submitted)
	if err != nil {
		return nil, fmt.Errorf("cleaning %s response: %w", submitted.Endpoint().ID, err)
	}

	content, err := transformer.Convert(cleaned, submitted)
	if err != nil {
		return nil, fmt.Errorf("converting %s response: %w", submitted.Endpoint().ID, err)
	}

	return crm.NewResponse(submitted, rawBodies, content, false), nil
}

func (p *Processor) emptyValue(req *crm.Request) any {
	transformer, err := p.registry.Lookup(req.Endpoint().ID)
	if err != nil {
		return nil
	}

	return transformer.EmptyValue(req)
}

func (p *Processor) firePreHooks(ctx context.Context, req *crm.Request) {
	if len(p.preHooks) == 0 {
		return
	}

	observed := req.Clone()
	for _, hook := range p.preHooks {
		hook(ctx, observed)
	}
}

func (p *Processor) firePostHooks(ctx context.Context, req *crm.Request, raw *crm.RawResponse, err error) {
	for _, hook := range p.postHooks {
		hook(ctx, req, raw, err)
	}
}

func (p *Processor) logExecution(req *crm.Request, start time.Time, err error) {
	if p.logger == nil {
		return
	}

	fields := map[string]interface{}{
		"endpoint": string(req.Endpoint().ID),
		"path":     req.Path(),
		"duration": time.Since(start).String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		p.logger.Error("CRM execution failed", fields)

		return
	}

	p.logger.Debug("CRM execution", fields)
}
