package client

import (
	"context"
	"errors"
	"strconv"

	"github.com/fivetwenty-io/crm-client/internal/constants"
	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// pageResult is one fetched page with the page number it was requested as.
type pageResult struct {
	number   int
	response *crm.Response
	err      error
}

// Paginator walks a paginated endpoint. Legacy endpoints are walked with
// fromIndex/toIndex windows, modern ones with page/per_page.
//
// Each step builds the next page request from a copy of the original with
// pagination switched off, runs it through the processor and applies the
// termination rules to every page in request order:
//
//   - an empty page exhausts the stream and contributes no items
//   - a page crossing a soft limit is truncated at the boundary and exhausts
//   - a page shorter than the page size is the last one
//
// A Paginator is not safe for concurrent use.
type Paginator struct {
	processor *Processor
	original  *crm.Request
	pageSize  int
	width     int
	nextPage  int
	hasMore   bool
	fetches   int
	collected int
	pages     []*crm.Response
}

func (p *Processor) newPaginator(req *crm.Request) (*Paginator, error) {
	if !req.Endpoint().Paginated {
		return nil, &crm.ValidationError{
			Field:   "pagination",
			Message: "endpoint " + string(req.Endpoint().ID) + " does not support pagination",
			Request: req,
			Err:     crm.ErrNotPaginated,
		}
	}

	pageSize := req.PageSize()
	if pageSize <= 0 || pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}

	return &Paginator{
		processor: p,
		original:  req.Clone(),
		pageSize:  pageSize,
		width:     req.Pagination().Width(),
		nextPage:  1,
		hasMore:   true,
	}, nil
}

// HasMoreData reports whether another Fetch may return data.
func (pg *Paginator) HasMoreData() bool {
	return pg.hasMore
}

// FetchCount returns the number of page requests issued so far.
func (pg *Paginator) FetchCount() int {
	return pg.fetches
}

// Pages returns the retained page responses in order.
func (pg *Paginator) Pages() []*crm.Response {
	return append([]*crm.Response(nil), pg.pages...)
}

// Fetch requests the next page, or the next group of pages when a concurrency
// width is set, and returns their merged response. It returns nil, nil once
// the stream is exhausted.
func (pg *Paginator) Fetch(ctx context.Context) (*crm.Response, error) {
	if !pg.hasMore {
		return nil, nil
	}

	results := pg.fetchStep(ctx)

	kept := make([]*crm.Response, 0, len(results))

	for _, result := range results {
		if result.err != nil {
			pg.hasMore = false

			return nil, &crm.PageError{Page: result.number, Err: result.err}
		}

		page := pg.evaluate(result.response)
		kept = append(kept, page)
		pg.pages = append(pg.pages, page)

		if !pg.hasMore {
			break
		}
	}

	return pg.merge(kept), nil
}

// FetchAll fetches until exhaustion and returns every page merged into one
// response. On error no partial data is returned.
func (pg *Paginator) FetchAll(ctx context.Context) (*crm.Response, error) {
	for pg.hasMore {
		_, err := pg.Fetch(ctx)
		if err != nil {
			return nil, err
		}
	}

	return pg.merge(pg.pages), nil
}

// fetchStep issues one page, or width pages as one transport batch.
func (pg *Paginator) fetchStep(ctx context.Context) []pageResult {
	if pg.width <= 1 {
		number := pg.nextPage
		pg.nextPage++
		pg.fetches++

		resp, err := pg.processor.executeSingle(ctx, pg.pageRequest(number))

		return []pageResult{{number: number, response: resp, err: err}}
	}

	reqs := make([]*crm.Request, pg.width)
	numbers := make([]int, pg.width)

	for i := range reqs {
		numbers[i] = pg.nextPage
		reqs[i] = pg.pageRequest(pg.nextPage)
		pg.nextPage++
	}

	pg.fetches += len(reqs)

	responses, errs, err := pg.processor.dispatchBatch(ctx, reqs)
	if err != nil {
		number := numbers[0]

		var prepErr *prepareError
		if errors.As(err, &prepErr) {
			number = numbers[prepErr.index]
		}

		return []pageResult{{number: number, err: err}}
	}

	results := make([]pageResult, len(reqs))
	for i := range reqs {
		results[i] = pageResult{number: numbers[i], response: responses[i], err: unwrapBatchError(errs[i])}
	}

	return results
}

// unwrapBatchError drops the batch slot wrapper; the page number replaces it.
func unwrapBatchError(err error) error {
	var batchErr *crm.BatchError
	if errors.As(err, &batchErr) {
		return batchErr.Err
	}

	return err
}

// pageRequest builds the request for a 1-based page number.
func (pg *Paginator) pageRequest(number int) *crm.Request {
	req := pg.original.Clone().AutoPaginated(false)

	if req.Generation() == crm.GenerationLegacy {
		from := (number-1)*pg.pageSize + 1

		return req.
			WithParam("fromIndex", strconv.Itoa(from)).
			WithParam("toIndex", strconv.Itoa(from+pg.pageSize-1))
	}

	return req.
		WithParam("page", strconv.Itoa(number)).
		WithParam("per_page", strconv.Itoa(pg.pageSize))
}

// evaluate applies the termination rules to one page and returns the page as
// it is retained.
func (pg *Paginator) evaluate(page *crm.Response) *crm.Response {
	if page.IsEmpty() {
		pg.hasMore = false

		return page
	}

	received := page.Len()

	page = pg.truncate(page)
	pg.collected += page.Len()

	if received < pg.pageSize {
		pg.hasMore = false
	}

	return page
}

// truncate cuts a page at the first soft limit boundary it crosses. Crossing
// or reaching a limit exhausts the stream.
func (pg *Paginator) truncate(page *crm.Response) *crm.Response {
	limits := pg.original.Limits()
	if limits.IsZero() {
		return page
	}

	keep := page.Len()

	if records, ok := page.Content.([]crm.Record); ok && !limits.MaxModifiedTime.IsZero() {
		for i, record := range records {
			if record.ModifiedTime.After(limits.MaxModifiedTime) {
				keep = i
				pg.hasMore = false

				break
			}
		}
	}

	if limits.MaxItems > 0 {
		remaining := limits.MaxItems - pg.collected
		if keep >= remaining {
			keep = max(remaining, 0)
			pg.hasMore = false
		}
	}

	if keep == page.Len() {
		return page
	}

	var content any

	switch typed := page.Content.(type) {
	case []crm.Record:
		content = typed[:keep]
	case []string:
		content = typed[:keep]
	default:
		return page
	}

	return crm.NewResponse(page.Request, page.Raw, content, keep == 0)
}

// merge concatenates the contents of pages into one response. The raw bodies
// keep page order.
func (pg *Paginator) merge(pages []*crm.Response) *crm.Response {
	raw := make([][]byte, 0, len(pages))

	var (
		records []crm.Record
		ids     []string
		single  any
		items   int
	)

	for _, page := range pages {
		raw = append(raw, page.Raw...)

		if page.IsEmpty() {
			continue
		}

		switch typed := page.Content.(type) {
		case []crm.Record:
			records = append(records, typed...)
			items += len(typed)
		case []string:
			ids = append(ids, typed...)
			items += len(typed)
		case nil:
		default:
			single = typed
			items++
		}
	}

	var content any

	switch {
	case records != nil:
		content = records
	case ids != nil:
		content = ids
	case single != nil:
		content = single
	}

	if items == 0 {
		return crm.NewResponse(pg.original, raw, pg.processor.emptyValue(pg.original), true)
	}

	return crm.NewResponse(pg.original, raw, content, false)
}
