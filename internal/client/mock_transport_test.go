package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// mockTransport answers requests through handler and counts every call.
// completionOrder, when set, is the order in which batch slots are answered.
type mockTransport struct {
	handler         func(req *crm.Request) (*crm.RawResponse, error)
	completionOrder []int

	mutex     sync.Mutex
	sends     atomic.Int64
	batches   atomic.Int64
	requests  []*crm.Request
	completed []int
}

func (m *mockTransport) Send(ctx context.Context, req *crm.Request) (*crm.RawResponse, error) {
	m.sends.Add(1)

	m.mutex.Lock()
	m.requests = append(m.requests, req)
	m.mutex.Unlock()

	return m.handler(req)
}

func (m *mockTransport) SendBatch(ctx context.Context, reqs []*crm.Request) []crm.BatchResult {
	m.batches.Add(1)

	order := m.completionOrder
	if len(order) != len(reqs) {
		order = make([]int, len(reqs))
		for i := range order {
			order[i] = i
		}
	}

	results := make([]crm.BatchResult, len(reqs))

	for _, index := range order {
		resp, err := m.Send(ctx, reqs[index])
		if err != nil {
			err = &crm.BatchError{Index: index, Err: err}
		}

		results[index] = crm.BatchResult{Response: resp, Err: err}

		m.mutex.Lock()
		m.completed = append(m.completed, index)
		m.mutex.Unlock()
	}

	return results
}

func (m *mockTransport) SendCount() int64 {
	return m.sends.Load()
}

func (m *mockTransport) Requests() []*crm.Request {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]*crm.Request(nil), m.requests...)
}

func okResponse(body string) *crm.RawResponse {
	return &crm.RawResponse{StatusCode: 200, Body: []byte(body)}
}

// modernPage renders a v2 page of n records whose ids start at first.
func modernPage(t *testing.T, first, n int, modified time.Time) string {
	t.Helper()

	data := make([]map[string]any, n)
	for i := range data {
		data[i] = map[string]any{
			"id":            strconv.Itoa(first + i),
			"Last_Name":     fmt.Sprintf("Lead %d", first+i),
			"Modified_Time": modified.Add(time.Duration(first+i) * time.Minute).Format(time.RFC3339),
		}
	}

	body, err := json.Marshal(map[string]any{
		"data": data,
		"info": map[string]any{"per_page": 200, "count": n, "more_records": n == 200},
	})
	require.NoError(t, err)

	return string(body)
}

// legacyPage renders a legacy getRecords page of n Leads rows.
func legacyPage(t *testing.T, first, n int) string {
	t.Helper()

	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{
			"no": strconv.Itoa(i + 1),
			"FL": []map[string]any{
				{"val": "LEADID", "content": strconv.Itoa(first + i)},
				{"val": "Last Name", "content": fmt.Sprintf("Lead %d", first+i)},
				{"val": "Modified Time", "content": "2024-03-01 10:00:00"},
			},
		}
	}

	body, err := json.Marshal(map[string]any{
		"response": map[string]any{
			"uri":    "/crm/private/json/Leads/getRecords",
			"result": map[string]any{"Leads": map[string]any{"row": rows}},
		},
	})
	require.NoError(t, err)

	return string(body)
}

const legacyNoData = `{"response":{"nodata":{"code":"4422","message":"There is no data to show"},"uri":"/crm/private/json/Leads/getRecords"}}`

// pagedHandler serves modern pages by page number. sizes[i] is the size of page i+1.
func pagedHandler(t *testing.T, sizes []int) func(req *crm.Request) (*crm.RawResponse, error) {
	t.Helper()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	return func(req *crm.Request) (*crm.RawResponse, error) {
		pageValue, _ := req.ParamValue("page")
		page, _ := strconv.Atoi(fmt.Sprint(pageValue))

		if page < 1 || page > len(sizes) {
			return &crm.RawResponse{StatusCode: 204}, nil
		}

		first := 1
		for _, size := range sizes[:page-1] {
			first += size
		}

		return okResponse(modernPage(t, first, sizes[page-1], base)), nil
	}
}

func newTestProcessor(transport crm.Transport, middlewares ...crm.Middleware) *Processor {
	chain := crm.NewMiddlewareChain(crm.ValidationMiddleware())
	chain.Use(middlewares...)

	return NewProcessor(transport, chain, nil)
}

func modernListRequest(t *testing.T, processor *Processor) *crm.Request {
	t.Helper()

	req, err := query(processor, crm.ListRecords, "Leads")
	require.NoError(t, err)

	return req
}
