package hooks_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/crm-client/internal/hooks"
	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

var errPublish = errors.New("connection closed")

type recordingPublisher struct {
	mutex    sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)

	return p.err
}

type recordingLogger struct {
	mutex sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) {}
func (l *recordingLogger) Info(msg string, fields map[string]interface{})  {}
func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {}

func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.warns = append(l.warns, msg)
}

func listRequest(t *testing.T) *crm.Request {
	t.Helper()

	req, err := crm.NewRequestFor(crm.ListRecords, "Leads")
	require.NoError(t, err)

	return req
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	metrics, err := hooks.NewMetrics(registry)
	require.NoError(t, err)

	ctx := context.Background()
	req := listRequest(t)

	metrics.PreExecute(ctx, req)
	metrics.PreExecute(ctx, req)
	metrics.PostExecute(ctx, req, &crm.RawResponse{StatusCode: 200, Body: []byte(`{"data":[]}`)}, nil)

	count, err := testutil.GatherAndCount(registry, "crm_executions_in_flight")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expected := `
# HELP crm_executions_total Dispatched CRM calls by endpoint and outcome
# TYPE crm_executions_total counter
crm_executions_total{endpoint="v2.listRecords",outcome="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "crm_executions_total"))

	metrics.PostExecute(ctx, req, nil, &crm.TransportError{Method: "GET", URL: "/crm/v2/Leads", Err: errPublish})

	expected = `
# HELP crm_executions_total Dispatched CRM calls by endpoint and outcome
# TYPE crm_executions_total counter
crm_executions_total{endpoint="v2.listRecords",outcome="success"} 1
crm_executions_total{endpoint="v2.listRecords",outcome="transport"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "crm_executions_total"))

	expected = `
# HELP crm_responses_total CRM responses by endpoint and HTTP status
# TYPE crm_responses_total counter
crm_responses_total{endpoint="v2.listRecords",status="200"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "crm_responses_total"))
}

func TestMetrics_SharedRegistry(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	ctx := context.Background()
	req := listRequest(t)

	first, err := hooks.NewMetrics(registry)
	require.NoError(t, err)

	second, err := hooks.NewMetrics(registry)
	require.NoError(t, err)

	first.PostExecute(ctx, req, nil, nil)
	second.PostExecute(ctx, req, nil, nil)

	expected := `
# HELP crm_executions_total Dispatched CRM calls by endpoint and outcome
# TYPE crm_executions_total counter
crm_executions_total{endpoint="v2.listRecords",outcome="success"} 2
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "crm_executions_total"))
}

func TestMetrics_ConflictingCollector(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_executions_total",
		Help: "Dispatched CRM calls by endpoint and outcome",
	}))

	_, err := hooks.NewMetrics(registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registering metrics collector")
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNATSPublisher(t *testing.T) {
	t.Parallel()

	t.Run("publishes one event per execution", func(t *testing.T) {
		t.Parallel()

		publisher := &recordingPublisher{}
		hook, err := hooks.NewNATSPublisher(publisher, "", nil)
		require.NoError(t, err)
		assert.Equal(t, hooks.DefaultSubject, hook.Subject())

		hook.PostExecute(context.Background(), listRequest(t), &crm.RawResponse{StatusCode: 200, Body: []byte("{}")}, nil)

		require.Len(t, publisher.payloads, 1)
		assert.Equal(t, hooks.DefaultSubject, publisher.subjects[0])

		var event hooks.ExecutionEvent
		require.NoError(t, json.Unmarshal(publisher.payloads[0], &event))
		assert.Equal(t, "v2.listRecords", event.Endpoint)
		assert.Equal(t, "GET", event.Method)
		assert.Equal(t, "/crm/v2/Leads", event.Path)
		assert.Equal(t, 200, event.StatusCode)
		assert.Equal(t, 2, event.Bytes)
		assert.Empty(t, event.Error)

		_, err = uuid.Parse(event.ID)
		assert.NoError(t, err)
	})

	t.Run("redacts credentials in errors", func(t *testing.T) {
		t.Parallel()

		publisher := &recordingPublisher{}
		hook, err := hooks.NewNATSPublisher(publisher, "crm.test", nil)
		require.NoError(t, err)

		transportErr := &crm.TransportError{
			Method: "GET",
			URL:    "https://crm.example.com/crm/private/json/Leads/getRecords?authtoken=secret-token",
			Err:    errPublish,
		}
		hook.PostExecute(context.Background(), listRequest(t), nil, transportErr)

		require.Len(t, publisher.payloads, 1)

		var event hooks.ExecutionEvent
		require.NoError(t, json.Unmarshal(publisher.payloads[0], &event))
		assert.Equal(t, "transport", event.ErrorKind)
		assert.NotContains(t, event.Error, "secret-token")
	})

	t.Run("logs publish failures", func(t *testing.T) {
		t.Parallel()

		logger := &recordingLogger{}
		hook, err := hooks.NewNATSPublisher(&recordingPublisher{err: errPublish}, "crm.test", logger)
		require.NoError(t, err)

		assert.NotPanics(t, func() {
			hook.PostExecute(context.Background(), listRequest(t), nil, nil)
		})
		assert.Equal(t, []string{"publishing execution event failed"}, logger.warns)
		assert.NoError(t, hook.Close())
	})

	t.Run("requires a publisher", func(t *testing.T) {
		t.Parallel()

		_, err := hooks.NewNATSPublisher(nil, "crm.test", nil)
		require.ErrorIs(t, err, hooks.ErrNoPublisher)
	})
}

func TestConnectNATS_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := hooks.ConnectNATS(ctx, "nats://127.0.0.1:1", "crm.test", nil)
	require.ErrorIs(t, err, context.Canceled)
}
