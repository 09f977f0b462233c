// Package hooks provides ready-made execution hooks for the CRM client.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

const outcomeSuccess = "success"

// Metrics records execution metrics on a caller-supplied registerer:
//   - crm_executions_total{endpoint, outcome} (Counter): dispatched calls by outcome
//   - crm_responses_total{endpoint, status} (Counter): transport responses by HTTP status
//   - crm_response_size_bytes{endpoint} (Histogram): response body size
//   - crm_executions_in_flight (Gauge): calls dispatched and not yet answered
type Metrics struct {
	executions   *prometheus.CounterVec
	responses    *prometheus.CounterVec
	responseSize *prometheus.HistogramVec
	inFlight     prometheus.Gauge
}

// NewMetrics registers the collectors on reg. Collectors already registered
// there by another client are shared.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	executions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_executions_total",
		Help: "Dispatched CRM calls by endpoint and outcome",
	}, []string{"endpoint", "outcome"}))
	if err != nil {
		return nil, err
	}

	responses, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_responses_total",
		Help: "CRM responses by endpoint and HTTP status",
	}, []string{"endpoint", "status"}))
	if err != nil {
		return nil, err
	}

	responseSize, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_response_size_bytes",
		Help:    "CRM response body size by endpoint",
		Buckets: prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"endpoint"}))
	if err != nil {
		return nil, err
	}

	inFlight, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "crm_executions_in_flight",
		Help: "CRM calls dispatched and not yet answered",
	}))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		executions:   executions,
		responses:    responses,
		responseSize: responseSize,
		inFlight:     inFlight,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}

	var zero T

	return zero, fmt.Errorf("registering metrics collector: %w", err)
}

// PreExecute is a crm.PreExecuteHook.
func (m *Metrics) PreExecute(_ context.Context, _ *crm.Request) {
	m.inFlight.Inc()
}

// PostExecute is a crm.PostExecuteHook.
func (m *Metrics) PostExecute(_ context.Context, req *crm.Request, resp *crm.RawResponse, err error) {
	m.inFlight.Dec()

	endpoint := string(req.Endpoint().ID)

	outcome := outcomeSuccess
	if err != nil {
		outcome = string(crm.KindOf(err))
	}

	m.executions.WithLabelValues(endpoint, outcome).Inc()

	if resp == nil {
		return
	}

	m.responses.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	m.responseSize.WithLabelValues(endpoint).Observe(float64(len(resp.Body)))
}
