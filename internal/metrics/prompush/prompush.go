// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Statement, operation and row metrics are kept in a private registry and
// pushed to a Pushgateway on Flush. The CLI is short-lived, so there is no
// scrape endpoint.
package prompush

import (
	"fmt"

	"tablekit/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stmtCounter  *prometheus.CounterVec // kind, status
	stmtDuration *prometheus.SummaryVec // kind, status
	opCounter    *prometheus.CounterVec // table, op, status
	opDuration   *prometheus.SummaryVec // table, op, status
	rowCounter   *prometheus.CounterVec // table
}

var objectives = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}

// NewBackend constructs a Prometheus Pushgateway backend.
// An empty jobName defaults to "tablekit".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "tablekit"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stmtCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StatementTotal,
			Help: "Statements issued on a connection, by kind and status.",
		}, []string{"kind", "status"}),
		stmtDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StatementDuration,
			Help:       "Statement latency in seconds, by kind and status.",
			Objectives: objectives,
		}, []string{"kind", "status"}),
		opCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.OperationTotal,
			Help: "Table engine operations, by table, operation and status.",
		}, []string{"table", "op", "status"}),
		opDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.OperationDuration,
			Help:       "Table engine operation latency in seconds.",
			Objectives: objectives,
		}, []string{"table", "op", "status"}),
		rowCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsFetched,
			Help: "Rows loaded into table collections by fill.",
		}, []string{"table"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"statement counter": b.stmtCounter,
		"statement summary": b.stmtDuration,
		"operation counter": b.opCounter,
		"operation summary": b.opDuration,
		"row counter":       b.rowCounter,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StatementTotal:
		if b.stmtCounter == nil {
			return
		}
		b.stmtCounter.WithLabelValues(labels["kind"], labels["status"]).Add(delta)
	case metrics.OperationTotal:
		if b.opCounter == nil {
			return
		}
		b.opCounter.WithLabelValues(labels["table"], labels["op"], labels["status"]).Add(delta)
	case metrics.RowsFetched:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["table"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.StatementDuration:
		if b.stmtDuration == nil {
			return
		}
		b.stmtDuration.WithLabelValues(labels["kind"], labels["status"]).Observe(value)
	case metrics.OperationDuration:
		if b.opDuration == nil {
			return
		}
		b.opDuration.WithLabelValues(labels["table"], labels["op"], labels["status"]).Observe(value)
	}
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
