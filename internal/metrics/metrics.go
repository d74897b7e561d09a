// Package metrics records statement and table-operation counts and
// latencies through a process-wide Backend.
//
// The default backend discards everything, so the Record functions are
// always safe to call. The prompush and datadog subpackages provide real
// backends; callers install one with SetBackend at startup.
package metrics

import "time"

// Metric names emitted by this package.
const (
	StatementTotal    = "tablekit_statement_total"
	StatementDuration = "tablekit_statement_duration_seconds"
	OperationTotal    = "tablekit_operation_total"
	OperationDuration = "tablekit_operation_duration_seconds"
	RowsFetched       = "tablekit_rows_fetched_total"
)

// Labels name the dimensions of one observation.
type Labels map[string]string

// Backend receives every observation.
type Backend interface {
	// IncCounter adds delta to the named counter.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records one sample, in seconds for durations.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush delivers buffered samples. Called once at shutdown.
	Flush() error
}

// nopBackend is installed until SetBackend is called.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend replaces the process backend. nil is ignored.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush flushes the process backend.
func Flush() error {
	return backend.Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStatement counts one statement issued on a connection and its
// latency. kind is "query", "exec", "prepare" or "guarded".
func RecordStatement(kind string, err error, d time.Duration) {
	lbls := Labels{
		"kind":   kind,
		"status": status(err),
	}
	backend.IncCounter(StatementTotal, 1, lbls)
	backend.ObserveHistogram(StatementDuration, d.Seconds(), lbls)
}

// RecordOperation counts one table engine operation (build, fill, add,
// update, delete, refetch) and its latency.
func RecordOperation(table, op string, err error, d time.Duration) {
	lbls := Labels{
		"table":  table,
		"op":     op,
		"status": status(err),
	}
	backend.IncCounter(OperationTotal, 1, lbls)
	backend.ObserveHistogram(OperationDuration, d.Seconds(), lbls)
}

// RecordRows increments the fetched-row counter for a table after a fill.
func RecordRows(table string, n int) {
	if n <= 0 {
		return
	}
	backend.IncCounter(RowsFetched, float64(n), Labels{"table": table})
}
