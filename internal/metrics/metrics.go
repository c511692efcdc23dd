// Package metrics records step timings and row counts for a pipeline run.
// Calls go to one process-wide Backend, a no-op until SetBackend installs a
// Pushgateway or DogStatsD backend from a subpackage.
package metrics

import "time"

// Metric names shared by all backends.
const (
	StepTotal           = "lake_step_total"
	StepDurationSeconds = "lake_step_duration_seconds"
	RowsTotal           = "lake_rows_total"
	BatchesTotal        = "lake_batches_total"
)

// Row kinds reported through RecordRows.
const (
	KindRead    = "read"
	KindCorrupt = "corrupt"
	KindWritten = "written"
	KindLoaded  = "loaded"
	KindFiles   = "files"
	KindParts   = "partitions"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency and success/failure of one pipeline step, e.g.
// "songs.read" or "songplays.write".
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// Timed runs fn and records it as step.
func Timed(job, step string, fn func() error) error {
	start := time.Now()
	err := fn()
	RecordStep(job, step, err, time.Since(start))
	return err
}

// RecordRows increments the row counter for a table and kind (read, corrupt,
// written, loaded, ...). Non-positive deltas are ignored.
func RecordRows(job, table, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":   job,
		"table": table,
		"kind":  kind,
	})
}

// RecordBatches increments the warehouse batch counter for a table.
func RecordBatches(job, table string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job":   job,
		"table": table,
	})
}
