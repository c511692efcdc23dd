package metrics

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

type sample struct {
	name   string
	value  float64
	labels Labels
}

// recorder keeps counters and histograms in call order.
type recorder struct {
	counters []sample
	hists    []sample
	flushes  int
	flushErr error
}

func (r *recorder) IncCounter(name string, delta float64, labels Labels) {
	r.counters = append(r.counters, sample{name, delta, labels})
}

func (r *recorder) ObserveHistogram(name string, value float64, labels Labels) {
	r.hists = append(r.hists, sample{name, value, labels})
}

func (r *recorder) Flush() error {
	r.flushes++
	return r.flushErr
}

// install swaps the global backend for the duration of the test.
func install(t *testing.T) *recorder {
	t.Helper()
	orig := backend
	t.Cleanup(func() { backend = orig })
	r := &recorder{}
	SetBackend(r)
	return r
}

func TestRecordStep(t *testing.T) {
	r := install(t)

	RecordStep("sparkify", "songs.write", nil, 1500*time.Millisecond)
	RecordStep("sparkify", "songplays.load", errors.New("copy failed"), 0)

	wantCounters := []sample{
		{StepTotal, 1, Labels{"job": "sparkify", "step": "songs.write", "status": "success"}},
		{StepTotal, 1, Labels{"job": "sparkify", "step": "songplays.load", "status": "failure"}},
	}
	if !reflect.DeepEqual(r.counters, wantCounters) {
		t.Fatalf("counters = %+v", r.counters)
	}
	if len(r.hists) != 2 || r.hists[0].name != StepDurationSeconds || r.hists[0].value != 1.5 {
		t.Fatalf("histograms = %+v", r.hists)
	}
}

func TestTimed(t *testing.T) {
	r := install(t)

	errWrite := errors.New("write")
	if err := Timed("sparkify", "users.write", func() error { return errWrite }); !errors.Is(err, errWrite) {
		t.Fatalf("Timed returned %v", err)
	}
	if len(r.counters) != 1 || r.counters[0].labels["status"] != "failure" || r.counters[0].labels["step"] != "users.write" {
		t.Fatalf("counters = %+v", r.counters)
	}
	if r.hists[0].value < 0 {
		t.Fatalf("negative duration %v", r.hists[0].value)
	}
}

func TestRecordRowsAndBatches(t *testing.T) {
	r := install(t)

	RecordRows("sparkify", "artists", KindWritten, 12)
	RecordRows("sparkify", "artists", KindCorrupt, 0)
	RecordRows("sparkify", "artists", KindCorrupt, -1)
	RecordBatches("sparkify", "artists", 3)
	RecordBatches("sparkify", "artists", 0)

	want := []sample{
		{RowsTotal, 12, Labels{"job": "sparkify", "table": "artists", "kind": KindWritten}},
		{BatchesTotal, 3, Labels{"job": "sparkify", "table": "artists"}},
	}
	if !reflect.DeepEqual(r.counters, want) {
		t.Fatalf("counters = %+v\nwant %+v", r.counters, want)
	}
}

func TestSetBackendNilKeepsCurrent(t *testing.T) {
	r := install(t)
	r.flushErr = errors.New("gateway down")

	SetBackend(nil)
	if err := Flush(); !errors.Is(err, r.flushErr) || r.flushes != 1 {
		t.Fatalf("Flush = %v after %d flushes", err, r.flushes)
	}
}

func TestNopBackendIsDefault(t *testing.T) {
	if _, ok := interface{}(nopBackend{}).(Backend); !ok {
		t.Fatal("nopBackend does not implement Backend")
	}
	orig := backend
	t.Cleanup(func() { backend = orig })
	backend = nopBackend{}
	RecordRows("j", "t", KindRead, 1)
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush = %v", err)
	}
}
