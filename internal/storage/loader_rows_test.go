package storage

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"musiclake/internal/logging"
)

func makeRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{int64(i), "x"}
	}
	return rows
}

// TestLoadRows_ArgValidation checks the loader rejects bad arguments.
func TestLoadRows_ArgValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := LoadRows(ctx, []string{"a"}, makeRows(1), 0, func(context.Context, []string, [][]any) (int64, error) { return 0, nil }, nil); err == nil {
		t.Fatal("expected error for batchSize=0")
	}
	if _, err := LoadRows(ctx, []string{"a"}, makeRows(1), 2, nil, nil); err == nil {
		t.Fatal("expected error for nil copyFn")
	}
}

// TestLoadRows_Batches verifies batch sizes, row order and the total.
func TestLoadRows_Batches(t *testing.T) {
	t.Parallel()

	var sizes []int
	var seen []int64
	copyFn := func(_ context.Context, cols []string, rows [][]any) (int64, error) {
		if len(cols) != 2 {
			t.Errorf("columns = %v", cols)
		}
		sizes = append(sizes, len(rows))
		for _, r := range rows {
			seen = append(seen, r[0].(int64))
		}
		return int64(len(rows)), nil
	}

	total, err := LoadRows(context.Background(), []string{"id", "v"}, makeRows(7), 3, copyFn, nil)
	if err != nil {
		t.Fatalf("LoadRows: %v", err)
	}
	if total != 7 {
		t.Fatalf("total = %d, want 7", total)
	}
	if len(sizes) != 3 || sizes[0] != 3 || sizes[1] != 3 || sizes[2] != 1 {
		t.Fatalf("batch sizes = %v, want [3 3 1]", sizes)
	}
	for i, v := range seen {
		if v != int64(i) {
			t.Fatalf("row %d = %d, rows out of order", i, v)
		}
	}
}

// TestLoadRows_Empty performs no copy.
func TestLoadRows_Empty(t *testing.T) {
	t.Parallel()

	calls := 0
	total, err := LoadRows(context.Background(), []string{"a"}, nil, 10, func(context.Context, []string, [][]any) (int64, error) {
		calls++
		return 0, nil
	}, nil)
	if err != nil || total != 0 || calls != 0 {
		t.Fatalf("total=%d err=%v calls=%d, want 0 nil 0", total, err, calls)
	}
}

// TestLoadRows_ErrorStopsProducer ensures a failed batch is returned and no
// further batches are attempted.
func TestLoadRows_ErrorStopsProducer(t *testing.T) {
	t.Parallel()

	want := errors.New("copy failed")
	calls := 0
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		calls++
		if calls == 2 {
			return 0, want
		}
		return int64(len(rows)), nil
	}

	total, err := LoadRows(context.Background(), []string{"a", "b"}, makeRows(100), 10, copyFn, nil)
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if total != 10 {
		t.Fatalf("total = %d, want 10", total)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

// TestLoadRows_Canceled returns the context error when canceled up front.
func TestLoadRows_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadRows(ctx, []string{"a"}, makeRows(5), 1, func(ctx context.Context, _ []string, rows [][]any) (int64, error) {
		return 0, ctx.Err()
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// TestLoadRows_Logs checks a progress line per batch and an error line on
// failure.
func TestLoadRows_Logs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	log := logging.NewWithCore(core)

	if _, err := LoadRows(context.Background(), []string{"a", "b"}, makeRows(4), 2, func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		return int64(len(rows)), nil
	}, log); err != nil {
		t.Fatalf("LoadRows: %v", err)
	}
	if n := logs.FilterMessage("loader: batch flushed").Len(); n != 2 {
		t.Fatalf("progress lines = %d, want 2", n)
	}

	_, _ = LoadRows(context.Background(), []string{"a", "b"}, makeRows(1), 2, func(context.Context, []string, [][]any) (int64, error) {
		return 0, errors.New("boom")
	}, log)
	if n := logs.FilterMessage("loader: copy failed").Len(); n != 1 {
		t.Fatalf("error lines = %d, want 1", n)
	}
}
