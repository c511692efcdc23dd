package storage

import (
	"context"
	"errors"
	"time"

	"musiclake/internal/logging"
)

// CopyFn is a backend bulk insert: it writes rows, aligned to columns, and
// reports how many were inserted. The rows slice is reused after the call
// returns.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

var (
	errBatchSize = errors.New("storage: batch size must be positive")
	errNoCopyFn  = errors.New("storage: nil copy function")
)

// batcher accumulates rows and hands full batches to a CopyFn.
type batcher struct {
	columns []string
	copyFn  CopyFn
	log     *logging.Logger

	buf      [][]any
	inserted int64
	flushes  int
	started  time.Time
}

func newBatcher(columns []string, size int, copyFn CopyFn, log *logging.Logger) (*batcher, error) {
	switch {
	case size <= 0:
		return nil, errBatchSize
	case copyFn == nil:
		return nil, errNoCopyFn
	}
	if log == nil {
		log = logging.Nop()
	}
	return &batcher{
		columns: columns,
		copyFn:  copyFn,
		log:     log,
		buf:     make([][]any, 0, size),
		started: time.Now(),
	}, nil
}

// add buffers row and flushes when the buffer is full.
func (b *batcher) add(ctx context.Context, row []any) error {
	b.buf = append(b.buf, row)
	if len(b.buf) < cap(b.buf) {
		return nil
	}
	return b.flush(ctx)
}

func (b *batcher) flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	t0 := time.Now()
	n, err := b.copyFn(ctx, b.columns, b.buf)
	b.inserted += n
	size := len(b.buf)
	b.buf = b.buf[:0]
	if err != nil {
		b.log.Error("loader: copy failed", "batch", b.flushes+1, "rows", size, "inserted", b.inserted, "err", err)
		return err
	}
	b.flushes++
	b.log.Debug("loader: batch flushed",
		"batch", b.flushes,
		"rows", n,
		"inserted", b.inserted,
		"took", time.Since(t0).Truncate(time.Microsecond),
		"elapsed", time.Since(b.started).Truncate(time.Millisecond),
	)
	return nil
}

// LoadBatches drains in into batches of batchSize rows and copies each one.
// It returns the rows inserted so far together with the first copy error or
// ctx.Err() on cancellation. A nil log discards progress lines.
func LoadBatches(ctx context.Context, columns []string, in <-chan []any, batchSize int, copyFn CopyFn, log *logging.Logger) (int64, error) {
	b, err := newBatcher(columns, batchSize, copyFn, log)
	if err != nil {
		return 0, err
	}
	for {
		select {
		case <-ctx.Done():
			return b.inserted, ctx.Err()
		case row, ok := <-in:
			if !ok {
				return b.inserted, b.flush(ctx)
			}
			if err := b.add(ctx, row); err != nil {
				return b.inserted, err
			}
		}
	}
}
