package storage

import (
	"context"

	"golang.org/x/sync/errgroup"

	"musiclake/internal/logging"
)

// LoadRows streams an in-memory row set through LoadBatches from a producer
// goroutine.
func LoadRows(
	ctx context.Context,
	columns []string,
	rows [][]any,
	batchSize int,
	copyFn CopyFn,
	log *logging.Logger,
) (int64, error) {
	g, gctx := errgroup.WithContext(ctx)
	in := make(chan []any, max(batchSize, 1))

	g.Go(func() error {
		defer close(in)
		for _, r := range rows {
			select {
			case in <- r:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	var total int64
	g.Go(func() error {
		var err error
		total, err = LoadBatches(gctx, columns, in, batchSize, copyFn, log)
		return err
	})

	// A failed batch cancels gctx, which stops the producer.
	err := g.Wait()
	return total, err
}
