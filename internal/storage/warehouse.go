package storage

import (
	"context"
	"fmt"

	"musiclake/internal/engine"
	"musiclake/internal/logging"
	"musiclake/internal/metrics"
)

// DefaultBatchSize is used when a Warehouse has no batch size.
const DefaultBatchSize = 5000

// Warehouse loads whole tables into a repository: each Load drops and
// recreates the target table, then copies the rows in batches.
type Warehouse struct {
	Kind string
	Repo Repository
	// Schema qualifies table names; empty uses the backend default.
	Schema    string
	BatchSize int
	Job       string
	Log       *logging.Logger
}

// OpenWarehouse opens the repository for cfg and checks that its kind has a
// DDL dialect.
func OpenWarehouse(ctx context.Context, cfg Config, schema string, batchSize int, job string, log *logging.Logger) (*Warehouse, error) {
	if _, err := DialectFor(cfg.Kind); err != nil {
		return nil, err
	}
	repo, err := New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", cfg.Kind, err)
	}
	return &Warehouse{Kind: cfg.Kind, Repo: repo, Schema: schema, BatchSize: batchSize, Job: job, Log: log}, nil
}

// TableName is the dotted target name of table.
func (w *Warehouse) TableName(table string) (string, error) {
	d, err := DialectFor(w.Kind)
	if err != nil {
		return "", err
	}
	return d.Qualify(w.Schema, table), nil
}

// Load replaces table with the rows of res.
func (w *Warehouse) Load(ctx context.Context, table string, res *engine.Result) error {
	fqn, err := w.TableName(table)
	if err != nil {
		return err
	}
	if err := RecreateTable(ctx, w.Kind, w.Repo, fqn, res.Schema); err != nil {
		return fmt.Errorf("recreate %s: %w", fqn, err)
	}

	batchSize := w.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	log := w.Log
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("table", fqn)

	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		n, err := w.Repo.CopyFrom(ctx, fqn, columns, rows)
		if err == nil {
			metrics.RecordBatches(w.Job, table, 1)
		}
		return n, err
	}
	n, err := LoadRows(ctx, res.Schema.Names(), res.Rows, batchSize, copyFn, log)
	if err != nil {
		return fmt.Errorf("copy into %s: %w", fqn, err)
	}
	log.Info("warehouse table loaded", "rows", n)
	return nil
}

// Close releases the repository.
func (w *Warehouse) Close() {
	if w.Repo != nil {
		w.Repo.Close()
	}
}
