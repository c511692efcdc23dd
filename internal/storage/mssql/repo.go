// Package mssql is the SQL Server warehouse backend. Batches go through the
// go-mssqldb bulk copy API inside a transaction.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"musiclake/internal/storage"
	mssqlddl "musiclake/internal/storage/mssql/ddl"
)

// Repository implements storage.Repository for SQL Server.
type Repository struct {
	db *sql.DB
}

// Open validates dsn, connects and pings.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Repository{db: db}, nil
}

// bulkOptions takes a table lock: the table was just recreated and nothing
// else reads it during the load.
var bulkOptions = mssql.BulkOptions{Tablock: true}

// CopyFrom bulk-copies rows into table.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	var n int64
	err := storage.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(mssqlddl.Dialect.QuoteFQN(table), bulkOptions, columns...))
		if err != nil {
			return fmt.Errorf("prepare bulk: %w", err)
		}
		defer stmt.Close()
		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("bulk row %d: %w", i, err)
			}
		}
		// An argument-less Exec flushes the buffered rows.
		res, err := stmt.ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("bulk flush: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("mssql: copy into %s: %w", table, err)
	}
	return n, nil
}

// Exec runs one statement.
func (r *Repository) Exec(ctx context.Context, stmt string) error {
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("mssql: exec: %w", err)
	}
	return nil
}

// Close closes the pool.
func (r *Repository) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}
