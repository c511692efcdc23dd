// Package sqlite is the SQLite warehouse backend, on database/sql and the
// pure-Go modernc driver. SQLite has no bulk-load protocol, so each batch is
// one prepared INSERT executed per row inside a transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"musiclake/internal/storage"
	sqliteddl "musiclake/internal/storage/sqlite/ddl"
)

const pingTimeout = 5 * time.Second

// Repository implements storage.Repository for SQLite.
type Repository struct {
	db *sql.DB
}

// Open opens the database at dsn, e.g. "lake.db" or
// "file:lake.db?_pragma=journal_mode(WAL)". The pool holds a single
// connection so an in-memory database is shared by every statement.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite: empty dsn")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Repository{db: db}, nil
}

// insertSQL renders the parameterised INSERT for table and columns.
func insertSQL(table string, columns []string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = sqliteddl.Dialect.Quote(c)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return "INSERT INTO " + sqliteddl.Dialect.QuoteFQN(table) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ")"
}

// CopyFrom inserts rows into table. Every row must have one value per
// column; a short or long row aborts the whole batch.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, errors.New("sqlite: copy: no columns")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	err := storage.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertSQL(table, columns))
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()
		for i, row := range rows {
			if len(row) != len(columns) {
				return fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(columns))
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sqlite: copy into %s: %w", table, err)
	}
	return int64(len(rows)), nil
}

// Exec runs one statement; blank statements are skipped.
func (r *Repository) Exec(ctx context.Context, stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// Close closes the pool.
func (r *Repository) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}
