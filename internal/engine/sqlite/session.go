// Package sqlite implements engine.Session on an embedded SQLite database
// (modernc.org/sqlite, pure Go). Plans compile to SELECT statements; views
// are loaded into temporary tables and derived tables into the main schema,
// so an on-disk DSN keeps the derived tables between runs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"musiclake/internal/engine"
	"musiclake/internal/plan"
	"musiclake/internal/timeparts"
	"musiclake/pkg/records"
)

// Kind is the engine kind this package registers.
const Kind = "sqlite"

// DefaultDSN is a private in-memory database.
const DefaultDSN = "file::memory:"

func init() {
	engine.Register(Kind, func(ctx context.Context, cfg engine.Config) (engine.Session, error) {
		return Open(ctx, cfg)
	})
}

// Session is an engine.Session backed by one SQLite connection.
type Session struct {
	db     *sql.DB
	tzName string
	loc    *time.Location

	mu   sync.Mutex
	rels map[string]plan.Schema
}

// Open creates a session. The pool is pinned to one connection so that
// temporary tables and in-memory databases stay visible to every statement.
func Open(ctx context.Context, cfg engine.Config) (*Session, error) {
	loc, err := timeparts.Location(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "Local"
	}
	return &Session{db: db, tzName: tz, loc: loc, rels: map[string]plan.Schema{}}, nil
}

// DB exposes the underlying handle for tests and for reading derived tables
// from on-disk databases.
func (s *Session) DB() *sql.DB { return s.db }

func (s *Session) Location() *time.Location { return s.loc }

// Relation implements plan.Catalog. Tables created by earlier runs against an
// on-disk database are found through pragma_table_info.
func (s *Session) Relation(name string) (plan.Schema, bool) {
	s.mu.Lock()
	schema, ok := s.rels[name]
	s.mu.Unlock()
	if ok {
		return schema, true
	}

	rows, err := s.db.Query(`SELECT name, type FROM pragma_table_info(?) ORDER BY cid`, name)
	if err != nil {
		return nil, false
	}
	defer rows.Close()
	for rows.Next() {
		var col, decl string
		if err := rows.Scan(&col, &decl); err != nil {
			return nil, false
		}
		schema = append(schema, plan.Field{Name: col, Type: typeOfDecl(decl)})
	}
	if rows.Err() != nil || len(schema) == 0 {
		return nil, false
	}
	s.mu.Lock()
	s.rels[name] = schema
	s.mu.Unlock()
	return schema, true
}

// Function implements plan.Catalog.
func (s *Session) Function(name string) (plan.Func, bool) {
	fn, ok := functions[name]
	if !ok {
		return plan.Func{}, false
	}
	return fn.Func, true
}

func (s *Session) setRelation(name string, schema plan.Schema) {
	s.mu.Lock()
	s.rels[name] = schema
	s.mu.Unlock()
}

func (s *Session) dropRelation(name string) {
	s.mu.Lock()
	delete(s.rels, name)
	s.mu.Unlock()
}

// RegisterView implements engine.Session.
func (s *Session) RegisterView(ctx context.Context, name string, recs []records.Record, hint plan.Schema) (plan.Schema, error) {
	schema := inferSchema(recs, hint)
	if len(schema) == 0 {
		return nil, fmt.Errorf("sqlite: view %s: no columns", name)
	}

	if err := s.recreate(ctx, name, schema, true); err != nil {
		return nil, err
	}

	rows := make([][]any, len(recs))
	for i, r := range recs {
		row := make([]any, len(schema))
		for j, f := range schema {
			row[j] = coerce(r[f.Name], f.Type)
		}
		rows[i] = row
	}
	if _, err := s.insert(ctx, name, schema.Names(), rows); err != nil {
		return nil, fmt.Errorf("sqlite: view %s: %w", name, err)
	}
	s.setRelation(name, schema)
	return schema, nil
}

// CreateTable implements engine.Session.
func (s *Session) CreateTable(ctx context.Context, name string, n plan.Node) (plan.Schema, error) {
	c := &compiler{cat: s, tz: s.tzName}
	query, schema, err := c.compile(n)
	if err != nil {
		return nil, fmt.Errorf("sqlite: table %s: %w", name, err)
	}
	if err := s.recreate(ctx, name, schema, false); err != nil {
		return nil, err
	}

	cols := make([]string, len(schema))
	for i, f := range schema {
		cols[i] = quoteIdent(f.Name)
	}
	stmt := "INSERT INTO " + quoteIdent(name) + " (" + strings.Join(cols, ", ") + ") " + query
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("sqlite: table %s: populate: %w", name, err)
	}
	s.setRelation(name, schema)
	return schema, nil
}

// Query implements engine.Session.
func (s *Session) Query(ctx context.Context, n plan.Node) (*engine.Result, error) {
	c := &compiler{cat: s, tz: s.tzName}
	query, schema, err := c.compile(n)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	if len(schema) > 0 {
		order := make([]string, len(schema))
		for i := range schema {
			order[i] = fmt.Sprintf("%d", i+1)
		}
		query += " ORDER BY " + strings.Join(order, ", ")
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	res := &engine.Result{Schema: schema}
	for rows.Next() {
		raw := make([]any, len(schema))
		ptrs := make([]any, len(schema))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		for i, f := range schema {
			raw[i] = fromSQL(raw[i], f.Type)
		}
		res.Rows = append(res.Rows, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}
	return res, nil
}

// Close closes the database. In-memory data is discarded.
func (s *Session) Close() error { return s.db.Close() }

// recreate drops any table called name, in either schema, and creates it
// with the given columns. Views go to the temp schema.
func (s *Session) recreate(ctx context.Context, name string, schema plan.Schema, temp bool) error {
	s.dropRelation(name)
	for _, db := range []string{"temp", "main"} {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+db+"."+quoteIdent(name)); err != nil {
			return fmt.Errorf("sqlite: drop %s: %w", name, err)
		}
	}

	defs := make([]string, len(schema))
	for i, f := range schema {
		defs[i] = quoteIdent(f.Name) + " " + sqlType(f.Type)
	}
	kw := "CREATE TABLE "
	if temp {
		kw = "CREATE TEMP TABLE "
	}
	if _, err := s.db.ExecContext(ctx, kw+quoteIdent(name)+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("sqlite: create %s: %w", name, err)
	}
	return nil
}

// insert loads rows inside one transaction through a prepared statement.
func (s *Session) insert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	cols := make([]string, len(columns))
	ph := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quoteIdent(c)
		ph[i] = "?"
	}
	stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(cols, ", "), strings.Join(ph, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("insert: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}
