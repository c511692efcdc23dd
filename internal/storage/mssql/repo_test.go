package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
)

// failingDriver opens connections whose transactions and statements fail,
// which is enough to drive the error paths without a server.
type failingDriver struct{}

type failingConn struct{}

func (failingDriver) Open(string) (driver.Conn, error) { return failingConn{}, nil }

func (failingConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("prepare refused") }
func (failingConn) Close() error                        { return nil }
func (failingConn) Begin() (driver.Tx, error)           { return nil, errors.New("tx refused") }

func (failingConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return nil, errors.New("tx refused")
}

func (failingConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	return nil, errors.New("exec refused")
}

var registerOnce sync.Once

func failingRepo(t *testing.T) *Repository {
	t.Helper()
	registerOnce.Do(func() { sql.Register("mssql_failing", failingDriver{}) })
	db, err := sql.Open("mssql_failing", "")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	r := &Repository{db: db}
	t.Cleanup(r.Close)
	return r
}

func TestCopyFromNoRows(t *testing.T) {
	t.Parallel()

	// No rows never touches the pool, so a zero Repository is fine.
	n, err := (&Repository{}).CopyFrom(context.Background(), "dbo.songs", []string{"song_id"}, nil)
	if err != nil || n != 0 {
		t.Fatalf("CopyFrom(nil) = %d, %v", n, err)
	}
}

func TestOpenRejectsBadDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "sqlserver://%zz")
	if err == nil || !strings.Contains(err.Error(), "mssql dsn") {
		t.Fatalf("Open error = %v, want dsn error", err)
	}
}

func TestErrorsAreWrapped(t *testing.T) {
	t.Parallel()

	r := failingRepo(t)
	ctx := context.Background()

	err := r.Exec(ctx, "SELECT 1")
	if err == nil || !strings.Contains(err.Error(), "mssql: exec: exec refused") {
		t.Fatalf("Exec error = %v", err)
	}

	n, err := r.CopyFrom(ctx, "analytics.users", []string{"user_id", "level"}, [][]any{{"10", "free"}})
	if n != 0 || err == nil {
		t.Fatalf("CopyFrom = %d, %v; want failure", n, err)
	}
	for _, part := range []string{"analytics.users", "begin tx", "tx refused"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("CopyFrom error %q lacks %q", err, part)
		}
	}
}
