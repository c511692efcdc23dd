package storage

import (
	"context"
	"strings"
	"testing"

	"musiclake/internal/ddl"
	"musiclake/internal/engine"
	"musiclake/internal/plan"
)

type recordingRepo struct {
	stmts  []string
	table  string
	cols   []string
	rows   [][]any
	copies int
	closed bool
}

func (r *recordingRepo) CopyFrom(_ context.Context, table string, columns []string, rows [][]any) (int64, error) {
	r.table = table
	r.cols = columns
	r.copies++
	for _, row := range rows {
		r.rows = append(r.rows, append([]any(nil), row...))
	}
	return int64(len(rows)), nil
}

func (r *recordingRepo) Exec(_ context.Context, sql string) error {
	r.stmts = append(r.stmts, sql)
	return nil
}

func (r *recordingRepo) Close() { r.closed = true }

func registerRecording(t *testing.T, kind string, schemas bool) *recordingRepo {
	t.Helper()
	repo := &recordingRepo{}
	Register(kind, func(context.Context, Config) (Repository, error) { return repo, nil })
	d := ddl.Dialect{
		Name:    kind + " ddl",
		Quote:   func(s string) string { return "`" + s + "`" },
		MapType: func(plan.Type) string { return "TEXT" },
	}
	if schemas {
		d.CreateSchema = func(q string) string { return "CREATE SCHEMA " + q }
	}
	RegisterDDL(kind, d)
	return repo
}

func TestWarehouse_LoadRecreatesAndCopies(t *testing.T) {
	t.Parallel()

	repo := registerRecording(t, "wh-rec", true)
	w, err := OpenWarehouse(context.Background(), Config{Kind: "wh-rec"}, "analytics", 2, "test", nil)
	if err != nil {
		t.Fatalf("OpenWarehouse: %v", err)
	}
	res := &engine.Result{
		Schema: plan.Schema{{Name: "user_id", Type: plan.TypeString}, {Name: "level", Type: plan.TypeString}},
		Rows:   [][]any{{"10", "free"}, {"10", "paid"}, {"11", nil}},
	}
	if err := w.Load(context.Background(), "users", res); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(repo.stmts) != 3 || !strings.HasPrefix(repo.stmts[1], "DROP TABLE IF EXISTS `analytics`.`users`") {
		t.Fatalf("stmts = %q", repo.stmts)
	}
	if repo.table != "analytics.users" {
		t.Fatalf("copy table = %q, want analytics.users", repo.table)
	}
	if repo.copies != 2 || len(repo.rows) != 3 {
		t.Fatalf("copies=%d rows=%d, want 2 and 3", repo.copies, len(repo.rows))
	}
	if strings.Join(repo.cols, ",") != "user_id,level" {
		t.Fatalf("columns = %v", repo.cols)
	}

	w.Close()
	if !repo.closed {
		t.Fatal("Close did not close the repository")
	}
}

func TestWarehouse_SchemaFoldedWithoutSchemaSupport(t *testing.T) {
	t.Parallel()

	registerRecording(t, "wh-flat", false)
	w := &Warehouse{Kind: "wh-flat", Schema: "analytics"}
	got, err := w.TableName("songs")
	if err != nil {
		t.Fatalf("TableName: %v", err)
	}
	if got != "analytics_songs" {
		t.Fatalf("TableName = %q, want analytics_songs", got)
	}
}

func TestOpenWarehouse_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := OpenWarehouse(context.Background(), Config{Kind: "nope"}, "", 0, "test", nil)
	if err == nil || !strings.Contains(err.Error(), `storage.kind="nope"`) {
		t.Fatalf("err = %v, want missing dialect error", err)
	}
}
