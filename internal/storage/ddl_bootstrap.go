package storage

import (
	"context"
	"fmt"
	"sync"

	"musiclake/internal/ddl"
	"musiclake/internal/plan"
)

var (
	ddlMu    sync.RWMutex
	dialects = map[string]ddl.Dialect{}
)

// RegisterDDL registers (or replaces) the DDL dialect of a storage kind. It
// is called from backend packages' init functions.
func RegisterDDL(kind string, d ddl.Dialect) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	dialects[kind] = d
}

// DialectFor returns the dialect registered for kind.
func DialectFor(kind string) (ddl.Dialect, error) {
	ddlMu.RLock()
	d, ok := dialects[kind]
	ddlMu.RUnlock()
	if !ok {
		return ddl.Dialect{}, fmt.Errorf("no DDL dialect registered for storage.kind=%q", kind)
	}
	return d, nil
}

// RecreateTable drops fqn and creates it with the columns of schema using
// the dialect of kind. Statements run through repo.Exec.
func RecreateTable(ctx context.Context, kind string, repo Repository, fqn string, schema plan.Schema) error {
	d, err := DialectFor(kind)
	if err != nil {
		return err
	}
	return d.Recreate(ctx, repo.Exec, fqn, schema)
}
