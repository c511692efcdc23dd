// Package engine defines the query session the transformers run against: a
// catalog of registered views and derived tables that executes relational
// plans. Concrete engines register themselves by kind.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"musiclake/internal/plan"
	"musiclake/pkg/records"
)

// Config selects and configures an engine.
type Config struct {
	// Kind names a registered engine, e.g. "sqlite".
	Kind string
	// DSN is engine specific; empty picks the engine default.
	DSN string
	// Timezone is the IANA zone the time functions convert into. Empty or
	// "Local" means the host zone.
	Timezone string
}

// Result is a fully materialised query result. Values are nil, bool, int64,
// float64 or string, matching the column type in Schema.
type Result struct {
	Schema plan.Schema
	Rows   [][]any
}

// Column returns the values of the named column, or nil when absent.
func (r *Result) Column(name string) []any {
	i := r.Schema.Index(name)
	if i < 0 {
		return nil
	}
	out := make([]any, len(r.Rows))
	for j, row := range r.Rows {
		out[j] = row[i]
	}
	return out
}

// Session is a handle to a query engine. Sessions are not safe for
// concurrent use; the pipeline uses one session sequentially.
type Session interface {
	plan.Catalog

	// RegisterView replaces the view name with recs. The view's columns are
	// the hint columns followed by any other keys found in recs; hinted
	// columns keep their declared type and values that do not convert become
	// NULL.
	RegisterView(ctx context.Context, name string, recs []records.Record, hint plan.Schema) (plan.Schema, error)

	// CreateTable drops name if present and materialises n into it.
	CreateTable(ctx context.Context, name string, n plan.Node) (plan.Schema, error)

	// Query runs n and returns every row, ordered by all output columns.
	Query(ctx context.Context, n plan.Node) (*Result, error)

	// Location is the zone the time functions use.
	Location() *time.Location

	Close() error
}

// Factory opens a session of one kind.
type Factory func(ctx context.Context, cfg Config) (Session, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes an engine kind available to Open.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(kind)] = f
}

// Kinds lists the registered engines.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open creates a session for cfg.Kind.
func Open(ctx context.Context, cfg Config) (Session, error) {
	mu.RLock()
	f, ok := factories[strings.ToLower(cfg.Kind)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine: unknown kind %q (registered: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return f(ctx, cfg)
}
