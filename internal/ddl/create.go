// Package ddl turns the column schema of a derived table into DROP and CREATE
// statements for a SQL dialect. Backends describe their dialect (identifier
// quoting, type mapping, schema handling) and the rendering here stays the
// same for all of them.
package ddl

import (
	"context"
	"fmt"
	"strings"

	"musiclake/internal/plan"
)

// Dialect captures what differs between SQL backends.
type Dialect struct {
	// Name prefixes error messages, e.g. "postgres ddl".
	Name string

	// Quote quotes a single identifier segment.
	Quote func(ident string) string

	// MapType maps a logical column type to a column type.
	MapType func(plan.Type) string

	// CreateSchema renders a statement that creates a schema when missing.
	// Nil means the backend has no schemas; Qualify then folds the schema
	// into the table name.
	CreateSchema func(quotedSchema string) string
}

// Qualify returns the dotted table name for table in schema. Without schema
// support "analytics" and "songs" become "analytics_songs".
func (d Dialect) Qualify(schema, table string) string {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return table
	}
	if d.CreateSchema == nil {
		return schema + "_" + table
	}
	return schema + "." + table
}

// QuoteFQN quotes each non-empty segment of a dotted name.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.Quote(p))
	}
	return strings.Join(out, ".")
}

// TableDef builds a table definition from a result schema. Every column is
// nullable.
func (d Dialect) TableDef(fqn string, schema plan.Schema) TableDef {
	cols := make([]ColumnDef, len(schema))
	for i, f := range schema {
		cols[i] = ColumnDef{Name: f.Name, SQLType: d.MapType(f.Type), Nullable: true}
	}
	return TableDef{FQN: fqn, Columns: cols}
}

// BuildCreateTableSQL renders a CREATE TABLE statement.
//
// Rules:
//   - t.FQN must be non-empty.
//   - Each column must have a non-empty Name and SQLType.
//   - A column is rendered as <quoted name> <SQLType> [NOT NULL].
func (d Dialect) BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n)",
		d.QuoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	), nil
}

// BuildDropTableSQL renders DROP TABLE IF EXISTS.
func (d Dialect) BuildDropTableSQL(fqn string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteFQN(fqn)
}

// ExecFunc runs one statement.
type ExecFunc func(ctx context.Context, sql string) error

// Recreate drops fqn and creates it with the columns of schema. A schema
// qualifier is created first when the dialect supports schemas.
func (d Dialect) Recreate(ctx context.Context, exec ExecFunc, fqn string, schema plan.Schema) error {
	create, err := d.BuildCreateTableSQL(d.TableDef(fqn, schema))
	if err != nil {
		return err
	}
	stmts := make([]string, 0, 3)
	if i := strings.LastIndexByte(fqn, '.'); i > 0 && d.CreateSchema != nil {
		stmts = append(stmts, d.CreateSchema(d.QuoteFQN(fqn[:i])))
	}
	stmts = append(stmts, d.BuildDropTableSQL(fqn), create)
	for _, s := range stmts {
		if err := exec(ctx, s); err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
	}
	return nil
}
