// Package ddl contains SQLite-specific helpers for generating DDL.
//
// SQLite has dynamic typing, so the mapping picks the canonical affinity of
// each logical type.
package ddl

import "musiclake/internal/plan"

// MapType maps a logical column type into a SQLite column type:
//   - int64  -> INTEGER
//   - bool   -> INTEGER (0/1)
//   - float64 -> REAL
//   - others -> TEXT
func MapType(t plan.Type) string {
	switch t {
	case plan.TypeInt64, plan.TypeBool:
		return "INTEGER"
	case plan.TypeFloat64:
		return "REAL"
	default:
		return "TEXT"
	}
}
