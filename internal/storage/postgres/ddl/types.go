// Package ddl contains Postgres-specific helpers for generating DDL.
package ddl

import "musiclake/internal/plan"

// MapType maps a logical column type into a Postgres SQL type.
//
//	int64   -> BIGINT
//	float64 -> DOUBLE PRECISION
//	bool    -> BOOLEAN
//	string  -> TEXT (also the all-null type)
func MapType(t plan.Type) string {
	switch t {
	case plan.TypeInt64:
		return "BIGINT"
	case plan.TypeFloat64:
		return "DOUBLE PRECISION"
	case plan.TypeBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}
