// Package ddl contains MSSQL-specific helpers for generating DDL.
package ddl

import "musiclake/internal/plan"

// MapType maps a logical column type into a SQL Server column type. Strings
// and all-null columns use NVARCHAR(MAX).
func MapType(t plan.Type) string {
	switch t {
	case plan.TypeInt64:
		return "BIGINT"
	case plan.TypeFloat64:
		return "FLOAT"
	case plan.TypeBool:
		return "BIT"
	default:
		return "NVARCHAR(MAX)"
	}
}
