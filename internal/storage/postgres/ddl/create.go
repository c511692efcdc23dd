package ddl

import (
	"strings"

	gddl "musiclake/internal/ddl"
)

// Dialect renders Postgres DDL: double-quoted identifiers and
// CREATE SCHEMA IF NOT EXISTS for qualified names.
var Dialect = gddl.Dialect{
	Name:    "postgres ddl",
	Quote:   quoteIdent,
	MapType: MapType,
	CreateSchema: func(quotedSchema string) string {
		return "CREATE SCHEMA IF NOT EXISTS " + quotedSchema
	},
}

// quoteIdent quotes a single identifier segment for Postgres, e.g.:
//
//	quoteIdent(`pcv`)        => `"pcv"`
//	quoteIdent(`weird"name`) => `"weird""name"`
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
