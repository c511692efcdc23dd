package ddl

import (
	"strings"

	gddl "musiclake/internal/ddl"
)

// Dialect renders SQLite DDL. SQLite has no schemas (a qualifier names an
// attached database), so a warehouse schema is folded into the table name.
var Dialect = gddl.Dialect{
	Name:    "sqlite ddl",
	Quote:   quoteIdent,
	MapType: MapType,
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
