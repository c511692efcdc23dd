package ddl

import (
	"strings"

	gddl "musiclake/internal/ddl"
)

// Dialect renders T-SQL DDL with [bracket] quoting. DROP TABLE IF EXISTS
// needs SQL Server 2016 or later; CREATE SCHEMA must be the only statement in
// its batch, hence the EXEC.
var Dialect = gddl.Dialect{
	Name:    "mssql ddl",
	Quote:   QuoteIdent,
	MapType: MapType,
	CreateSchema: func(quotedSchema string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(quotedSchema, "["), "]")
		name = strings.ReplaceAll(name, "]]", "]")
		return "IF SCHEMA_ID(N'" + strings.ReplaceAll(name, "'", "''") + "') IS NULL " +
			"EXEC(N'CREATE SCHEMA " + strings.ReplaceAll(quotedSchema, "'", "''") + "')"
	},
}

// QuoteIdent quotes a single identifier segment using bracket syntax,
// escaping closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func QuoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
