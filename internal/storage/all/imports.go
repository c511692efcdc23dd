// Package all wires the built-in warehouse backends into the storage
// factory. Importing it for side effects registers:
//
//   - "postgres" (musiclake/internal/storage/postgres)
//   - "mssql"    (musiclake/internal/storage/mssql)
//   - "sqlite"   (musiclake/internal/storage/sqlite)
//
// A binary that needs only a subset can import those packages directly.
package all

import (
	_ "musiclake/internal/storage/mssql"
	_ "musiclake/internal/storage/postgres"
	_ "musiclake/internal/storage/sqlite"
)
