// Package all wires every built-in dialect into the storage registry.
//
// Importing it for side effects makes the following kinds available to
// storage.Open:
//
//   - "sqlite"   (tablekit/internal/storage/sqlite)
//   - "postgres" (tablekit/internal/storage/postgres)
//   - "mssql"    (tablekit/internal/storage/mssql)
//   - "mysql"    (tablekit/internal/storage/mysql)
//
// A binary that needs only some of them can import those packages directly
// instead.
package all

import (
	_ "tablekit/internal/storage/mssql"
	_ "tablekit/internal/storage/mysql"
	_ "tablekit/internal/storage/postgres"
	_ "tablekit/internal/storage/sqlite"
)
