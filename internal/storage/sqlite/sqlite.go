// Package sqlite registers the SQLite dialect with the storage package.
//
// Build modes:
//   - Default (CGO_ENABLED=0): pure Go modernc.org/sqlite, driver "sqlite"
//   - -tags cgo_sqlite: github.com/mattn/go-sqlite3, driver "sqlite3"
//
// Either way every connection gets the same session pragmas on open.
package sqlite

import (
	"fmt"
	"strings"

	"tablekit/internal/ddl"
	"tablekit/internal/storage"
)

// Pragmas are applied, in order, to every new connection.
var Pragmas = []string{
	"PRAGMA auto_vacuum = 1",
	"PRAGMA automatic_index = 1",
	"PRAGMA case_sensitive_like = 0",
	"PRAGMA defer_foreign_keys = 0",
	"PRAGMA encoding = 'UTF-8'",
	"PRAGMA foreign_keys = 1",
	"PRAGMA ignore_check_constraints = 0",
	"PRAGMA journal_mode = WAL",
	"PRAGMA query_only = 0",
	"PRAGMA recursive_triggers = 1",
	"PRAGMA reverse_unordered_selects = 0",
	"PRAGMA secure_delete = 0",
	"PRAGMA synchronous = NORMAL",
}

// constraintCode is the primary SQLITE_CONSTRAINT result code; extended
// codes (UNIQUE, FOREIGNKEY, NOTNULL...) share its low byte.
const constraintCode = 19

// Dialect implements storage.Dialect for SQLite.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func init() { storage.Register(Dialect{}) }

// DriverType reports the compiled-in implementation, "purego" or "cgo".
func DriverType() string { return driverType }

func (Dialect) Kind() string       { return "sqlite" }
func (Dialect) DriverName() string { return driverName }

// DSN accepts a plain path, a file: URI, ":memory:" or a sqlite:// URL.
func (Dialect) DSN(url string) (string, error) {
	dsn := strings.TrimSpace(url)
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "sqlite:"):
		dsn = strings.TrimPrefix(dsn, "sqlite:")
	}
	if dsn == "" {
		return "", fmt.Errorf("sqlite: DSN must not be empty")
	}
	return dsn, nil
}

func (Dialect) InitStatements() []string { return Pragmas }

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Dialect) CastText(expr string) string { return "CAST(" + expr + " AS TEXT)" }

func (Dialect) InsertDefaults(table string) string {
	return "INSERT INTO " + table + " DEFAULT VALUES"
}

func (Dialect) Classify(err error) (string, bool, bool) { return classify(err) }

func (d Dialect) DDLStyle() ddl.Style {
	return ddl.Style{Name: "sqlite", Quote: d.QuoteIdent, Guard: ddl.GuardIfNotExists}
}

func (Dialect) TablesQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}
