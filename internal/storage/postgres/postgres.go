// Package postgres registers the PostgreSQL dialect, backed by the pgx
// database/sql driver.
package postgres

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tablekit/internal/ddl"
	"tablekit/internal/storage"
	"tablekit/internal/value"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers driver "pgx"
)

// Dialect implements storage.Dialect for PostgreSQL.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func init() { storage.Register(Dialect{}) }

func (Dialect) Kind() string       { return "postgres" }
func (Dialect) DriverName() string { return "pgx" }

// DSN validates a postgres:// URL or keyword/value string without
// connecting.
func (Dialect) DSN(url string) (string, error) {
	dsn := strings.TrimSpace(url)
	if dsn == "" {
		return "", fmt.Errorf("postgres: DSN must not be empty")
	}
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("postgres dsn: %w", err)
	}
	return dsn, nil
}

func (Dialect) InitStatements() []string {
	return []string{"SET application_name = 'tablekit'"}
}

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Dialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Dialect) CastText(expr string) string { return "CAST(" + expr + " AS TEXT)" }

func (Dialect) InsertDefaults(table string) string {
	return "INSERT INTO " + table + " DEFAULT VALUES"
}

// Classify treats SQLSTATE class 23 (integrity constraint violation) as a
// constraint failure.
func (Dialect) Classify(err error) (string, bool, bool) {
	var pe *pgconn.PgError
	if !errors.As(err, &pe) {
		return "", false, false
	}
	return pe.Code, strings.HasPrefix(pe.Code, "23"), true
}

func (d Dialect) DDLStyle() ddl.Style {
	return ddl.Style{
		Name:  "postgres",
		Quote: d.QuoteIdent,
		Guard: ddl.GuardIfNotExists,
		Types: map[value.Type]string{
			value.TypeBlob: "BYTEA",
			value.TypeReal: "DOUBLE PRECISION",
		},
	}
}

func (Dialect) TablesQuery() string {
	return "SELECT table_name FROM information_schema.tables " +
		"WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name"
}
