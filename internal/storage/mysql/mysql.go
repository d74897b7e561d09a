// Package mysql registers the MySQL/MariaDB dialect, backed by
// go-sql-driver/mysql.
package mysql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tablekit/internal/ddl"
	"tablekit/internal/storage"
	"tablekit/internal/value"

	"github.com/go-sql-driver/mysql"
)

// Error numbers reported for constraint violations: duplicate key, foreign
// key parent/child, NOT NULL, CHECK.
var constraintNumbers = map[uint16]bool{
	1062: true,
	1451: true,
	1452: true,
	1048: true,
	3819: true,
}

// Dialect implements storage.Dialect for MySQL.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func init() { storage.Register(Dialect{}) }

func (Dialect) Kind() string       { return "mysql" }
func (Dialect) DriverName() string { return "mysql" }

// DSN accepts a go-sql-driver DSN, optionally prefixed with mysql://. The
// returned DSN reports matched rather than changed rows, so an UPDATE that
// rewrites identical values still counts as one affected row.
func (Dialect) DSN(url string) (string, error) {
	dsn := strings.TrimPrefix(strings.TrimSpace(url), "mysql://")
	if dsn == "" {
		return "", fmt.Errorf("mysql: DSN must not be empty")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

func (Dialect) InitStatements() []string {
	return []string{"SET NAMES utf8mb4"}
}

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (Dialect) CastText(expr string) string { return "CAST(" + expr + " AS CHAR)" }

func (Dialect) InsertDefaults(table string) string {
	return "INSERT INTO " + table + " () VALUES ()"
}

func (Dialect) Classify(err error) (string, bool, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return "", false, false
	}
	return strconv.Itoa(int(me.Number)), constraintNumbers[me.Number], true
}

func (d Dialect) DDLStyle() ddl.Style {
	return ddl.Style{
		Name:  "mysql",
		Quote: d.QuoteIdent,
		Guard: ddl.GuardIfNotExists,
		Types: map[value.Type]string{
			value.TypeVarchar: "VARCHAR(255)",
			value.TypeBlob:    "LONGBLOB",
			value.TypeReal:    "DOUBLE",
		},
	}
}

func (Dialect) TablesQuery() string {
	return "SELECT table_name FROM information_schema.tables " +
		"WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name"
}
