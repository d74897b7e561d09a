// Package mssql registers the Microsoft SQL Server dialect, backed by
// go-mssqldb.
package mssql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tablekit/internal/ddl"
	"tablekit/internal/storage"
	"tablekit/internal/value"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Error numbers reported for constraint violations: primary key, unique
// index, foreign key/check, NOT NULL.
var constraintNumbers = map[int32]bool{
	2627: true,
	2601: true,
	547:  true,
	515:  true,
}

// Dialect implements storage.Dialect for SQL Server.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func init() { storage.Register(Dialect{}) }

func (Dialect) Kind() string       { return "mssql" }
func (Dialect) DriverName() string { return "sqlserver" }

// DSN validates a sqlserver:// URL (mssql:// is accepted as an alias) or
// an ADO-style string.
func (Dialect) DSN(url string) (string, error) {
	dsn := strings.TrimSpace(url)
	if strings.HasPrefix(strings.ToLower(dsn), "mssql://") {
		dsn = "sqlserver://" + dsn[len("mssql://"):]
	}
	if dsn == "" {
		return "", fmt.Errorf("mssql: DSN must not be empty")
	}
	if _, err := msdsn.Parse(dsn); err != nil {
		return "", fmt.Errorf("mssql dsn: %w", err)
	}
	return dsn, nil
}

func (Dialect) InitStatements() []string {
	return []string{"SET NOCOUNT OFF", "SET ANSI_NULLS ON"}
}

func (Dialect) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

func (Dialect) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (Dialect) CastText(expr string) string { return "CAST(" + expr + " AS NVARCHAR(MAX))" }

func (Dialect) InsertDefaults(table string) string {
	return "INSERT INTO " + table + " DEFAULT VALUES"
}

func (Dialect) Classify(err error) (string, bool, bool) {
	var me mssql.Error
	if !errors.As(err, &me) {
		return "", false, false
	}
	return strconv.Itoa(int(me.Number)), constraintNumbers[me.Number], true
}

func (d Dialect) DDLStyle() ddl.Style {
	return ddl.Style{
		Name:  "mssql",
		Quote: d.QuoteIdent,
		Guard: ddl.GuardObjectID,
		Types: map[value.Type]string{
			value.TypeText:    "NVARCHAR(MAX)",
			value.TypeVarchar: "NVARCHAR(255)",
			value.TypeBlob:    "VARBINARY(MAX)",
			value.TypeBoolean: "BIT",
			value.TypeReal:    "FLOAT",
			value.TypeInteger: "BIGINT",
		},
	}
}

func (Dialect) TablesQuery() string {
	return "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME"
}
