// Package ddl renders CREATE TABLE statements from a database-agnostic
// table definition. Dialects supply a Style describing their quoting,
// existence guard and type spellings.
package ddl

import (
	"strings"

	"tablekit/internal/config"
)

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: declared type, e.g. INTEGER, TEXT, VARCHAR(40)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 'anon', CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name, optionally schema-qualified in dotted form,
// and its ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// FromConfig converts a configured table into a TableDef.
func FromConfig(t config.Table) TableDef {
	def := TableDef{FQN: strings.TrimSpace(t.Name)}
	for _, c := range t.Columns {
		def.Columns = append(def.Columns, ColumnDef{
			Name:       c.Name,
			SQLType:    c.Type,
			Nullable:   c.Nullable,
			PrimaryKey: c.PrimaryKey,
			Default:    c.Default,
		})
	}
	return def
}
