// Package table is the relational-table engine: typed columns and rows, the
// descriptor contract that renders CRUD statements, and Table, an observable
// in-memory row collection kept in sync with storage by full re-fetch.
package table

import "tablekit/internal/value"

// Column is an immutable column description. Two columns are the same
// column when their table and name match.
type Column struct {
	table string
	name  string
	typ   value.Type
}

// NewColumn returns a column of table with the declared type.
func NewColumn(table, name string, typ value.Type) Column {
	return Column{table: table, name: name, typ: typ}
}

func (c Column) Name() string     { return c.name }
func (c Column) Table() string    { return c.table }
func (c Column) Type() value.Type { return c.typ }

// QualifiedName is "table.column".
func (c Column) QualifiedName() string { return c.table + "." + c.name }

// Same reports whether c and o identify the same column.
func (c Column) Same(o Column) bool { return c.table == o.table && c.name == o.name }

func (c Column) String() string { return c.QualifiedName() + " " + c.typ.String() }

func sameColumns(a, b []Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Same(b[i]) {
			return false
		}
	}
	return true
}
