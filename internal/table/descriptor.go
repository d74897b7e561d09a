package table

import (
	"errors"

	"tablekit/internal/storage"
)

// ErrUnsupported is returned by a Descriptor for an operation it does not
// implement. The engine reports it as a *dberrors.CapabilityError.
var ErrUnsupported = errors.New("table: operation not supported by descriptor")

// Descriptor supplies the table-specific SQL. The engine owns execution and
// the row collection; a descriptor only renders statements.
type Descriptor interface {
	// Name is the storage table name. Built columns belong to it.
	Name() string
	// Title is the display name.
	Title() string
	// SchemaQuery returns a statement whose result metadata describes the
	// table's columns. It need not return rows.
	SchemaQuery() storage.Statement
	// SelectQuery returns the rows matching filter, which may be empty.
	SelectQuery(filter string) storage.Statement
	InsertQuery(row Row) (storage.Statement, error)
	// UpdateQuery identifies the stored row by old and writes the values of
	// updated.
	UpdateQuery(old, updated Row) (storage.Statement, error)
	DeleteQuery(row Row) (storage.Statement, error)
	// SelectQueryForRow re-reads a single row. Descriptors that cannot
	// identify rows return ErrUnsupported.
	SelectQueryForRow(row Row) (storage.Statement, error)
}

// ColumnBinder is implemented by descriptors that need the built column
// list, for example to search every column when none were configured.
type ColumnBinder interface {
	BindColumns(cols []Column)
}
