// Package dberrors defines the error taxonomy shared by the connection
// manager, the value coercion layer and the table engine.
//
// Every error type is a struct carrying context that unwraps to one of the
// sentinels below (and, where there is one, to the driver cause), so callers
// can branch with errors.Is on the category or errors.As on the details.
package dberrors

import (
	"errors"
	"fmt"
)

// Sentinel categories.
var (
	// ErrConnection indicates the database handle could not be opened,
	// initialized or closed.
	ErrConnection = errors.New("connection error")
	// ErrTimeout indicates a statement exceeded its execution timeout.
	ErrTimeout = errors.New("statement timeout")
	// ErrSQL indicates malformed SQL or a constraint violation.
	ErrSQL = errors.New("sql error")
	// ErrFormat indicates input text failed type coercion.
	ErrFormat = errors.New("format error")
	// ErrCapability indicates a descriptor does not support an operation.
	ErrCapability = errors.New("unsupported capability")
	// ErrAmbiguousRow indicates an update/delete matched zero or several rows.
	ErrAmbiguousRow = errors.New("ambiguous row")
)

// ConnectionError reports an open, initialization or close failure.
type ConnectionError struct {
	Op  string // "open", "init", "close"
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("connection %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() []error { return unwrapBoth(ErrConnection, e.Err) }

// TimeoutError reports a statement that ran past its deadline. The
// connection that issued it is still usable.
type TimeoutError struct {
	SQL     string
	Timeout string
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("statement exceeded %s timeout: %s", e.Timeout, e.SQL)
}

func (e *TimeoutError) Unwrap() []error { return unwrapBoth(ErrTimeout, e.Err) }

// SQLError reports a statement the database rejected.
type SQLError struct {
	SQL string
	// Code is the driver-specific code (SQLite result code, SQLSTATE, error
	// number), rendered as text. Empty when the driver gave none.
	Code string
	// Constraint is true when the failure is a constraint violation
	// (unique, foreign key, not null, check).
	Constraint bool
	Err        error
}

func (e *SQLError) Error() string {
	kind := "sql"
	if e.Constraint {
		kind = "constraint violation"
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %v", kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", kind, e.Err)
}

func (e *SQLError) Unwrap() []error { return unwrapBoth(ErrSQL, e.Err) }

// FormatError reports text that does not parse as the declared column type.
type FormatError struct {
	Column string // qualified column name, if known
	Type   string
	Input  string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("invalid %s value %q for %s", e.Type, e.Input, e.Column)
	}
	return fmt.Sprintf("invalid %s value %q", e.Type, e.Input)
}

func (e *FormatError) Unwrap() []error { return unwrapBoth(ErrFormat, e.Err) }

// CapabilityError reports an operation the table descriptor cannot serve.
type CapabilityError struct {
	Table     string
	Operation string
	Err       error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("table %s does not support %s", e.Table, e.Operation)
}

func (e *CapabilityError) Unwrap() []error { return unwrapBoth(ErrCapability, e.Err) }

// AmbiguousRowError reports a row-identifying statement that matched a
// number of rows other than one.
type AmbiguousRowError struct {
	Table     string
	Operation string
	Affected  int64
}

func (e *AmbiguousRowError) Error() string {
	return fmt.Sprintf("%s on %s matched %d rows, want exactly 1", e.Operation, e.Table, e.Affected)
}

func (e *AmbiguousRowError) Unwrap() error { return ErrAmbiguousRow }

func unwrapBoth(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsConstraint reports whether err wraps a constraint-violation SQLError.
func IsConstraint(err error) bool {
	var se *SQLError
	return errors.As(err, &se) && se.Constraint
}
