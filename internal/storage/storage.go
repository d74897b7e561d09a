// Package storage is the connection and statement manager. It owns exactly
// one database handle per Connection, applies the dialect's session setup on
// open and runs every statement under a bounded timeout.
//
// Dialects register themselves at init time; importing
// tablekit/internal/storage/all enables every built-in one.
package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tablekit/internal/ddl"
)

// DefaultStatementTimeout bounds every statement. Config.StatementTimeout
// may shorten it but never extend it.
const DefaultStatementTimeout = 5 * time.Second

// Statement is SQL text plus positional arguments, already rendered in the
// dialect's placeholder syntax.
type Statement struct {
	SQL  string
	Args []any
}

// Config selects and configures a Connection.
type Config struct {
	// Kind is the registered dialect name. Empty infers it from URL.
	Kind string
	URL  string
	// StatementTimeout overrides DefaultStatementTimeout when it is positive
	// and smaller.
	StatementTimeout time.Duration
}

func (c Config) timeout() time.Duration {
	if c.StatementTimeout <= 0 || c.StatementTimeout > DefaultStatementTimeout {
		return DefaultStatementTimeout
	}
	return c.StatementTimeout
}

// Dialect captures what differs between database engines.
type Dialect interface {
	// Kind is the registry name, e.g. "sqlite".
	Kind() string
	// DriverName is the database/sql driver name.
	DriverName() string
	// DSN validates url and returns the driver data source name.
	DSN(url string) (string, error)
	// InitStatements run once on the pinned handle after open.
	InitStatements() []string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder(n int) string
	// QuoteIdent quotes a single identifier.
	QuoteIdent(name string) string
	// CastText renders expr converted to text, for filtering.
	CastText(expr string) string
	// InsertDefaults renders an INSERT of a row made only of column
	// defaults into the already quoted table.
	InsertDefaults(table string) string
	// Classify extracts the driver code from err and reports whether it is
	// a constraint violation. ok is false when err is not a driver error.
	Classify(err error) (code string, constraint, ok bool)
	// DDLStyle configures CREATE TABLE rendering.
	DDLStyle() ddl.Style
	// TablesQuery lists user tables, one name per row.
	TablesQuery() string
}

var (
	mu       sync.RWMutex
	dialects = map[string]Dialect{}
)

// Register makes a dialect available under d.Kind(). Registering the same
// kind again replaces the previous dialect.
func Register(d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[d.Kind()] = d
}

// Lookup returns the dialect registered for kind.
func Lookup(kind string) (Dialect, error) {
	mu.RLock()
	d, ok := dialects[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported database kind=%s", kind)
	}
	return d, nil
}

// ListKinds returns the registered dialect names, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(dialects))
	for k := range dialects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// InferKind guesses the dialect from the URL scheme. Anything without a
// known server scheme is treated as a SQLite path.
func InferKind(url string) string {
	u := strings.ToLower(strings.TrimSpace(url))
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(u, "sqlserver://"), strings.HasPrefix(u, "mssql://"):
		return "mssql"
	case strings.HasPrefix(u, "mysql://"):
		return "mysql"
	default:
		return "sqlite"
	}
}

// Placeholders renders n placeholders starting at position from, joined
// by ", ".
func Placeholders(d Dialect, from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = d.Placeholder(from + i)
	}
	return strings.Join(ps, ", ")
}
