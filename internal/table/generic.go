package table

import (
	"fmt"
	"strings"

	"tablekit/internal/storage"

	"golang.org/x/text/unicode/norm"
)

// Generic is a data-only Descriptor for a single storage table.
//
// KeyColumns names the identifying columns. Without them a row is identified
// by all of its values, the engine rejects updates and deletes that match
// more than one stored row, and SelectQueryForRow is unsupported.
// SearchColumns limits filtering; when empty, every built column is searched.
type Generic struct {
	Table         string
	DisplayTitle  string
	Dialect       storage.Dialect
	KeyColumns    []string
	SearchColumns []string
	// OrderBy is appended verbatim to SELECT statements.
	OrderBy string

	bound []string
}

var (
	_ Descriptor   = (*Generic)(nil)
	_ ColumnBinder = (*Generic)(nil)
)

func (g *Generic) Name() string { return g.Table }

func (g *Generic) Title() string {
	if g.DisplayTitle != "" {
		return g.DisplayTitle
	}
	return g.Table
}

// BindColumns records the built column names for default filtering.
func (g *Generic) BindColumns(cols []Column) {
	g.bound = make([]string, 0, len(cols))
	for _, c := range cols {
		g.bound = append(g.bound, c.Name())
	}
}

func (g *Generic) table() string { return g.Dialect.DDLStyle().QuoteFQN(g.Table) }

func (g *Generic) SchemaQuery() storage.Statement {
	return storage.Statement{SQL: "SELECT * FROM " + g.table() + " WHERE 1 = 0"}
}

// SelectQuery matches filter, trimmed and NFC-normalized, as a
// case-insensitive substring of any search column. Column and pattern are
// folded by the same SQL LOWER, so case folding follows the database: SQLite
// folds ASCII letters only.
func (g *Generic) SelectQuery(filter string) storage.Statement {
	b := g.newBuilder()
	b.sql.WriteString("SELECT * FROM " + g.table())

	filter = norm.NFC.String(strings.TrimSpace(filter))
	search := g.SearchColumns
	if len(search) == 0 {
		search = g.bound
	}
	if filter != "" && len(search) > 0 {
		pattern := "%" + escapeLike(filter) + "%"
		conds := make([]string, len(search))
		for i, name := range search {
			col := g.Dialect.CastText(g.Dialect.QuoteIdent(name))
			arg := g.Dialect.CastText(b.bind(pattern))
			conds[i] = "LOWER(" + col + ") LIKE LOWER(" + arg + ") ESCAPE '!'"
		}
		b.sql.WriteString(" WHERE " + strings.Join(conds, " OR "))
	}
	if g.OrderBy != "" {
		b.sql.WriteString(" ORDER BY " + g.OrderBy)
	}
	return b.statement()
}

func (g *Generic) InsertQuery(row Row) (storage.Statement, error) {
	b := g.newBuilder()
	var names, marks []string
	for i, c := range row.cols {
		v := row.vals[i]
		if v.IsNull() {
			continue
		}
		names = append(names, g.Dialect.QuoteIdent(c.Name()))
		marks = append(marks, b.bind(v.Driver()))
	}
	if len(names) == 0 {
		return storage.Statement{SQL: g.Dialect.InsertDefaults(g.table())}, nil
	}
	fmt.Fprintf(&b.sql, "INSERT INTO %s (%s) VALUES (%s)",
		g.table(), strings.Join(names, ", "), strings.Join(marks, ", "))
	return b.statement(), nil
}

func (g *Generic) UpdateQuery(old, updated Row) (storage.Statement, error) {
	if !sameColumns(old.cols, updated.cols) {
		return storage.Statement{}, fmt.Errorf("table %s: update rows have different columns", g.Table)
	}
	if len(updated.cols) == 0 {
		return storage.Statement{}, fmt.Errorf("table %s: update of a row without columns", g.Table)
	}
	b := g.newBuilder()
	sets := make([]string, len(updated.cols))
	for i, c := range updated.cols {
		sets[i] = g.Dialect.QuoteIdent(c.Name()) + " = " + b.bind(updated.vals[i].Driver())
	}
	where, err := g.identify(b, old)
	if err != nil {
		return storage.Statement{}, err
	}
	fmt.Fprintf(&b.sql, "UPDATE %s SET %s WHERE %s", g.table(), strings.Join(sets, ", "), where)
	return b.statement(), nil
}

func (g *Generic) DeleteQuery(row Row) (storage.Statement, error) {
	b := g.newBuilder()
	where, err := g.identify(b, row)
	if err != nil {
		return storage.Statement{}, err
	}
	fmt.Fprintf(&b.sql, "DELETE FROM %s WHERE %s", g.table(), where)
	return b.statement(), nil
}

func (g *Generic) SelectQueryForRow(row Row) (storage.Statement, error) {
	if len(g.KeyColumns) == 0 {
		return storage.Statement{}, ErrUnsupported
	}
	b := g.newBuilder()
	where, err := g.identify(b, row)
	if err != nil {
		return storage.Statement{}, err
	}
	fmt.Fprintf(&b.sql, "SELECT * FROM %s WHERE %s", g.table(), where)
	return b.statement(), nil
}

// identify renders the WHERE clause that selects row.
func (g *Generic) identify(b *builder, row Row) (string, error) {
	names := g.KeyColumns
	if len(names) == 0 {
		names = make([]string, len(row.cols))
		for i, c := range row.cols {
			names[i] = c.Name()
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("table %s: cannot identify a row without columns", g.Table)
	}
	conds := make([]string, len(names))
	for i, name := range names {
		v, ok := row.GetByName(name)
		if !ok {
			return "", fmt.Errorf("table %s: row has no key column %q", g.Table, name)
		}
		col := g.Dialect.QuoteIdent(name)
		if v.IsNull() {
			conds[i] = col + " IS NULL"
			continue
		}
		conds[i] = col + " = " + b.bind(v.Driver())
	}
	return strings.Join(conds, " AND "), nil
}

// builder accumulates SQL text and its positional arguments.
type builder struct {
	d    storage.Dialect
	sql  strings.Builder
	args []any
}

func (g *Generic) newBuilder() *builder { return &builder{d: g.Dialect} }

// bind appends v and returns its placeholder.
func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func (b *builder) statement() storage.Statement {
	return storage.Statement{SQL: b.sql.String(), Args: b.args}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string { return likeEscaper.Replace(s) }
