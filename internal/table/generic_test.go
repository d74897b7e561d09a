package table

import (
	"testing"

	"tablekit/internal/storage/mssql"
	"tablekit/internal/storage/postgres"
	"tablekit/internal/storage/sqlite"
	"tablekit/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peopleColumns() []Column {
	return []Column{
		NewColumn("app.people", "id", value.TypeInteger),
		NewColumn("app.people", "name", value.TypeText),
		NewColumn("app.people", "photo", value.TypeBlob),
	}
}

func peopleRow(id value.Value, name string) Row {
	cols := peopleColumns()
	return newRowValues(cols, []value.Value{id, value.Text(name), value.Null()})
}

func TestGenericPostgres(t *testing.T) {
	g := &Generic{Table: "app.people", Dialect: postgres.Dialect{}, KeyColumns: []string{"id"}, OrderBy: "id"}
	row := peopleRow(value.Integer(1), "Ada")

	assert.Equal(t, `SELECT * FROM "app"."people" WHERE 1 = 0`, g.SchemaQuery().SQL)
	assert.Equal(t, "app.people", g.Title())

	st, err := g.InsertQuery(row)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "app"."people" ("id", "name") VALUES ($1, $2)`, st.SQL)
	assert.Equal(t, []any{int64(1), "Ada"}, st.Args)

	updated := peopleRow(value.Integer(1), "Ada Lovelace")
	st, err = g.UpdateQuery(row, updated)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "app"."people" SET "id" = $1, "name" = $2, "photo" = $3 WHERE "id" = $4`, st.SQL)
	assert.Equal(t, []any{int64(1), "Ada Lovelace", nil, int64(1)}, st.Args)

	st, err = g.DeleteQuery(row)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "app"."people" WHERE "id" = $1`, st.SQL)

	st, err = g.SelectQueryForRow(row)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "app"."people" WHERE "id" = $1`, st.SQL)

	st, err = g.InsertQuery(NewRow(peopleColumns()))
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "app"."people" DEFAULT VALUES`, st.SQL)
	assert.Empty(t, st.Args)
}

func TestGenericIdentityWithoutKeys(t *testing.T) {
	g := &Generic{Table: "people", Dialect: sqlite.Dialect{}}
	row := peopleRow(value.Integer(3), "x")

	st, err := g.DeleteQuery(row)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "people" WHERE "id" = ? AND "name" = ? AND "photo" IS NULL`, st.SQL)
	assert.Equal(t, []any{int64(3), "x"}, st.Args)

	_, err = g.SelectQueryForRow(row)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestGenericNullKey(t *testing.T) {
	g := &Generic{Table: "people", Dialect: sqlite.Dialect{}, KeyColumns: []string{"id", "name"}}
	st, err := g.DeleteQuery(peopleRow(value.Null(), "x"))
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "people" WHERE "id" IS NULL AND "name" = ?`, st.SQL)

	g.KeyColumns = []string{"missing"}
	_, err = g.DeleteQuery(peopleRow(value.Integer(1), "x"))
	assert.Error(t, err)
}

func TestGenericUpdateRejectsMismatchedRows(t *testing.T) {
	g := &Generic{Table: "people", Dialect: sqlite.Dialect{}, KeyColumns: []string{"id"}}
	other := NewRow([]Column{NewColumn("people", "id", value.TypeInteger)})
	_, err := g.UpdateQuery(peopleRow(value.Integer(1), "x"), other)
	assert.Error(t, err)
}

func TestGenericFilter(t *testing.T) {
	g := &Generic{Table: "people", Dialect: mssql.Dialect{}}

	st := g.SelectQuery("anything")
	assert.Equal(t, "SELECT * FROM [people]", st.SQL, "nothing to search before columns are bound")

	g.BindColumns(peopleColumns()[:2])
	st = g.SelectQuery("  Ad_a  ")
	assert.Equal(t,
		"SELECT * FROM [people] WHERE LOWER(CAST([id] AS NVARCHAR(MAX))) LIKE LOWER(CAST(@p1 AS NVARCHAR(MAX))) ESCAPE '!'"+
			" OR LOWER(CAST([name] AS NVARCHAR(MAX))) LIKE LOWER(CAST(@p2 AS NVARCHAR(MAX))) ESCAPE '!'",
		st.SQL)
	assert.Equal(t, []any{"%Ad!_a%", "%Ad!_a%"}, st.Args)

	g.SearchColumns = []string{"name"}
	g.OrderBy = "[name] DESC"
	st = g.SelectQuery("   ")
	assert.Equal(t, "SELECT * FROM [people] ORDER BY [name] DESC", st.SQL)
	assert.Empty(t, st.Args)

	// Decomposed input is normalized to the composed form.
	st = g.SelectQuery("Jose\u0301")
	assert.Equal(t, []any{"%Jos\u00e9%"}, st.Args)
}

func TestGenericFilterFoldsBothSidesInSQL(t *testing.T) {
	g := &Generic{Table: "people", Dialect: postgres.Dialect{}, SearchColumns: []string{"name"}}
	st := g.SelectQuery("École")
	assert.Equal(t,
		`SELECT * FROM "people" WHERE LOWER(CAST("name" AS TEXT)) LIKE LOWER(CAST($1 AS TEXT)) ESCAPE '!'`,
		st.SQL)
	assert.Equal(t, []any{"%École%"}, st.Args)
}

func TestBindColumnsDoesNotAliasCopies(t *testing.T) {
	g := &Generic{Table: "people", Dialect: sqlite.Dialect{}}
	g.BindColumns(peopleColumns())
	snapshot := *g
	g.BindColumns(peopleColumns()[2:])
	assert.Equal(t, []string{"id", "name", "photo"}, snapshot.bound)
	assert.Equal(t, []string{"photo"}, g.bound)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "100!% !_x!! ", escapeLike("100% _x! "))
}
