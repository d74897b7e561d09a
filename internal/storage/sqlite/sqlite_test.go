package sqlite

import (
	"errors"
	"testing"

	"tablekit/internal/ddl"
	"tablekit/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistered(t *testing.T) {
	d, err := storage.Lookup("sqlite")
	require.NoError(t, err)
	assert.Equal(t, driverName, d.DriverName())
	assert.Contains(t, []string{"purego", "cgo"}, DriverType())
}

func TestDSN(t *testing.T) {
	tests := map[string]string{
		"people.db":                "people.db",
		" file:people.db?cache=x ": "file:people.db?cache=x",
		"sqlite:///var/db/app.db":  "/var/db/app.db",
		"sqlite:people.db":         "people.db",
		":memory:":                 ":memory:",
	}
	for in, want := range tests {
		got, err := Dialect{}.DSN(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := Dialect{}.DSN("sqlite://")
	assert.Error(t, err)
}

func TestPragmasAreVerbatim(t *testing.T) {
	require.Len(t, Pragmas, 13)
	assert.Equal(t, "PRAGMA auto_vacuum = 1", Pragmas[0])
	assert.Equal(t, "PRAGMA synchronous = NORMAL", Pragmas[12])
	assert.Equal(t, Pragmas, Dialect{}.InitStatements())
}

func TestClassifyIgnoresForeignErrors(t *testing.T) {
	_, _, ok := Dialect{}.Classify(errors.New("plain"))
	assert.False(t, ok)
}

func TestCreateTableSQL(t *testing.T) {
	sql, err := ddl.BuildCreateTableSQL(ddl.TableDef{
		FQN:     "people",
		Columns: []ddl.ColumnDef{{Name: "id", SQLType: "INTEGER", PrimaryKey: true}},
	}, Dialect{}.DDLStyle())
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS \"people\" (\n  \"id\" INTEGER NOT NULL,\n  PRIMARY KEY (\"id\")\n);", sql)
}
