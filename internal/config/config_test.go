package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "database": { "url": "file:people.db", "statement_timeout": "2s" },
  "tables": [
    {
      "name": "people",
      "title": "People",
      "key_columns": ["id"],
      "order_by": ["name"],
      "auto_create_table": true,
      "columns": [
        { "name": "id", "type": "INTEGER", "primary_key": true },
        { "name": "name", "type": "TEXT", "nullable": true }
      ]
    }
  ],
  "logging": { "level": "debug", "format": "json" },
  "metrics": { "backend": "prometheus", "pushgateway_url": "http://pgw:9091" }
}`

const sampleYAML = `
database:
  url: file:people.db
  statement_timeout: 2s
tables:
  - name: people
    title: People
    key_columns: [id]
    order_by: [name]
    auto_create_table: true
    columns:
      - name: id
        type: INTEGER
        primary_key: true
      - name: name
        type: TEXT
        nullable: true
logging:
  level: debug
  format: json
metrics:
  backend: prometheus
  pushgateway_url: http://pgw:9091
`

func TestDecodeJSONAndYAMLAgree(t *testing.T) {
	t.Parallel()

	fromJSON, err := Decode([]byte(sampleJSON), ".json")
	require.NoError(t, err)
	fromYAML, err := Decode([]byte(sampleYAML), ".yml")
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)

	tbl, ok := fromYAML.Lookup("people")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, tbl.KeyColumns)
	assert.Equal(t, "People", tbl.DisplayTitle())
	require.Len(t, tbl.Columns, 2)
	assert.True(t, tbl.Columns[0].PrimaryKey)
	assert.True(t, tbl.Columns[1].Nullable)

	d, err := fromYAML.Database.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"database": {"url": "x", "dsn": "y"}}`), ".json")
	assert.Error(t, err)

	_, err = Decode([]byte("database:\n  url: x\n  dsn: y\n"), ".yaml")
	assert.Error(t, err)
}

func TestLoadByExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tablekit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file:people.db", f.Database.URL)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestDisplayTitleFallsBackToName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "people", Table{Name: "people"}.DisplayTitle())
}

func TestOptionsAccessors(t *testing.T) {
	t.Parallel()

	f, err := Decode([]byte(`{"database": {"url": "x", "options": {
	  "schema": "public", "ssl": true, "pool": 4, "tags": ["a", 1, "b"]
	}}}`), ".json")
	require.NoError(t, err)

	o := f.Database.Options
	assert.Equal(t, "public", o.String("schema", ""))
	assert.Equal(t, "def", o.String("missing", "def"))
	assert.True(t, o.Bool("ssl", false))
	assert.Equal(t, 4, o.Int("pool", 0))
	assert.Equal(t, 7, o.Int("schema", 7))
	assert.Equal(t, []string{"a", "b"}, o.StringSlice("tags"))
	assert.Nil(t, o.StringSlice("missing"))

	empty, err := Decode([]byte(`{"database": {"url": "x", "options": null}}`), ".json")
	require.NoError(t, err)
	assert.NotNil(t, empty.Database.Options)
}
