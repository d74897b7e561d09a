package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tablekit/internal/dberrors"
	"tablekit/internal/storage/mssql"
	"tablekit/internal/storage/sqlite"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peopleConfig = `
database:
  url: %DB%
  statement_timeout: 2s
logging:
  level: warn
tables:
  - name: people
    title: People
    key_columns: [id]
    order_by: [id]
    auto_create_table: true
    columns:
      - {name: id, type: INTEGER, primary_key: true}
      - {name: name, type: TEXT, nullable: true}
      - {name: photo, type: BLOB, nullable: true}
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	body = strings.ReplaceAll(body, "%DB%", filepath.Join(dir, "people.db"))
	path := filepath.Join(dir, "tablekit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// run parses args and runs the selected command in-process.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var cli CLI
	var stdout, stderr bytes.Buffer
	parser, err := kong.New(&cli, kong.Name("tablekit"), kong.Writers(&stdout, &stderr))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	if err != nil {
		return stdout.String(), stderr.String(), err
	}
	err = ctx.Run(&cli.Globals, &Output{Out: &stdout, Err: &stderr})
	return stdout.String(), stderr.String(), err
}

func TestCLILifecycle(t *testing.T) {
	cfg := writeConfig(t, peopleConfig)
	photo := filepath.Join(t.TempDir(), "ada.png")
	require.NoError(t, os.WriteFile(photo, []byte{0x89, 'P', 'N', 'G'}, 0o644))

	out, _, err := run(t, "--config", cfg, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "(1 tables)")

	out, _, err = run(t, "--config", cfg, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "ensured 1 tables")

	_, _, err = run(t, "--config", cfg, "add", "people", "id=1", "name=Ada", "photo=@"+photo)
	require.NoError(t, err)
	_, _, err = run(t, "--config", cfg, "add", "people", "id=2", "name=Grace")
	require.NoError(t, err)

	out, stderr, err := run(t, "--config", cfg, "list", "people", "--json", "--sort", "name", "--desc")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"id":2,"name":"Grace","photo":null}`, lines[0])
	assert.JSONEq(t, `{"id":1,"name":"Ada","photo":"iVBORw=="}`, lines[1])
	assert.Contains(t, stderr, "2 rows")

	_, _, err = run(t, "--config", cfg, "update", "people", "--key", "id=1", "name=Ada Lovelace")
	require.NoError(t, err)

	out, _, err = run(t, "--config", cfg, "list", "people", "--filter", "love")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "<blob 4 B>")
	assert.NotContains(t, out, "Grace")

	out, _, err = run(t, "--config", cfg, "schema", "people")
	require.NoError(t, err)
	assert.Contains(t, out, "People")
	assert.Contains(t, out, "BLOB")

	out, _, err = run(t, "--config", cfg, "tables")
	require.NoError(t, err)
	assert.Contains(t, out, "people")

	_, _, err = run(t, "--config", cfg, "delete", "people", "--key", "id=1")
	require.NoError(t, err)
	_, _, err = run(t, "--config", cfg, "delete", "people", "--key", "id=1")
	var amb *dberrors.AmbiguousRowError
	require.ErrorAs(t, err, &amb)
	assert.EqualValues(t, 0, amb.Affected)

	_, stderr, err = run(t, "--config", cfg, "list", "people")
	require.NoError(t, err)
	assert.Contains(t, stderr, "1 rows")
}

func TestCLIRejectsBadInput(t *testing.T) {
	cfg := writeConfig(t, peopleConfig)
	_, _, err := run(t, "--config", cfg, "init")
	require.NoError(t, err)

	_, _, err = run(t, "--config", cfg, "add", "people", "id=one")
	assert.ErrorIs(t, err, dberrors.ErrFormat)

	_, _, err = run(t, "--config", cfg, "add", "people", "nickname=x")
	assert.Error(t, err)

	_, _, err = run(t, "--config", cfg, "list", "people", "--sort", "nope")
	assert.Error(t, err)

	_, _, err = run(t, "--config", cfg, "add", "people", "id=1")
	require.NoError(t, err)
	_, _, err = run(t, "--config", cfg, "add", "people", "id=1")
	assert.True(t, dberrors.IsConstraint(err), "got %v", err)
}

func TestCLIInvalidConfig(t *testing.T) {
	cfg := writeConfig(t, "database:\n  url: \"\"\n")
	_, stderr, err := run(t, "--config", cfg, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is invalid")
	assert.Contains(t, stderr, "error: database.url")
}

func TestParseAssignments(t *testing.T) {
	files := map[string][]byte{"a.bin": {1, 2, 3}}
	readFile := func(p string) ([]byte, error) {
		if b, ok := files[p]; ok {
			return b, nil
		}
		return nil, errors.New("no such file")
	}

	got, err := parseAssignments([]string{"name=a=b", "photo=@a.bin", "note="}, readFile)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "a=b", "photo": []byte{1, 2, 3}, "note": ""}, got)

	got, err = parseAssignments([]string{"handle=@me"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "@me", got["handle"])

	_, err = parseAssignments([]string{"photo=@missing"}, readFile)
	assert.Error(t, err)
	_, err = parseAssignments([]string{"novalue"}, nil)
	assert.Error(t, err)
	_, err = parseAssignments([]string{"=x"}, nil)
	assert.Error(t, err)
	_, err = parseAssignments([]string{"a=1", "a=2"}, nil)
	assert.Error(t, err)
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, `"name" DESC, "id"`, orderClause(sqlite.Dialect{}, []string{"name desc", " id ", ""}))
	assert.Equal(t, "[id] ASC", orderClause(mssql.Dialect{}, []string{"id ASC"}))
	assert.Equal(t, "", orderClause(sqlite.Dialect{}, nil))
}
