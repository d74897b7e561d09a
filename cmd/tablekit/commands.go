package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"tablekit/internal/dberrors"
	"tablekit/internal/ddl"
	"tablekit/internal/logging"
	"tablekit/internal/table"

	"github.com/dustin/go-humanize"
)

type ValidateCmd struct{}

func (c *ValidateCmd) Run(g *Globals, o *Output) error {
	cfg, err := g.load(o.Err)
	if err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "Configuration is valid: %s (%s tables)\n", g.Config, humanize.Comma(int64(len(cfg.Tables))))
	return nil
}

type TablesCmd struct{}

func (c *TablesCmd) Run(g *Globals, o *Output) error {
	ctx := context.Background()
	s, err := g.open(ctx, o.Err)
	if err != nil {
		return err
	}
	defer s.Close()

	names, err := s.conn.Tables(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, len(names))
	for i, n := range names {
		title, configured := "", "no"
		if tc, ok := s.cfg.Lookup(n); ok {
			title, configured = tc.DisplayTitle(), "yes"
		}
		rows[i] = []string{n, title, configured}
	}
	renderTable(o.Out, []string{"TABLE", "TITLE", "CONFIGURED"}, rows)
	return nil
}

type SchemaCmd struct {
	Table string `arg:"" help:"Table name."`
}

func (c *SchemaCmd) Run(g *Globals, o *Output) error {
	ctx := context.Background()
	s, err := g.open(ctx, o.Err)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := s.table(ctx, c.Table)
	if err != nil {
		return err
	}
	keys := map[string]bool{}
	if tc, ok := s.cfg.Lookup(c.Table); ok {
		for _, k := range tc.KeyColumns {
			keys[k] = true
		}
	}
	var rows [][]string
	for _, col := range t.Columns() {
		key := ""
		if keys[col.Name()] {
			key = "yes"
		}
		rows = append(rows, []string{col.Name(), col.Type().String(), key})
	}
	fmt.Fprintln(o.Out, t.Title())
	renderTable(o.Out, []string{"COLUMN", "TYPE", "KEY"}, rows)
	return nil
}

type ListCmd struct {
	Table  string `arg:"" help:"Table name."`
	Filter string `short:"f" help:"Only rows containing this text in a search column."`
	Sort   string `help:"Sort by this column."`
	Desc   bool   `help:"Sort descending."`
	JSON   bool   `name:"json" help:"Print one JSON object per row."`
}

func (c *ListCmd) Run(g *Globals, o *Output) error {
	ctx := context.Background()
	s, err := g.open(ctx, o.Err)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := s.table(ctx, c.Table)
	if err != nil {
		return err
	}
	if c.Sort != "" {
		col, ok := t.Column(c.Sort)
		if !ok {
			return fmt.Errorf("table %s has no column %q", c.Table, c.Sort)
		}
		t.SetComparator(table.ByColumn(col, c.Desc))
	}
	t.SetFilter(c.Filter)
	if err := t.Fill(ctx); err != nil {
		return err
	}

	rows := t.SortedRows()
	if c.JSON {
		if err := writeJSONLines(o.Out, rows); err != nil {
			return err
		}
	} else {
		renderRows(o.Out, t.Columns(), rows)
	}
	fmt.Fprintf(o.Err, "%s rows\n", humanize.Comma(int64(len(rows))))
	return nil
}

type AddCmd struct {
	Table  string   `arg:"" help:"Table name."`
	Values []string `arg:"" optional:"" help:"column=value assignments; column=@path reads a file."`
}

func (c *AddCmd) Run(g *Globals, o *Output) error {
	ctx := context.Background()
	s, err := g.open(ctx, o.Err)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := s.table(ctx, c.Table)
	if err != nil {
		return err
	}
	input, err := parseAssignments(c.Values, os.ReadFile)
	if err != nil {
		return err
	}
	row, err := table.ParseRow(t.Columns(), input)
	if err != nil {
		return err
	}
	if err := t.AddRow(ctx, row); err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "added 1 row to %s\n", t.Name())
	return nil
}

type UpdateCmd struct {
	Table  string   `arg:"" help:"Table name."`
	Key    []string `required:"" sep:"none" help:"column=value identifying the row (repeatable)."`
	Values []string `arg:"" help:"column=value assignments; column=@path reads a file."`
}

func (c *UpdateCmd) Run(g *Globals, o *Output) error {
	ctx := context.Background()
	s, err := g.open(ctx, o.Err)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := s.table(ctx, c.Table)
	if err != nil {
		return err
	}
	old, err := findRow(ctx, t, c.Key, "update")
	if err != nil {
		return err
	}
	input, err := parseAssignments(c.Values, os.ReadFile)
	if err != nil {
		return err
	}
	updated, err := applyAssignments(old, input)
	if err != nil {
		return err
	}
	if err := t.UpdateRow(ctx, old, updated); err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "updated 1 row in %s\n", t.Name())
	return nil
}

type DeleteCmd struct {
	Table string   `arg:"" help:"Table name."`
	Key   []string `required:"" sep:"none" help:"column=value identifying the row (repeatable)."`
}

func (c *DeleteCmd) Run(g *Globals, o *Output) error {
	ctx := context.Background()
	s, err := g.open(ctx, o.Err)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := s.table(ctx, c.Table)
	if err != nil {
		return err
	}
	row, err := findRow(ctx, t, c.Key, "delete")
	if err != nil {
		return err
	}
	if err := t.DeleteRow(ctx, row); err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "deleted 1 row from %s\n", t.Name())
	return nil
}

type InitCmd struct{}

func (c *InitCmd) Run(g *Globals, o *Output) error {
	ctx := context.Background()
	s, err := g.open(ctx, o.Err)
	if err != nil {
		return err
	}
	defer s.Close()

	log := logging.For("init")
	created := 0
	for _, tc := range s.cfg.Tables {
		if !tc.AutoCreateTable {
			continue
		}
		if err := s.conn.CreateTable(ctx, ddl.FromConfig(tc)); err != nil {
			return fmt.Errorf("create table %s: %w", tc.Name, err)
		}
		log.WithField("table", tc.Name).Info("table ensured")
		created++
	}
	fmt.Fprintf(o.Out, "ensured %s tables\n", humanize.Comma(int64(created)))
	return nil
}

// findRow fetches the table and returns the single row whose key columns
// equal the given assignments.
func findRow(ctx context.Context, t *table.Table, keys []string, op string) (table.Row, error) {
	input, err := parseAssignments(keys, nil)
	if err != nil {
		return table.Row{}, err
	}
	want, err := table.ParseRow(t.Columns(), input)
	if err != nil {
		return table.Row{}, err
	}
	if err := t.Fill(ctx); err != nil {
		return table.Row{}, err
	}

	var match []table.Row
	for _, r := range t.Rows() {
		if matches(r, want, input) {
			match = append(match, r)
		}
	}
	if len(match) != 1 {
		return table.Row{}, &dberrors.AmbiguousRowError{Table: t.Name(), Operation: op, Affected: int64(len(match))}
	}
	return match[0], nil
}

// matches compares r and want on the columns named in input.
func matches(r, want table.Row, input map[string]any) bool {
	for name := range input {
		a, _ := r.GetByName(name)
		b, _ := want.GetByName(name)
		if !a.Equal(b) {
			return false
		}
	}
	return true
}

// applyAssignments returns a copy of row with the assigned columns coerced
// and replaced.
func applyAssignments(row table.Row, input map[string]any) (table.Row, error) {
	parsed, err := table.ParseRow(row.Columns(), input)
	if err != nil {
		return table.Row{}, err
	}
	out := row.Clone()
	for _, col := range row.Columns() {
		if _, ok := input[col.Name()]; !ok {
			if _, ok := input[col.QualifiedName()]; !ok {
				continue
			}
		}
		v, _ := parsed.Get(col)
		if err := out.Set(col, v); err != nil {
			return table.Row{}, err
		}
	}
	return out, nil
}

// parseAssignments splits "column=value" arguments. With readFile set, a
// value starting with @ names a file whose bytes become the value.
func parseAssignments(args []string, readFile func(string) ([]byte, error)) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, a := range args {
		name, val, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("expected column=value, got %q", a)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("column %q assigned twice", name)
		}
		if readFile != nil && strings.HasPrefix(val, "@") {
			b, err := readFile(val[1:])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out[name] = b
			continue
		}
		out[name] = val
	}
	return out, nil
}
