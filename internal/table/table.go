package table

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"tablekit/internal/dberrors"
	"tablekit/internal/logging"
	"tablekit/internal/metrics"
	"tablekit/internal/storage"
	"tablekit/internal/value"

	"github.com/sirupsen/logrus"
)

// ErrNotBuilt is returned by operations that need the column list before
// Build has succeeded.
var ErrNotBuilt = errors.New("table: not built")

// Executor runs statements. *storage.Connection implements it.
type Executor interface {
	Query(ctx context.Context, st storage.Statement) (*storage.RowSet, error)
	Exec(ctx context.Context, st storage.Statement) (int64, error)
	ExecGuarded(ctx context.Context, st storage.Statement, check func(affected int64) error) (int64, error)
}

var _ Executor = (*storage.Connection)(nil)

// Table is an observable, in-memory view of one storage table. It is meant
// for a single caller; subscribers run synchronously on that caller's
// goroutine once a replacement is complete.
type Table struct {
	exec Executor
	desc Descriptor
	log  *logrus.Entry

	mu         sync.RWMutex
	built      bool
	columns    []Column
	rows       []Row
	sorted     []Row
	filter     string
	cmp        Comparator
	generation uint64

	broker broker
}

// New returns an unbuilt table for desc.
func New(exec Executor, desc Descriptor) *Table {
	return &Table{
		exec: exec,
		desc: desc,
		log:  logging.For("table").WithField("table", desc.Name()),
	}
}

// Name returns the descriptor's storage table name.
func (t *Table) Name() string { return t.desc.Name() }

// Title returns the display title.
func (t *Table) Title() string { return t.desc.Title() }

// Descriptor returns the descriptor the table was created with.
func (t *Table) Descriptor() Descriptor { return t.desc }

// Columns returns the built column list.
func (t *Table) Columns() []Column {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Column(nil), t.columns...)
}

// Column looks up a built column by bare or qualified name.
func (t *Table) Column(name string) (Column, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.columns {
		if c.name == name || c.QualifiedName() == name {
			return c, true
		}
	}
	return Column{}, false
}

// Rows returns the collection in fetch order.
func (t *Table) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Row(nil), t.rows...)
}

// SortedRows returns the collection ordered by the current comparator.
func (t *Table) SortedRows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Row(nil), t.sorted...)
}

// Filter returns the stored filter text.
func (t *Table) Filter() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.filter
}

// SetFilter stores text for the next Fill.
func (t *Table) SetFilter(text string) {
	t.mu.Lock()
	t.filter = text
	t.mu.Unlock()
}

// SetComparator replaces the ordering of the sorted projection and
// republishes it. A nil comparator presents rows in fetch order.
func (t *Table) SetComparator(cmp Comparator) {
	t.mu.Lock()
	t.cmp = cmp
	t.resort()
	snap := t.snapshot()
	t.mu.Unlock()
	t.broker.publish(snap)
}

// Subscribe registers fn for collection replacements. The returned function
// cancels the subscription.
func (t *Table) Subscribe(fn func(Snapshot)) (cancel func()) {
	return t.broker.subscribe(fn)
}

// Build reads the column list from the schema query's result metadata. A
// changed column list empties the collection. Build may be repeated.
func (t *Table) Build(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { t.observe("build", start, err) }()

	rs, err := t.exec.Query(ctx, t.desc.SchemaQuery())
	if err != nil {
		return err
	}
	infos := rs.Columns()
	if err := rs.Close(); err != nil {
		return err
	}
	if len(infos) == 0 {
		return fmt.Errorf("table %s: schema query returned no columns", t.desc.Name())
	}
	cols := t.columnsFrom(infos)

	t.mu.Lock()
	changed := !sameColumns(t.columns, cols)
	t.columns = cols
	t.built = true
	var snap Snapshot
	cleared := changed && len(t.rows) > 0
	if cleared {
		t.replace(nil)
		snap = t.snapshot()
	}
	t.mu.Unlock()

	if binder, ok := t.desc.(ColumnBinder); ok {
		binder.BindColumns(cols)
	}
	t.log.WithField("columns", len(cols)).Debug("table built")
	if cleared {
		t.broker.publish(snap)
	}
	return nil
}

func (t *Table) columnsFrom(infos []storage.ColumnInfo) []Column {
	cols := make([]Column, len(infos))
	for i, ci := range infos {
		cols[i] = NewColumn(t.desc.Name(), ci.Name, value.ParseType(ci.DatabaseType))
	}
	return cols
}

// Fill fetches the rows matching the filter and replaces the collection.
// On failure the collection is left as it was.
func (t *Table) Fill(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { t.observe("fill", start, err) }()

	t.mu.RLock()
	built, cols, filter := t.built, t.columns, t.filter
	t.mu.RUnlock()
	if !built {
		return ErrNotBuilt
	}

	rs, err := t.exec.Query(ctx, t.desc.SelectQuery(filter))
	if err != nil {
		return err
	}
	defer rs.Close()
	index, err := t.resultIndex(cols, rs.Columns())
	if err != nil {
		return err
	}
	var rows []Row
	for rs.Next() {
		raw, err := rs.Values()
		if err != nil {
			return err
		}
		rows = append(rows, rowFrom(cols, index, raw))
	}
	if err := rs.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	t.replace(rows)
	snap := t.snapshot()
	t.mu.Unlock()

	metrics.RecordRows(t.desc.Name(), len(rows))
	t.log.WithFields(logrus.Fields{
		"rows":   len(rows),
		"filter": filter,
	}).Debug("table filled")
	t.broker.publish(snap)
	return nil
}

// resultIndex maps each built column to its position in the result.
func (t *Table) resultIndex(cols []Column, infos []storage.ColumnInfo) ([]int, error) {
	pos := make(map[string]int, len(infos))
	for i, ci := range infos {
		if _, dup := pos[ci.Name]; !dup {
			pos[ci.Name] = i
		}
	}
	index := make([]int, len(cols))
	for i, c := range cols {
		p, ok := pos[c.name]
		if !ok {
			return nil, fmt.Errorf("table %s: result has no column %q, rebuild the table", t.desc.Name(), c.name)
		}
		index[i] = p
	}
	return index, nil
}

func rowFrom(cols []Column, index []int, raw []any) Row {
	vals := make([]value.Value, len(cols))
	for i, p := range index {
		vals[i] = value.FromColumn(cols[i].typ, raw[p])
	}
	return newRowValues(cols, vals)
}

// replace swaps the collection. Callers hold t.mu.
func (t *Table) replace(rows []Row) {
	t.rows = rows
	t.generation++
	t.resort()
}

// resort recomputes the sorted projection. Callers hold t.mu.
func (t *Table) resort() {
	sorted := append([]Row(nil), t.rows...)
	if t.cmp != nil {
		slices.SortStableFunc(sorted, t.cmp)
	}
	t.sorted = sorted
}

// snapshot captures the presented state. Callers hold t.mu.
func (t *Table) snapshot() Snapshot {
	rows := append([]Row(nil), t.sorted...)
	return Snapshot{
		Table:      t.desc.Name(),
		Generation: t.generation,
		Rows:       rows,
		Checksum:   checksum(rows),
	}
}

// checkRow rejects rows whose columns differ from the built ones.
func (t *Table) checkRow(row Row) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.built {
		return ErrNotBuilt
	}
	if !sameColumns(t.columns, row.cols) {
		return fmt.Errorf("table %s: row columns do not match the table", t.desc.Name())
	}
	return nil
}

// AddRow inserts row. The collection changes on the next Fill.
func (t *Table) AddRow(ctx context.Context, row Row) (err error) {
	start := time.Now()
	defer func() { t.observe("add", start, err) }()

	if err := t.checkRow(row); err != nil {
		return err
	}
	st, err := t.desc.InsertQuery(row)
	if err != nil {
		return err
	}
	_, err = t.exec.Exec(ctx, st)
	return err
}

// UpdateRow writes updated over the stored row identified by old. Unless
// exactly one row is affected the change is rolled back and an
// *dberrors.AmbiguousRowError is returned.
func (t *Table) UpdateRow(ctx context.Context, old, updated Row) (err error) {
	start := time.Now()
	defer func() { t.observe("update", start, err) }()

	if err := t.checkRow(old); err != nil {
		return err
	}
	if err := t.checkRow(updated); err != nil {
		return err
	}
	st, err := t.desc.UpdateQuery(old, updated)
	if err != nil {
		return err
	}
	_, err = t.exec.ExecGuarded(ctx, st, t.exactlyOne("update"))
	return err
}

// DeleteRow removes the stored row identified by row, under the same
// exactly-one-row rule as UpdateRow.
func (t *Table) DeleteRow(ctx context.Context, row Row) (err error) {
	start := time.Now()
	defer func() { t.observe("delete", start, err) }()

	if err := t.checkRow(row); err != nil {
		return err
	}
	st, err := t.desc.DeleteQuery(row)
	if err != nil {
		return err
	}
	_, err = t.exec.ExecGuarded(ctx, st, t.exactlyOne("delete"))
	return err
}

func (t *Table) exactlyOne(op string) func(int64) error {
	return func(n int64) error {
		if n == 1 {
			return nil
		}
		return &dberrors.AmbiguousRowError{Table: t.desc.Name(), Operation: op, Affected: n}
	}
}

// RefetchRow reads the stored version of row. The descriptor's query must
// match exactly one row.
func (t *Table) RefetchRow(ctx context.Context, row Row) (_ Row, err error) {
	start := time.Now()
	defer func() { t.observe("refetch", start, err) }()

	if err := t.checkRow(row); err != nil {
		return Row{}, err
	}
	st, err := t.rowQuery(row, "refetch")
	if err != nil {
		return Row{}, err
	}
	cols := t.Columns()

	rs, err := t.exec.Query(ctx, st)
	if err != nil {
		return Row{}, err
	}
	defer rs.Close()
	index, err := t.resultIndex(cols, rs.Columns())
	if err != nil {
		return Row{}, err
	}
	var (
		found Row
		n     int64
	)
	for rs.Next() {
		raw, err := rs.Values()
		if err != nil {
			return Row{}, err
		}
		if n == 0 {
			found = rowFrom(cols, index, raw)
		}
		n++
	}
	if err := rs.Err(); err != nil {
		return Row{}, err
	}
	if n != 1 {
		return Row{}, &dberrors.AmbiguousRowError{Table: t.desc.Name(), Operation: "refetch", Affected: n}
	}
	return found, nil
}

// EditableRow returns the row to present in an edit form. Its columns come
// from the result metadata of the descriptor's row query and its values from
// the first result. When nothing matches, an all-null draft is returned,
// which marks the form as adding a new row.
func (t *Table) EditableRow(ctx context.Context, row Row) (_ Row, err error) {
	start := time.Now()
	defer func() { t.observe("editable", start, err) }()

	st, err := t.rowQuery(row, "edit")
	if err != nil {
		return Row{}, err
	}
	rs, err := t.exec.Query(ctx, st)
	if err != nil {
		return Row{}, err
	}
	defer rs.Close()

	infos := rs.Columns()
	cols := t.columnsFrom(infos)
	if !rs.Next() {
		if err := rs.Err(); err != nil {
			return Row{}, err
		}
		return NewRow(cols), nil
	}
	raw, err := rs.Values()
	if err != nil {
		return Row{}, err
	}
	index := make([]int, len(cols))
	for i := range index {
		index[i] = i
	}
	return rowFrom(cols, index, raw), nil
}

func (t *Table) rowQuery(row Row, op string) (storage.Statement, error) {
	st, err := t.desc.SelectQueryForRow(row)
	if errors.Is(err, ErrUnsupported) {
		return storage.Statement{}, &dberrors.CapabilityError{Table: t.desc.Name(), Operation: op, Err: err}
	}
	return st, err
}

func (t *Table) observe(op string, start time.Time, err error) {
	d := time.Since(start)
	metrics.RecordOperation(t.desc.Name(), op, err, d)
	if err != nil {
		t.log.WithError(err).WithField("op", op).Debug("operation failed")
	}
}
