package table

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"tablekit/internal/dberrors"
	"tablekit/internal/value"

	"github.com/Velocidex/ordereddict"
	"github.com/zeebo/xxh3"
)

// Row maps each column of its table to a value, in column order. Rows have
// value semantics: copies never observe each other's Set calls.
type Row struct {
	cols []Column
	vals []value.Value
}

// NewRow returns a draft row: every column present, every value null.
func NewRow(cols []Column) Row {
	return Row{
		cols: append([]Column(nil), cols...),
		vals: make([]value.Value, len(cols)),
	}
}

// newRowValues takes ownership of cols and vals.
func newRowValues(cols []Column, vals []value.Value) Row {
	return Row{cols: cols, vals: vals}
}

func (r Row) index(col Column) int {
	for i, c := range r.cols {
		if c.Same(col) {
			return i
		}
	}
	return -1
}

func (r Row) indexByName(name string) int {
	for i, c := range r.cols {
		if c.name == name || c.QualifiedName() == name {
			return i
		}
	}
	return -1
}

// Len is the number of columns.
func (r Row) Len() int { return len(r.cols) }

// Get returns the value of col.
func (r Row) Get(col Column) (value.Value, bool) {
	i := r.index(col)
	if i < 0 {
		return value.Null(), false
	}
	return r.vals[i], true
}

// GetByName looks a value up by bare or qualified column name.
func (r Row) GetByName(name string) (value.Value, bool) {
	i := r.indexByName(name)
	if i < 0 {
		return value.Null(), false
	}
	return r.vals[i], true
}

// Set replaces the value of col. The key set is fixed, so setting a column
// the row does not have is an error.
func (r *Row) Set(col Column, v value.Value) error {
	i := r.index(col)
	if i < 0 {
		return fmt.Errorf("table: row has no column %s", col.QualifiedName())
	}
	vals := make([]value.Value, len(r.vals))
	copy(vals, r.vals)
	vals[i] = v
	r.vals = vals
	return nil
}

// Columns returns the row's columns in order.
func (r Row) Columns() []Column { return append([]Column(nil), r.cols...) }

// Values returns the row's values in column order.
func (r Row) Values() []value.Value { return append([]value.Value(nil), r.vals...) }

// IsDraft reports whether every value is null, the marker for a row that
// is about to be added.
func (r Row) IsDraft() bool {
	for _, v := range r.vals {
		if !v.IsNull() {
			return false
		}
	}
	return true
}

// Equal reports whether both rows have the same columns and values.
func (r Row) Equal(o Row) bool {
	if !sameColumns(r.cols, o.cols) {
		return false
	}
	for i := range r.vals {
		if !r.vals[i].Equal(o.vals[i]) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (r Row) Clone() Row {
	return Row{cols: r.Columns(), vals: r.Values()}
}

// Dict exports the row keyed by bare column name, in column order, with
// driver-level values (nil, int64, float64, string, []byte).
func (r Row) Dict() *ordereddict.Dict {
	d := ordereddict.NewDict()
	for i, c := range r.cols {
		d.Set(c.name, r.vals[i].Driver())
	}
	return d
}

// Display renders each value as form text, in column order.
func (r Row) Display() []string {
	out := make([]string, len(r.vals))
	for i, v := range r.vals {
		out[i] = v.Display()
	}
	return out
}

func (r Row) String() string {
	parts := make([]string, len(r.cols))
	for i, c := range r.cols {
		parts[i] = c.name + "=" + r.vals[i].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Fingerprint hashes the row's kinds and payloads. Equal rows hash equally.
func (r Row) Fingerprint() uint64 {
	h := xxh3.New()
	writeRow(h, r)
	return h.Sum64()
}

func writeRow(h *xxh3.Hasher, r Row) {
	var buf [9]byte
	for _, v := range r.vals {
		buf[0] = byte(v.Kind())
		switch v.Kind() {
		case value.KindInteger:
			i, _ := v.Int64()
			binary.LittleEndian.PutUint64(buf[1:], uint64(i))
			_, _ = h.Write(buf[:])
		case value.KindReal:
			f, _ := v.Float64()
			binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(f))
			_, _ = h.Write(buf[:])
		case value.KindText:
			s, _ := v.Str()
			binary.LittleEndian.PutUint64(buf[1:], uint64(len(s)))
			_, _ = h.Write(buf[:])
			_, _ = h.WriteString(s)
		case value.KindBlob:
			b, _ := v.Bytes()
			binary.LittleEndian.PutUint64(buf[1:], uint64(len(b)))
			_, _ = h.Write(buf[:])
			_, _ = h.Write(b)
		default:
			_, _ = h.Write(buf[:1])
		}
	}
}

// ParseRow builds a row for cols from form input keyed by qualified or bare
// column name. Missing columns are null. Each value is coerced to its
// column's declared type; a failure is a *dberrors.FormatError naming the
// column. Keys that match no column are rejected.
func ParseRow(cols []Column, input map[string]any) (Row, error) {
	row := NewRow(cols)
	used := 0
	for i, c := range row.cols {
		raw, ok := input[c.QualifiedName()]
		if !ok {
			raw, ok = input[c.name]
		}
		if !ok {
			continue
		}
		used++
		v, err := value.Coerce(c.typ, raw)
		if err != nil {
			if fe, isFormat := err.(*dberrors.FormatError); isFormat {
				fe.Column = c.QualifiedName()
			}
			return Row{}, err
		}
		row.vals[i] = v
	}
	if used != len(input) {
		for k := range input {
			if row.indexByName(k) < 0 {
				return Row{}, fmt.Errorf("table: unknown column %q", k)
			}
		}
	}
	return row, nil
}
