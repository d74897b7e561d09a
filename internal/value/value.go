// Package value holds the typed cell values stored in table rows and the
// rules that turn untyped input (form text, driver scans) into them.
package value

import (
	"bytes"
	"cmp"
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
)

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is an immutable tagged union: Null, Integer, Real, Text or Blob.
// The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

// Null returns the null value.
func Null() Value { return Value{} }

// Integer returns an integer value.
func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

// Real returns a floating point value.
func Real(f float64) Value { return Value{kind: KindReal, f: f} }

// Text returns a text value. The empty string is a valid Text; use Coerce
// for input where empty means null.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Blob returns a binary value holding a copy of b. A nil b yields Null.
func Blob(b []byte) Value {
	if b == nil {
		return Null()
	}
	return Value{kind: KindBlob, b: bytes.Clone(b)}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int64 returns the integer payload.
func (v Value) Int64() (int64, bool) { return v.i, v.kind == KindInteger }

// Float64 returns the real payload, or the integer payload widened.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindReal:
		return v.f, true
	case KindInteger:
		return float64(v.i), true
	}
	return 0, false
}

// Str returns the text payload.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindText }

// Bytes returns a copy of the blob payload.
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBlob {
		return nil, false
	}
	return bytes.Clone(v.b), true
}

// Equal reports whether v and o have the same kind and payload. Integer 1
// and Real 1.0 are not equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInteger:
		return v.i == o.i
	case KindReal:
		return v.f == o.f
	case KindText:
		return v.s == o.s
	case KindBlob:
		return bytes.Equal(v.b, o.b)
	}
	return false
}

// rank orders the kinds for Compare. Integer and Real share a rank and are
// compared numerically.
func (v Value) rank() int {
	switch v.kind {
	case KindNull:
		return 0
	case KindInteger, KindReal:
		return 1
	case KindText:
		return 2
	}
	return 3
}

// Compare returns -1, 0 or +1. Null sorts before numbers, numbers before
// text and text before blobs.
func (v Value) Compare(o Value) int {
	if c := cmp.Compare(v.rank(), o.rank()); c != 0 {
		return c
	}
	switch v.kind {
	case KindNull:
		return 0
	case KindInteger:
		if o.kind == KindInteger {
			return cmp.Compare(v.i, o.i)
		}
	case KindText:
		return cmp.Compare(v.s, o.s)
	case KindBlob:
		return bytes.Compare(v.b, o.b)
	}
	a, _ := v.Float64()
	b, _ := o.Float64()
	return cmp.Compare(a, b)
}

// Driver returns the value as a database/sql argument.
func (v Value) Driver() driver.Value {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindReal:
		return v.f
	case KindText:
		return v.s
	case KindBlob:
		return v.b
	}
	return nil
}

// Display renders v as form text. Coerce(t, v.Display()) returns v again
// for every non-blob type. Null displays as the empty string and blobs as an
// opaque size label.
func (v Value) Display() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindBlob:
		return "<blob " + humanize.Bytes(uint64(len(v.b))) + ">"
	}
	return ""
}

// String implements fmt.Stringer for logs; unlike Display it marks nulls.
func (v Value) String() string {
	if v.kind == KindNull {
		return "NULL"
	}
	if v.kind == KindText {
		return strconv.Quote(v.s)
	}
	return v.Display()
}

// GoString keeps %#v output readable in test failures.
func (v Value) GoString() string {
	return fmt.Sprintf("value.%s(%s)", v.kind, v.String())
}
