package value

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"tablekit/internal/dberrors"
)

// Coerce converts untyped input into a Value of the declared type.
//
// Input may be a string, a []byte or nil. Empty input is Null for every type.
// INTEGER and BOOLEAN parse as base-10 int64, REAL and NUMERIC as finite
// float64. TEXT, VARCHAR and OTHER pass text through unchanged and BLOB keeps
// the raw bytes. Input is not trimmed. Parse failures are *dberrors.FormatError.
func Coerce(t Type, input any) (Value, error) {
	var s string
	switch in := input.(type) {
	case nil:
		return Null(), nil
	case string:
		s = in
	case []byte:
		if len(in) == 0 {
			return Null(), nil
		}
		if t == TypeBlob {
			return Blob(in), nil
		}
		s = string(in)
	default:
		return Null(), &dberrors.FormatError{
			Type:  t.String(),
			Input: fmt.Sprint(input),
			Err:   fmt.Errorf("unsupported input type %T", input),
		}
	}
	if s == "" {
		return Null(), nil
	}

	switch t {
	case TypeInteger, TypeBoolean:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Null(), &dberrors.FormatError{Type: t.String(), Input: s, Err: err}
		}
		return Integer(i), nil
	case TypeReal, TypeNumeric:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Null(), &dberrors.FormatError{Type: t.String(), Input: s, Err: err}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Null(), &dberrors.FormatError{Type: t.String(), Input: s, Err: fmt.Errorf("not a finite number")}
		}
		return Real(f), nil
	case TypeBlob:
		return Blob([]byte(s)), nil
	default:
		return Text(s), nil
	}
}

// FromDriver converts a value scanned by database/sql into a Value. Booleans
// become 0/1 integers and times become RFC 3339 text. Unknown types fall back
// to their fmt representation as text.
func FromDriver(src any) Value {
	switch v := src.(type) {
	case nil:
		return Null()
	case int64:
		return Integer(v)
	case int:
		return Integer(int64(v))
	case int32:
		return Integer(int64(v))
	case int16:
		return Integer(int64(v))
	case int8:
		return Integer(int64(v))
	case uint8:
		return Integer(int64(v))
	case uint16:
		return Integer(int64(v))
	case uint32:
		return Integer(int64(v))
	case float64:
		return Real(v)
	case float32:
		return Real(float64(v))
	case bool:
		if v {
			return Integer(1)
		}
		return Integer(0)
	case string:
		return Text(v)
	case []byte:
		return Blob(v)
	case time.Time:
		return Text(v.Format(time.RFC3339Nano))
	case Value:
		return v
	}
	return Text(fmt.Sprint(src))
}

// FromColumn converts a scanned value using the declared column type. Text
// drivers (mysql, pgx for NUMERIC) return numbers as []byte or string; those
// are parsed per type. Values that do not parse are kept as driver values.
// Numbers take the kind of the declared type: integers read from REAL or
// NUMERIC columns become reals, and integral reals read from INTEGER or
// BOOLEAN columns become integers.
func FromColumn(t Type, src any) Value {
	switch v := src.(type) {
	case []byte:
		if t == TypeBlob {
			return Blob(v)
		}
		if t.Numeric() {
			if coerced, err := Coerce(t, string(v)); err == nil && !coerced.IsNull() {
				return coerced
			}
		}
		return Text(string(v))
	case string:
		if t.Numeric() {
			if coerced, err := Coerce(t, v); err == nil && !coerced.IsNull() {
				return coerced
			}
		}
		return Text(v)
	}
	return conform(t, FromDriver(src))
}

// conform gives a numeric v the kind of the declared type t. Reals with a
// fractional part stay reals.
func conform(t Type, v Value) Value {
	switch t {
	case TypeReal, TypeNumeric:
		if v.kind == KindInteger {
			return Real(float64(v.i))
		}
	case TypeInteger, TypeBoolean:
		if v.kind == KindReal && v.f == math.Trunc(v.f) && v.f >= math.MinInt64 && v.f < math.MaxInt64 {
			return Integer(int64(v.f))
		}
	}
	return v
}
