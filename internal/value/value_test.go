package value

import (
	"math"
	"testing"
	"time"

	"tablekit/internal/dberrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	t.Parallel()

	tests := map[string]Type{
		"INTEGER":                  TypeInteger,
		"int":                      TypeInteger,
		"BIGINT UNSIGNED":          TypeInteger,
		"int8":                     TypeInteger,
		"boolean":                  TypeBoolean,
		"BOOL":                     TypeBoolean,
		"real":                     TypeReal,
		"double  precision":        TypeReal,
		"FLOAT8":                   TypeReal,
		"numeric(10,2)":            TypeNumeric,
		"DECIMAL":                  TypeNumeric,
		"text":                     TypeText,
		"varchar(40)":              TypeVarchar,
		"NVARCHAR(MAX)":            TypeVarchar,
		"character varying(255)":   TypeVarchar,
		"blob":                     TypeBlob,
		"bytea":                    TypeBlob,
		"VARBINARY(16)":            TypeBlob,
		"":                         TypeOther,
		"TIMESTAMP WITH TIME ZONE": TypeOther,
		"jsonb":                    TypeOther,
	}
	for decl, want := range tests {
		assert.Equalf(t, want, ParseType(decl), "ParseType(%q)", decl)
	}
	assert.Equal(t, "VARCHAR", TypeVarchar.String())
	assert.Equal(t, "OTHER", Type(99).String())
}

func TestCoerce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		typ   Type
		input any
		want  Value
	}{
		{"integer", TypeInteger, "42", Integer(42)},
		{"negative integer", TypeInteger, "-7", Integer(-7)},
		{"boolean as integer", TypeBoolean, "1", Integer(1)},
		{"real", TypeReal, "3.5", Real(3.5)},
		{"numeric exponent", TypeNumeric, "1e3", Real(1000)},
		{"text", TypeText, "Ann", Text("Ann")},
		{"text keeps spaces", TypeText, "  Ann ", Text("  Ann ")},
		{"varchar", TypeVarchar, "x", Text("x")},
		{"other behaves as text", TypeOther, "2024-01-01", Text("2024-01-01")},
		{"blob from bytes", TypeBlob, []byte{0, 1, 2}, Blob([]byte{0, 1, 2})},
		{"blob from string", TypeBlob, "abc", Blob([]byte("abc"))},
		{"text from bytes", TypeText, []byte("hi"), Text("hi")},
		{"nil", TypeInteger, nil, Null()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.typ, tt.input)
			require.NoError(t, err)
			assert.Truef(t, tt.want.Equal(got), "got %#v, want %#v", got, tt.want)
		})
	}
}

func TestCoerceEmptyIsNullForEveryType(t *testing.T) {
	t.Parallel()

	for typ := TypeOther; typ <= TypeBlob; typ++ {
		got, err := Coerce(typ, "")
		require.NoError(t, err)
		assert.Truef(t, got.IsNull(), "Coerce(%s, \"\") = %#v", typ, got)

		got, err = Coerce(typ, []byte{})
		require.NoError(t, err)
		assert.True(t, got.IsNull())
	}
}

func TestCoerceFormatErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ   Type
		input any
	}{
		{TypeInteger, "abc"},
		{TypeInteger, " 1"},
		{TypeInteger, "1.5"},
		{TypeInteger, "99999999999999999999"},
		{TypeBoolean, "true"},
		{TypeReal, "x"},
		{TypeReal, "NaN"},
		{TypeNumeric, "Inf"},
		{TypeText, 12},
	}
	for _, tt := range tests {
		_, err := Coerce(tt.typ, tt.input)
		require.Errorf(t, err, "Coerce(%s, %v)", tt.typ, tt.input)
		assert.ErrorIs(t, err, dberrors.ErrFormat)

		var fe *dberrors.FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, tt.typ.String(), fe.Type)
	}
}

func TestDisplayRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ Type
		v   Value
	}{
		{TypeInteger, Integer(0)},
		{TypeInteger, Integer(math.MaxInt64)},
		{TypeInteger, Integer(math.MinInt64)},
		{TypeBoolean, Integer(1)},
		{TypeReal, Real(0.1)},
		{TypeReal, Real(-1e300)},
		{TypeReal, Real(5e-324)},
		{TypeNumeric, Real(123456.789)},
		{TypeText, Text("Zoë")},
		{TypeVarchar, Text("x y")},
		{TypeOther, Text("{}")},
		{TypeText, Null()},
		{TypeReal, Null()},
	}
	for _, tt := range tests {
		got, err := Coerce(tt.typ, tt.v.Display())
		require.NoError(t, err)
		assert.Truef(t, tt.v.Equal(got), "round trip %s %#v -> %q -> %#v", tt.typ, tt.v, tt.v.Display(), got)
	}
}

func TestDisplay(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Null().Display())
	assert.Equal(t, "42", Integer(42).Display())
	assert.Equal(t, "2.5", Real(2.5).Display())
	assert.Equal(t, "<blob 2.0 kB>", Blob(make([]byte, 2000)).Display())
	assert.Equal(t, "NULL", Null().String())
	assert.Equal(t, `"a"`, Text("a").String())
}

func TestEqualAndCompare(t *testing.T) {
	t.Parallel()

	assert.True(t, Null().Equal(Value{}))
	assert.False(t, Integer(1).Equal(Real(1)))
	assert.False(t, Text("").Equal(Null()))
	assert.True(t, Blob([]byte("a")).Equal(Blob([]byte("a"))))

	ordered := []Value{Null(), Integer(-1), Real(0.5), Integer(2), Text("a"), Text("b"), Blob([]byte{0})}
	for i := range ordered {
		for j := range ordered {
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			assert.Equalf(t, want, ordered[i].Compare(ordered[j]), "Compare(%#v, %#v)", ordered[i], ordered[j])
		}
	}
	assert.Equal(t, 0, Integer(1).Compare(Real(1)))
}

func TestBlobIsCopied(t *testing.T) {
	t.Parallel()

	src := []byte("abc")
	v := Blob(src)
	src[0] = 'z'
	b, ok := v.Bytes()
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), b)

	b[1] = 'z'
	again, _ := v.Bytes()
	assert.Equal(t, []byte("abc"), again)
	assert.True(t, Blob(nil).IsNull())
}

func TestFromDriver(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want Value
	}{
		{nil, Null()},
		{int64(7), Integer(7)},
		{int32(7), Integer(7)},
		{3.25, Real(3.25)},
		{float32(0.5), Real(0.5)},
		{true, Integer(1)},
		{false, Integer(0)},
		{"s", Text("s")},
		{[]byte{1}, Blob([]byte{1})},
		{ts, Text("2024-05-01T12:00:00Z")},
		{uint64(9), Text("9")},
	}
	for _, tt := range tests {
		got := FromDriver(tt.in)
		assert.Truef(t, tt.want.Equal(got), "FromDriver(%#v) = %#v, want %#v", tt.in, got, tt.want)
	}
}

func TestFromColumn(t *testing.T) {
	t.Parallel()

	assert.True(t, Integer(5).Equal(FromColumn(TypeInteger, []byte("5"))))
	assert.True(t, Real(1.5).Equal(FromColumn(TypeNumeric, "1.5")))
	assert.True(t, Text("").Equal(FromColumn(TypeText, []byte{})))
	assert.True(t, Text("n/a").Equal(FromColumn(TypeInteger, "n/a")))
	assert.True(t, Blob([]byte("x")).Equal(FromColumn(TypeBlob, []byte("x"))))
	assert.True(t, Integer(3).Equal(FromColumn(TypeText, int64(3))))
}

func TestFromColumnFollowsDeclaredKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		typ  Type
		in   any
		want Value
	}{
		{TypeNumeric, int64(3), Real(3)},
		{TypeReal, int64(-2), Real(-2)},
		{TypeReal, int32(7), Real(7)},
		{TypeInteger, float64(4), Integer(4)},
		{TypeBoolean, float64(1), Integer(1)},
		{TypeInteger, 2.5, Real(2.5)},
		{TypeInteger, 1e19, Real(1e19)},
		{TypeText, float64(4), Real(4)},
		{TypeNumeric, nil, Null()},
	}
	for _, tc := range cases {
		got := FromColumn(tc.typ, tc.in)
		assert.Truef(t, tc.want.Equal(got), "FromColumn(%s, %#v) = %#v, want %#v", tc.typ, tc.in, got, tc.want)
	}

	parsed, err := Coerce(TypeNumeric, "3")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(FromColumn(TypeNumeric, int64(3))))
}

func TestDriverArgs(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Null().Driver())
	assert.Equal(t, int64(1), Integer(1).Driver())
	assert.Equal(t, 1.5, Real(1.5).Driver())
	assert.Equal(t, "a", Text("a").Driver())
	assert.Equal(t, []byte("a"), Blob([]byte("a")).Driver())
}
