package value

import "strings"

// Type is the declared column type, a closed set. Dialect spellings are
// folded onto it by ParseType.
type Type int

const (
	TypeOther Type = iota // unrecognized declarations; behaves as TEXT
	TypeInteger
	TypeBoolean
	TypeReal
	TypeNumeric
	TypeText
	TypeVarchar
	TypeBlob
)

var typeNames = [...]string{
	TypeOther:   "OTHER",
	TypeInteger: "INTEGER",
	TypeBoolean: "BOOLEAN",
	TypeReal:    "REAL",
	TypeNumeric: "NUMERIC",
	TypeText:    "TEXT",
	TypeVarchar: "VARCHAR",
	TypeBlob:    "BLOB",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "OTHER"
	}
	return typeNames[t]
}

// Numeric reports whether values of t are parsed as numbers.
func (t Type) Numeric() bool {
	switch t {
	case TypeInteger, TypeBoolean, TypeReal, TypeNumeric:
		return true
	}
	return false
}

var aliases = map[string]Type{
	"INTEGER":   TypeInteger,
	"INT":       TypeInteger,
	"INT2":      TypeInteger,
	"INT4":      TypeInteger,
	"INT8":      TypeInteger,
	"TINYINT":   TypeInteger,
	"SMALLINT":  TypeInteger,
	"MEDIUMINT": TypeInteger,
	"BIGINT":    TypeInteger,
	"SERIAL":    TypeInteger,
	"BIGSERIAL": TypeInteger,

	"BOOLEAN": TypeBoolean,
	"BOOL":    TypeBoolean,
	"BIT":     TypeBoolean,

	"REAL":             TypeReal,
	"FLOAT":            TypeReal,
	"FLOAT4":           TypeReal,
	"FLOAT8":           TypeReal,
	"DOUBLE":           TypeReal,
	"DOUBLE PRECISION": TypeReal,

	"NUMERIC": TypeNumeric,
	"DECIMAL": TypeNumeric,
	"MONEY":   TypeNumeric,

	"TEXT":       TypeText,
	"CLOB":       TypeText,
	"NTEXT":      TypeText,
	"MEDIUMTEXT": TypeText,
	"LONGTEXT":   TypeText,

	"VARCHAR":           TypeVarchar,
	"CHAR":              TypeVarchar,
	"NCHAR":             TypeVarchar,
	"NVARCHAR":          TypeVarchar,
	"CHARACTER":         TypeVarchar,
	"CHARACTER VARYING": TypeVarchar,
	"BPCHAR":            TypeVarchar,

	"BLOB":       TypeBlob,
	"BYTEA":      TypeBlob,
	"BINARY":     TypeBlob,
	"VARBINARY":  TypeBlob,
	"IMAGE":      TypeBlob,
	"MEDIUMBLOB": TypeBlob,
	"LONGBLOB":   TypeBlob,
}

// ParseType maps a declared type such as "varchar(40)" or "BIGINT UNSIGNED"
// to a Type. Matching is case-insensitive, ignores any parenthesized length
// and drops the trailing UNSIGNED modifier. Unknown spellings map to
// TypeOther.
func ParseType(decl string) Type {
	s := strings.ToUpper(strings.TrimSpace(decl))
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, " UNSIGNED"))
	s = strings.Join(strings.Fields(s), " ")
	if t, ok := aliases[s]; ok {
		return t
	}
	return TypeOther
}
