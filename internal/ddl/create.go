package ddl

import (
	"fmt"
	"strings"

	"tablekit/internal/value"
)

// Guard selects how a dialect makes CREATE TABLE idempotent.
type Guard int

const (
	// GuardIfNotExists emits CREATE TABLE IF NOT EXISTS.
	GuardIfNotExists Guard = iota
	// GuardObjectID wraps the statement in IF OBJECT_ID(...) IS NULL, for
	// T-SQL which has no IF NOT EXISTS form.
	GuardObjectID
)

// Style is the per-dialect rendering configuration.
type Style struct {
	Name  string
	Quote func(ident string) string
	Guard Guard
	// Types replaces canonical type names (exactly "BLOB", "TEXT", ...) with
	// the dialect spelling. Declarations with a length or any other
	// spelling are emitted as written.
	Types map[value.Type]string
}

// QuoteFQN quotes each dot-separated segment of name. Blank segments are
// dropped.
func (s Style) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, s.Quote(p))
	}
	return strings.Join(out, ".")
}

func (s Style) columnType(decl string) string {
	decl = strings.TrimSpace(decl)
	t := value.ParseType(decl)
	if strings.EqualFold(decl, t.String()) {
		if mapped, ok := s.Types[t]; ok {
			return mapped
		}
	}
	return decl
}

// BuildCreateTableSQL renders an idempotent CREATE TABLE statement:
//
//	CREATE TABLE IF NOT EXISTS "table" (
//	  "col1" TYPE [NOT NULL] [DEFAULT expr],
//	  "col2" TYPE,
//	  PRIMARY KEY ("pk1", "pk2")
//	);
//
// Primary key columns are always NOT NULL and keep declaration order.
func BuildCreateTableSQL(t TableDef, s Style) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", s.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", s.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))
	seen := make(map[string]struct{}, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", s.Name, fqn)
		}
		if _, dup := seen[name]; dup {
			return "", fmt.Errorf("%s ddl: duplicate column %s in table %s", s.Name, name, fqn)
		}
		seen[name] = struct{}{}
		if strings.TrimSpace(c.SQLType) == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", s.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(s.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(s.columnType(c.SQLType))
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, s.Quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := s.QuoteFQN(fqn)
	switch s.Guard {
	case GuardObjectID:
		lit := strings.ReplaceAll(quoted, "'", "''")
		return fmt.Sprintf(
			"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
			lit, quoted, strings.Join(cols, ",\n    "),
		), nil
	default:
		return fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
			quoted, strings.Join(cols, ",\n  "),
		), nil
	}
}
