package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// MaxStatementTimeout is the default and upper bound for statement_timeout.
const MaxStatementTimeout = 5 * time.Second

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "tables[1].key_columns[0]").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over a decoded File. It does not touch the
// database; callers decide whether warnings are fatal.
func Validate(f File) []Issue {
	var issues []Issue
	issues = append(issues, validateDatabase(f.Database)...)
	issues = append(issues, validateTables(f.Tables)...)
	issues = append(issues, validateLogging(f.Logging)...)
	issues = append(issues, validateMetrics(f.Metrics)...)
	return issues
}

var knownKinds = map[string]struct{}{
	"sqlite":   {},
	"postgres": {},
	"mssql":    {},
	"mysql":    {},
}

func validateDatabase(d Database) []Issue {
	var issues []Issue

	if strings.TrimSpace(d.URL) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "database.url",
			Message:  "database.url must not be empty",
		})
	}
	if d.Kind != "" {
		if _, ok := knownKinds[d.Kind]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "database.kind",
				Message:  fmt.Sprintf("unknown database kind %q; ensure a matching dialect is registered", d.Kind),
			})
		}
	}

	timeout, err := d.Timeout()
	switch {
	case err != nil:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "database.statement_timeout",
			Message:  fmt.Sprintf("invalid duration: %v", err),
		})
	case timeout < 0:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "database.statement_timeout",
			Message:  "statement_timeout must not be negative",
		})
	case timeout > MaxStatementTimeout:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "database.statement_timeout",
			Message:  fmt.Sprintf("statement_timeout %s exceeds %s and will be capped", timeout, MaxStatementTimeout),
		})
	}
	return issues
}

func validateTables(ts []Table) []Issue {
	var issues []Issue

	if len(ts) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "tables",
			Message:  "no tables configured; only ad-hoc commands will work",
		})
		return issues
	}

	seen := map[string]int{}
	for i, t := range ts {
		base := fmt.Sprintf("tables[%d]", i)
		name := strings.TrimSpace(t.Name)
		if name == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".name",
				Message:  "table name must not be empty",
			})
			continue
		}
		if prev, ok := seen[name]; ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".name",
				Message:  fmt.Sprintf("duplicate table %q (first at tables[%d])", name, prev),
			})
		}
		seen[name] = i

		if len(t.KeyColumns) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     base + ".key_columns",
				Message:  "no key columns; rows are matched on every column and refetch is unavailable",
			})
		}

		if t.AutoCreateTable && len(t.Columns) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".auto_create_table",
				Message:  "auto_create_table is true but no columns are defined",
			})
		}

		declared := map[string]struct{}{}
		for j, c := range t.Columns {
			cpath := fmt.Sprintf("%s.columns[%d]", base, j)
			if strings.TrimSpace(c.Name) == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     cpath + ".name",
					Message:  "column name must not be empty",
				})
				continue
			}
			if _, dup := declared[c.Name]; dup {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     cpath + ".name",
					Message:  fmt.Sprintf("duplicate column %q", c.Name),
				})
			}
			declared[c.Name] = struct{}{}
			if strings.TrimSpace(c.Type) == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     cpath + ".type",
					Message:  "column type must not be empty",
				})
			}
		}

		// Column references can only be checked when the table is declared.
		if len(declared) == 0 {
			continue
		}
		for field, refs := range map[string][]string{
			"key_columns":    t.KeyColumns,
			"search_columns": t.SearchColumns,
			"order_by":       t.OrderBy,
		} {
			for k, ref := range refs {
				col := strings.Fields(ref)
				if len(col) == 0 {
					continue
				}
				if _, ok := declared[col[0]]; !ok {
					issues = append(issues, Issue{
						Severity: SeverityError,
						Path:     fmt.Sprintf("%s.%s[%d]", base, field, k),
						Message:  fmt.Sprintf("column %q is not declared in columns", col[0]),
					})
				}
			}
		}
	}
	return issues
}

func validateLogging(l Logging) []Issue {
	var issues []Issue
	if l.Level != "" {
		if _, err := logrus.ParseLevel(l.Level); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "logging.level",
				Message:  fmt.Sprintf("unknown level %q; info will be used", l.Level),
			})
		}
	}
	switch l.Format {
	case "", "text", "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "logging.format",
			Message:  fmt.Sprintf("unknown format %q; text will be used", l.Format),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "prometheus":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus backend requires pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires datadog_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q", m.Backend),
		})
	}
	return issues
}
