// Package config defines the configuration model for tablekit: which
// database to open, which tables to expose and how, and the logging and
// metrics settings of the process.
//
// Files are JSON or YAML, chosen by extension. Field names are snake_case in
// both encodings.
//
// Example (trimmed):
//
//	database:
//	  url: file:people.db
//	tables:
//	  - name: people
//	    key_columns: [id]
//	    order_by: [name]
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the top-level object decoded from a configuration file.
type File struct {
	Database Database `json:"database" yaml:"database"`
	Tables   []Table  `json:"tables" yaml:"tables"`
	Logging  Logging  `json:"logging" yaml:"logging"`
	Metrics  Metrics  `json:"metrics" yaml:"metrics"`
}

// Database selects the backing store.
type Database struct {
	// Kind is the dialect ("sqlite", "postgres", "mssql", "mysql"). Empty
	// means infer from the URL scheme.
	Kind string `json:"kind" yaml:"kind"`

	// URL is the connection string: a SQLite path or file: URI, or a
	// server DSN such as postgres://... or sqlserver://...
	URL string `json:"url" yaml:"url"`

	// StatementTimeout is a Go duration string ("2s"). It may only shorten
	// the default five second budget.
	StatementTimeout string `json:"statement_timeout" yaml:"statement_timeout"`

	// Options carries dialect-specific extras.
	Options Options `json:"options" yaml:"options"`
}

// Timeout parses StatementTimeout. Zero means "use the default".
func (d Database) Timeout() (time.Duration, error) {
	s := strings.TrimSpace(d.StatementTimeout)
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Table describes one table exposed through the engine.
type Table struct {
	Name  string `json:"name" yaml:"name"`
	Title string `json:"title" yaml:"title"`

	// KeyColumns identify a row for update, delete and refetch. When empty
	// every column takes part in the match and refetch is unavailable.
	KeyColumns []string `json:"key_columns" yaml:"key_columns"`

	// SearchColumns limit filter matching. Empty means all columns.
	SearchColumns []string `json:"search_columns" yaml:"search_columns"`

	// OrderBy is appended to the select statement.
	OrderBy []string `json:"order_by" yaml:"order_by"`

	// AutoCreateTable issues CREATE TABLE IF NOT EXISTS from Columns on init.
	AutoCreateTable bool     `json:"auto_create_table" yaml:"auto_create_table"`
	Columns         []Column `json:"columns" yaml:"columns"`
}

// DisplayTitle returns Title or, when empty, Name.
func (t Table) DisplayTitle() string {
	if strings.TrimSpace(t.Title) != "" {
		return t.Title
	}
	return t.Name
}

// Column is a column definition used for table creation.
type Column struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	Nullable   bool   `json:"nullable" yaml:"nullable"`
	PrimaryKey bool   `json:"primary_key" yaml:"primary_key"`
	Default    string `json:"default" yaml:"default"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Metrics selects a metrics backend: "", "none", "prometheus" or "datadog".
type Metrics struct {
	Backend        string `json:"backend" yaml:"backend"`
	JobName        string `json:"job_name" yaml:"job_name"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" yaml:"datadog_addr"`
}

// Lookup returns the table named name.
func (f File) Lookup(name string) (Table, bool) {
	for _, t := range f.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Load reads and decodes path. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON. Unknown fields are rejected.
func Load(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	f, err := Decode(b, filepath.Ext(path))
	if err != nil {
		return File{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return f, nil
}

// Decode parses b according to ext (".json", ".yaml", ".yml").
func Decode(b []byte, ext string) (File, error) {
	var f File
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return File{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return File{}, fmt.Errorf("decode json: %w", err)
		}
	}
	return f, nil
}

// Options is a small helper to fetch typed values from free-form maps. It
// performs minimal coercion and returns the default when a key is absent or
// of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64
// and YAML integers as int, so both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings. Non-string elements are skipped.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON decodes a missing or null object to an empty, non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
