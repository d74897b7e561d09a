// Command tablekit browses and edits the tables named in a configuration
// file through the table engine.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"tablekit/internal/config"
	"tablekit/internal/logging"
	"tablekit/internal/metrics"
	"tablekit/internal/metrics/datadog"
	"tablekit/internal/metrics/prompush"
	"tablekit/internal/storage"
	"tablekit/internal/table"

	"github.com/alecthomas/kong"

	// register all dialects with the storage registry.
	// config selects one but the binary supports all of them.
	_ "tablekit/internal/storage/all"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config         string `short:"c" required:"" type:"existingfile" help:"Configuration file (JSON or YAML)."`
	LogLevel       string `name:"log-level" help:"Override logging.level (debug, info, warn, error)."`
	MetricsBackend string `name:"metrics-backend" help:"Override metrics.backend (none, prometheus, datadog)."`
}

// CLI is the command tree.
type CLI struct {
	Globals `embed:""`

	Validate ValidateCmd `cmd:"" help:"Check the configuration file and exit."`
	Tables   TablesCmd   `cmd:"" help:"List the tables of the database."`
	Schema   SchemaCmd   `cmd:"" help:"Show the columns of a table."`
	List     ListCmd     `cmd:"" help:"Print the rows of a table."`
	Add      AddCmd      `cmd:"" help:"Insert a row."`
	Update   UpdateCmd   `cmd:"" help:"Change the row identified by --key."`
	Delete   DeleteCmd   `cmd:"" help:"Delete the row identified by --key."`
	Init     InitCmd     `cmd:"" help:"Create the tables marked auto_create_table."`
}

// Output carries the command's writers.
type Output struct {
	Out io.Writer
	Err io.Writer
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tablekit"),
		kong.Description("Browse and edit relational tables."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	err := ctx.Run(&cli.Globals, &Output{Out: os.Stdout, Err: os.Stderr})
	ctx.FatalIfErrorf(err)
}

// session is the opened environment of one command.
type session struct {
	cfg   config.File
	conn  *storage.Connection
	flush func()
}

func (s *session) Close() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
	if s.flush != nil {
		s.flush()
	}
}

// load decodes and validates the configuration, applies the flag
// overrides and configures logging. Issues are written to errw.
func (g *Globals) load(errw io.Writer) (config.File, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return config.File{}, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.MetricsBackend != "" {
		cfg.Metrics.Backend = g.MetricsBackend
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(errw, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return config.File{}, fmt.Errorf("configuration is invalid: %s", g.Config)
	}

	logging.Init(cfg.Logging.Level, logging.Format(cfg.Logging.Format))
	return cfg, nil
}

// open loads the configuration, installs the metrics backend and connects.
func (g *Globals) open(ctx context.Context, errw io.Writer) (*session, error) {
	cfg, err := g.load(errw)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, flush: setupMetrics(cfg.Metrics)}

	timeout, err := cfg.Database.Timeout()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("database.statement_timeout: %w", err)
	}
	s.conn, err = storage.Open(ctx, storage.Config{
		Kind:             cfg.Database.Kind,
		URL:              cfg.Database.URL,
		StatementTimeout: timeout,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// setupMetrics installs the configured backend and returns its flush.
func setupMetrics(m config.Metrics) func() {
	log := logging.For("metrics")
	switch strings.ToLower(strings.TrimSpace(m.Backend)) {
	case "prometheus":
		job := m.JobName
		if job == "" {
			job = "tablekit"
		}
		b, err := prompush.NewBackend(job, m.PushgatewayURL)
		if err != nil {
			log.WithError(err).Warn("metrics: failed to init prom push backend; using nop")
			return nil
		}
		log.WithField("url", m.PushgatewayURL).WithField("job_name", job).Debug("metrics: prometheus push enabled")
		metrics.SetBackend(b)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: m.DatadogAddr, Namespace: "tablekit."})
		if err != nil {
			log.WithError(err).Warn("metrics: failed to init datadog backend; using nop")
			return nil
		}
		log.WithField("addr", m.DatadogAddr).Debug("metrics: datadog enabled")
		metrics.SetBackend(b)
	default:
		return nil
	}
	return func() {
		if err := metrics.Flush(); err != nil {
			log.WithError(err).Warn("metrics: flush error")
		}
	}
}

// table returns the built table called name. Tables missing from the
// configuration are served with every column as identity.
func (s *session) table(ctx context.Context, name string) (*table.Table, error) {
	d := s.conn.Dialect()
	desc := &table.Generic{Table: name, Dialect: d}
	if tc, ok := s.cfg.Lookup(name); ok {
		desc.DisplayTitle = tc.DisplayTitle()
		desc.KeyColumns = tc.KeyColumns
		desc.SearchColumns = tc.SearchColumns
		desc.OrderBy = orderClause(d, tc.OrderBy)
	}
	t := table.New(s.conn, desc)
	if err := t.Build(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// orderClause quotes the column of each "column [ASC|DESC]" item.
func orderClause(d storage.Dialect, items []string) string {
	var parts []string
	for _, item := range items {
		fields := strings.Fields(item)
		if len(fields) == 0 {
			continue
		}
		part := d.QuoteIdent(fields[0])
		if len(fields) > 1 {
			switch dir := strings.ToUpper(fields[1]); dir {
			case "ASC", "DESC":
				part += " " + dir
			}
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
