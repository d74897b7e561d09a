package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"time"

	"tablekit/internal/dberrors"
	"tablekit/internal/ddl"
	"tablekit/internal/logging"
	"tablekit/internal/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrClosed is returned for statements issued after Close.
	ErrClosed = errors.New("storage: connection closed")
	// ErrStatementUsed is returned when a RowSet or PreparedStatement is
	// used after it was consumed.
	ErrStatementUsed = errors.New("storage: statement already used")
)

// Connection is one pinned database handle. Statements on it are serialized.
type Connection struct {
	url     string
	dialect Dialect
	timeout time.Duration

	db   *sql.DB
	conn *sql.Conn
	sem  *semaphore.Weighted
	log  *logrus.Entry

	mu     sync.Mutex
	closed bool
	active *RowSet
}

// sqlOpen is a test hook.
var sqlOpen = sql.Open

// Open resolves the dialect, opens the driver, pins a single handle and
// applies the dialect's init statements. Any failure closes what was opened
// and returns a *dberrors.ConnectionError.
func Open(ctx context.Context, cfg Config) (*Connection, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = InferKind(cfg.URL)
	}
	d, err := Lookup(kind)
	if err != nil {
		return nil, &dberrors.ConnectionError{Op: "open", URL: cfg.URL, Err: err}
	}
	dsn, err := d.DSN(cfg.URL)
	if err != nil {
		return nil, &dberrors.ConnectionError{Op: "open", URL: cfg.URL, Err: err}
	}

	db, err := sqlOpen(d.DriverName(), dsn)
	if err != nil {
		return nil, &dberrors.ConnectionError{Op: "open", URL: cfg.URL, Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	c := &Connection{
		url:     cfg.URL,
		dialect: d,
		timeout: cfg.timeout(),
		db:      db,
		sem:     semaphore.NewWeighted(1),
		log:     logging.For("storage").WithField("kind", d.Kind()),
	}

	openCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := db.Conn(openCtx)
	if err == nil {
		err = conn.PingContext(openCtx)
		if err != nil {
			_ = conn.Close()
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, &dberrors.ConnectionError{Op: "open", URL: cfg.URL, Err: err}
	}
	c.conn = conn

	for _, stmt := range d.InitStatements() {
		if _, err := conn.ExecContext(openCtx, stmt); err != nil {
			_ = conn.Close()
			_ = db.Close()
			return nil, &dberrors.ConnectionError{Op: "init", URL: cfg.URL, Err: fmt.Errorf("%s: %w", stmt, err)}
		}
	}

	c.log.WithField("timeout", c.timeout).Info("connection opened")
	return c, nil
}

// Dialect returns the connection's dialect.
func (c *Connection) Dialect() Dialect { return c.dialect }

// Timeout returns the effective statement timeout.
func (c *Connection) Timeout() time.Duration { return c.timeout }

// Close releases the handle. Closing twice is a no-op. An unconsumed RowSet
// is closed first.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	active := c.active
	c.mu.Unlock()

	if active != nil {
		_ = active.Close()
	}

	err := errors.Join(c.conn.Close(), c.db.Close())
	if err != nil {
		return &dberrors.ConnectionError{Op: "close", URL: c.url, Err: err}
	}
	c.log.Info("connection closed")
	return nil
}

// call is the bookkeeping for one statement: its timeout context, the
// semaphore slot and the log entry.
type call struct {
	c      *Connection
	kind   string
	sql    string
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	start  time.Time
	log    *logrus.Entry
	done   bool
}

// begin waits for the connection under the statement's timeout.
func (c *Connection) begin(ctx context.Context, kind, sqlText string) (*call, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, &dberrors.ConnectionError{Op: kind, URL: c.url, Err: ErrClosed}
	}

	sctx, cancel := context.WithTimeout(ctx, c.timeout)
	cl := &call{
		c:      c,
		kind:   kind,
		sql:    sqlText,
		parent: ctx,
		ctx:    sctx,
		cancel: cancel,
		start:  time.Now(),
		log: c.log.WithFields(logrus.Fields{
			"stmt_id": uuid.NewString(),
			"op":      kind,
		}),
	}
	if err := c.sem.Acquire(sctx, 1); err != nil {
		cancel()
		err = cl.classify(err)
		metrics.RecordStatement(kind, err, time.Since(cl.start))
		return nil, err
	}
	cl.log.WithField("sql", sqlText).Debug("statement start")
	return cl, nil
}

// end releases the slot and records the outcome. It is safe to call more
// than once.
func (cl *call) end(err error) {
	if cl.done {
		return
	}
	cl.done = true
	cl.c.sem.Release(1)
	cl.cancel()

	d := time.Since(cl.start)
	metrics.RecordStatement(cl.kind, err, d)
	entry := cl.log.WithField("duration", d)
	if err != nil {
		entry.WithError(err).Debug("statement failed")
		return
	}
	entry.Debug("statement done")
}

// classify maps a driver or context error onto the error taxonomy.
func (cl *call) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(cl.ctx.Err(), context.DeadlineExceeded) && cl.parent.Err() == nil {
		return &dberrors.TimeoutError{SQL: cl.sql, Timeout: cl.c.timeout.String(), Err: context.DeadlineExceeded}
	}
	if cl.parent.Err() != nil {
		return fmt.Errorf("storage: %s: %w", cl.kind, err)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return &dberrors.ConnectionError{Op: cl.kind, URL: cl.c.url, Err: err}
	}
	code, constraint, _ := cl.c.dialect.Classify(err)
	return &dberrors.SQLError{SQL: cl.sql, Code: code, Constraint: constraint, Err: err}
}

// Exec runs a statement that returns no rows and reports the affected row
// count.
func (c *Connection) Exec(ctx context.Context, st Statement) (int64, error) {
	cl, err := c.begin(ctx, "exec", st.SQL)
	if err != nil {
		return 0, err
	}
	n, err := execAffected(cl.ctx, c.conn, st)
	err = cl.classify(err)
	cl.end(err)
	return n, err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execAffected(ctx context.Context, ex execer, st Statement) (int64, error) {
	res, err := ex.ExecContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers do not report counts for DDL.
		return 0, nil
	}
	return n, nil
}

// ExecGuarded runs one statement inside a transaction and commits only when
// check accepts the affected row count. When check fails the transaction is
// rolled back and check's error is returned unchanged.
func (c *Connection) ExecGuarded(ctx context.Context, st Statement, check func(affected int64) error) (int64, error) {
	cl, err := c.begin(ctx, "guarded", st.SQL)
	if err != nil {
		return 0, err
	}

	tx, err := c.conn.BeginTx(cl.ctx, nil)
	if err != nil {
		err = cl.classify(err)
		cl.end(err)
		return 0, err
	}
	n, err := execAffected(cl.ctx, tx, st)
	if err != nil {
		_ = tx.Rollback()
		err = cl.classify(err)
		cl.end(err)
		return 0, err
	}
	if check != nil {
		if cerr := check(n); cerr != nil {
			if rerr := tx.Rollback(); rerr != nil {
				cerr = errors.Join(cerr, cl.classify(rerr))
			}
			cl.log.WithField("affected", n).Debug("guarded statement rolled back")
			cl.end(cerr)
			return n, cerr
		}
	}
	if err := tx.Commit(); err != nil {
		err = cl.classify(err)
		cl.end(err)
		return n, err
	}
	cl.end(nil)
	return n, nil
}

// Query runs a statement that returns rows. The RowSet holds the connection
// until it is exhausted or closed.
func (c *Connection) Query(ctx context.Context, st Statement) (*RowSet, error) {
	cl, err := c.begin(ctx, "query", st.SQL)
	if err != nil {
		return nil, err
	}
	rows, err := c.conn.QueryContext(cl.ctx, st.SQL, st.Args...)
	if err != nil {
		err = cl.classify(err)
		cl.end(err)
		return nil, err
	}
	return c.newRowSet(cl, rows)
}

func (c *Connection) newRowSet(cl *call, rows *sql.Rows) (*RowSet, error) {
	cts, err := rows.ColumnTypes()
	if err != nil {
		_ = rows.Close()
		err = cl.classify(err)
		cl.end(err)
		return nil, err
	}
	cols := make([]ColumnInfo, len(cts))
	for i, ct := range cts {
		cols[i] = ColumnInfo{Name: ct.Name(), DatabaseType: ct.DatabaseTypeName()}
	}

	rs := &RowSet{call: cl, rows: rows, cols: cols}
	c.mu.Lock()
	c.active = rs
	c.mu.Unlock()
	rs.mu.Lock()
	rs.stop = context.AfterFunc(cl.ctx, rs.expire)
	rs.mu.Unlock()
	return rs, nil
}

// Prepare compiles sqlText for a single later Exec or Query.
func (c *Connection) Prepare(ctx context.Context, sqlText string) (*PreparedStatement, error) {
	cl, err := c.begin(ctx, "prepare", sqlText)
	if err != nil {
		return nil, err
	}
	stmt, err := c.conn.PrepareContext(cl.ctx, sqlText)
	err = cl.classify(err)
	cl.end(err)
	if err != nil {
		return nil, err
	}
	return &PreparedStatement{c: c, sql: sqlText, stmt: stmt}, nil
}

// Tables lists the user tables of the database.
func (c *Connection) Tables(ctx context.Context) ([]string, error) {
	rs, err := c.Query(ctx, Statement{SQL: c.dialect.TablesQuery()})
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []string
	for rs.Next() {
		vals, err := rs.Values()
		if err != nil {
			return nil, err
		}
		switch name := vals[0].(type) {
		case string:
			out = append(out, name)
		case []byte:
			out = append(out, string(name))
		}
	}
	return out, rs.Err()
}

// CreateTable issues an idempotent CREATE TABLE for def.
func (c *Connection) CreateTable(ctx context.Context, def ddl.TableDef) error {
	sqlText, err := ddl.BuildCreateTableSQL(def, c.dialect.DDLStyle())
	if err != nil {
		return err
	}
	_, err = c.Exec(ctx, Statement{SQL: sqlText})
	return err
}

// QuoteIdent is a shorthand for the dialect's identifier quoting.
func (c *Connection) QuoteIdent(name string) string { return c.dialect.QuoteIdent(name) }

// ColumnInfo is the result-set metadata of one column.
type ColumnInfo struct {
	Name string
	// DatabaseType is the driver's declared type name, upper-case, possibly
	// empty for computed expressions.
	DatabaseType string
}

// RowSet iterates a query result. It is single use: once Next returns false
// or Close is called the connection is released and further calls fail.
// A RowSet still open when its statement timeout passes is closed with a
// *dberrors.TimeoutError and the connection is released.
type RowSet struct {
	*call
	rows   *sql.Rows
	cols   []ColumnInfo
	err    error
	onDone func()
	stop   func() bool

	mu sync.Mutex
}

// Columns returns the result column metadata.
func (r *RowSet) Columns() []ColumnInfo { return r.cols }

// Next advances to the next row. It releases the RowSet when the result is
// exhausted.
func (r *RowSet) Next() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return false
	}
	if r.rows.Next() {
		return true
	}
	r.finish(r.rows.Err())
	return false
}

// Values returns the raw driver values of the current row. Byte slices are
// copied.
func (r *RowSet) Values() ([]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil, ErrStatementUsed
	}
	vals := make([]any, len(r.cols))
	ptrs := make([]any, len(r.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		r.finish(err)
		return nil, r.err
	}
	for i, v := range vals {
		if b, ok := v.([]byte); ok {
			vals[i] = append([]byte(nil), b...)
		}
	}
	return vals, nil
}

// Err returns the error, if any, that ended iteration.
func (r *RowSet) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close releases the RowSet early. It is safe to call after exhaustion.
func (r *RowSet) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish(nil)
	return r.err
}

// expire runs when the statement context ends.
func (r *RowSet) expire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.done {
		r.log.Debug("releasing unconsumed rows")
	}
	r.finish(r.ctx.Err())
}

// finish closes the rows, maps err and releases the connection. The caller
// holds r.mu.
func (r *RowSet) finish(err error) {
	if r.done {
		return
	}
	if r.stop != nil {
		r.stop()
	}
	if cerr := r.rows.Close(); err == nil {
		err = cerr
	}
	r.err = r.classify(err)

	r.c.mu.Lock()
	if r.c.active == r {
		r.c.active = nil
	}
	r.c.mu.Unlock()
	if r.onDone != nil {
		r.onDone()
	}
	r.end(r.err)
}

// PreparedStatement is a compiled statement valid for exactly one Exec or
// Query.
type PreparedStatement struct {
	c    *Connection
	sql  string
	stmt *sql.Stmt
	used bool
}

func (p *PreparedStatement) take() error {
	if p.used {
		return ErrStatementUsed
	}
	p.used = true
	return nil
}

// Exec runs the statement with args and invalidates it.
func (p *PreparedStatement) Exec(ctx context.Context, args ...any) (int64, error) {
	if err := p.take(); err != nil {
		return 0, err
	}
	defer p.stmt.Close()

	cl, err := p.c.begin(ctx, "exec", p.sql)
	if err != nil {
		return 0, err
	}
	res, err := p.stmt.ExecContext(cl.ctx, args...)
	var n int64
	if err == nil {
		n, _ = res.RowsAffected()
	}
	err = cl.classify(err)
	cl.end(err)
	return n, err
}

// Query runs the statement with args and invalidates it. The statement is
// released together with the RowSet.
func (p *PreparedStatement) Query(ctx context.Context, args ...any) (*RowSet, error) {
	if err := p.take(); err != nil {
		return nil, err
	}
	cl, err := p.c.begin(ctx, "query", p.sql)
	if err != nil {
		_ = p.stmt.Close()
		return nil, err
	}
	rows, err := p.stmt.QueryContext(cl.ctx, args...)
	if err != nil {
		_ = p.stmt.Close()
		err = cl.classify(err)
		cl.end(err)
		return nil, err
	}
	rs, err := p.c.newRowSet(cl, rows)
	if err != nil {
		_ = p.stmt.Close()
		return nil, err
	}
	rs.onDone = func() { _ = p.stmt.Close() }
	return rs, nil
}

// Close discards an unused statement.
func (p *PreparedStatement) Close() error {
	if p.used {
		return nil
	}
	p.used = true
	return p.stmt.Close()
}
