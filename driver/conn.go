package driver

import (
	"context"
	sqldriver "database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/decentdb/decentdb"
	"github.com/decentdb/decentdb/core"
)

// Conn is a pooled connection. Reach it through sql.Conn.Raw for
// Checkpoint and schema introspection.
type Conn struct {
	connector *connector
	db        *decentdb.DB
	closed    bool
}

var (
	_ sqldriver.ConnPrepareContext = (*Conn)(nil)
	_ sqldriver.ConnBeginTx        = (*Conn)(nil)
	_ sqldriver.ExecerContext      = (*Conn)(nil)
	_ sqldriver.QueryerContext     = (*Conn)(nil)
	_ sqldriver.NamedValueChecker  = (*Conn)(nil)
)

func (c *Conn) Prepare(query string) (sqldriver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *Conn) PrepareContext(ctx context.Context, query string) (sqldriver.Stmt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.closed {
		return nil, sqldriver.ErrBadConn
	}
	if hasUnsupportedParamStyle(query) {
		return nil, &core.Error{Code: core.CodeSyntax, Message: "unsupported parameter style: use $1..$N only", SQL: query}
	}

	stmt, err := c.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &Stmt{conn: c, stmt: stmt}, nil
}

// hasUnsupportedParamStyle reports a '?' or '@name' placeholder outside
// string literals.
func hasUnsupportedParamStyle(query string) bool {
	inString := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			if inString && i+1 < len(query) && query[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if ch == '?' {
			return true
		}
		if ch == '@' && i+1 < len(query) {
			n := query[i+1]
			if (n >= 'a' && n <= 'z') || (n >= 'A' && n <= 'Z') || n == '_' {
				return true
			}
		}
	}
	return false
}

func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.connector.owner.Load() == c {
		c.endTx("ROLLBACK")
	}
	return nil
}

func (c *Conn) Begin() (sqldriver.Tx, error) {
	return c.BeginTx(context.Background(), sqldriver.TxOptions{})
}

// BeginTx runs BEGIN and holds the connector gate until Commit or Rollback.
func (c *Conn) BeginTx(ctx context.Context, opts sqldriver.TxOptions) (sqldriver.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.ReadOnly {
		return nil, core.Errorf(core.CodeTransaction, "read-only transactions are not supported")
	}
	if c.closed {
		return nil, sqldriver.ErrBadConn
	}

	c.connector.gate.Lock()
	if _, err := c.db.Exec("BEGIN"); err != nil {
		c.connector.gate.Unlock()
		return nil, err
	}
	c.connector.owner.Store(c)
	return &tx{conn: c}, nil
}

func (c *Conn) endTx(statement string) error {
	_, err := c.db.Exec(statement)
	if c.connector.owner.CompareAndSwap(c, nil) {
		c.connector.gate.Unlock()
	}
	return err
}

type tx struct {
	conn *Conn
}

func (t *tx) Commit() error {
	return t.conn.endTx("COMMIT")
}

func (t *tx) Rollback() error {
	return t.conn.endTx("ROLLBACK")
}

func (c *Conn) ExecContext(ctx context.Context, query string, args []sqldriver.NamedValue) (sqldriver.Result, error) {
	s, err := c.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.(*Stmt).ExecContext(ctx, args)
}

func (c *Conn) QueryContext(ctx context.Context, query string, args []sqldriver.NamedValue) (sqldriver.Rows, error) {
	s, err := c.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	stmt := s.(*Stmt)
	rows, err := stmt.QueryContext(ctx, args)
	if err != nil {
		stmt.Close()
		return nil, err
	}
	r := rows.(*Rows)
	r.closeStmt = true
	return r, nil
}

// CheckNamedValue admits Decimal arguments; everything else goes through the
// default converter.
func (c *Conn) CheckNamedValue(nv *sqldriver.NamedValue) error {
	switch nv.Value.(type) {
	case Decimal:
		return nil
	}
	return sqldriver.ErrSkip
}

// Checkpoint folds the write-ahead log into the primary store.
func (c *Conn) Checkpoint() error {
	if c.closed {
		return sqldriver.ErrBadConn
	}
	return c.db.Checkpoint()
}

func (c *Conn) ListTables() ([]string, error) {
	var tables []string
	err := c.decode(c.db.ListTablesJSON, &tables)
	return tables, err
}

func (c *Conn) TableColumns(table string) ([]decentdb.ColumnInfo, error) {
	var columns []decentdb.ColumnInfo
	err := c.decode(func() (*decentdb.Buffer, error) { return c.db.TableColumnsJSON(table) }, &columns)
	return columns, err
}

func (c *Conn) ListIndexes() ([]decentdb.IndexInfo, error) {
	var indexes []decentdb.IndexInfo
	err := c.decode(c.db.ListIndexesJSON, &indexes)
	return indexes, err
}

func (c *Conn) decode(snapshot func() (*decentdb.Buffer, error), out any) error {
	if c.closed {
		return sqldriver.ErrBadConn
	}
	buf, err := snapshot()
	if err != nil {
		return err
	}
	defer buf.Release()

	data, err := buf.Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode schema snapshot: %w", err)
	}
	return nil
}
