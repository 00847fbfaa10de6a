package driver

import (
	"context"
	sqldriver "database/sql/driver"
	"io"
	"time"

	"github.com/decentdb/decentdb"
	"github.com/decentdb/decentdb/core"
)

type Stmt struct {
	conn *Conn
	stmt *decentdb.Stmt
}

var (
	_ sqldriver.StmtExecContext  = (*Stmt)(nil)
	_ sqldriver.StmtQueryContext = (*Stmt)(nil)
)

func (s *Stmt) Close() error {
	return s.stmt.Finalize()
}

func (s *Stmt) NumInput() int {
	return s.stmt.ParamCount()
}

func (s *Stmt) Exec(args []sqldriver.Value) (sqldriver.Result, error) {
	return s.ExecContext(context.Background(), ordinals(args))
}

func (s *Stmt) Query(args []sqldriver.Value) (sqldriver.Rows, error) {
	return s.QueryContext(context.Background(), ordinals(args))
}

func ordinals(args []sqldriver.Value) []sqldriver.NamedValue {
	named := make([]sqldriver.NamedValue, len(args))
	for i, v := range args {
		named[i] = sqldriver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}

// params converts driver arguments to engine values by ordinal.
func params(args []sqldriver.NamedValue) ([]core.Value, error) {
	out := make([]core.Value, len(args))
	for _, arg := range args {
		if arg.Name != "" {
			return nil, core.Errorf(core.CodeSyntax, "named parameter %q is not supported: use $1..$N", arg.Name)
		}
		if arg.Ordinal < 1 || arg.Ordinal > len(args) {
			return nil, core.Errorf(core.CodeIndexOutOfRange, "invalid bind ordinal: %d", arg.Ordinal)
		}
		v, err := toValue(arg.Value)
		if err != nil {
			return nil, err
		}
		out[arg.Ordinal-1] = v
	}
	return out, nil
}

func toValue(v any) (core.Value, error) {
	switch x := v.(type) {
	case nil:
		return core.NewNull(), nil
	case int64:
		return core.NewInt64(x), nil
	case int:
		return core.NewInt64(int64(x)), nil
	case float64:
		return core.NewFloat64(x), nil
	case bool:
		return core.NewBool(x), nil
	case string:
		return core.NewTextString(x), nil
	case []byte:
		return core.NewBlob(x), nil
	case time.Time:
		// epoch milliseconds, UTC
		return core.NewInt64(x.UnixMilli()), nil
	case Decimal:
		return core.NewDecimal(x.Unscaled, x.Scale)
	}
	return nil, core.Errorf(core.CodeTypeMismatch, "unsupported argument type %T", v)
}

// fromView converts one column of the current row into a driver value. Text
// and blob bytes are copied out of the statement buffers.
func fromView(view core.ValueView) sqldriver.Value {
	if view.IsNull {
		return nil
	}
	switch view.Kind {
	case core.KindInt64:
		return view.Int64
	case core.KindBool:
		return view.Int64 != 0
	case core.KindFloat64:
		return view.Float64
	case core.KindText:
		return string(view.Bytes)
	case core.KindBlob:
		return append([]byte{}, view.Bytes...)
	case core.KindDecimal:
		return Decimal{Unscaled: view.Int64, Scale: view.DecimalScale}
	}
	return nil
}

func (s *Stmt) ExecContext(ctx context.Context, args []sqldriver.NamedValue) (sqldriver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values, err := params(args)
	if err != nil {
		return nil, err
	}

	release := s.conn.connector.enter(s.conn)
	defer release()

	if _, _, err := s.stmt.StepWithParams(values); err != nil {
		return nil, err
	}
	return result{rowsAffected: s.stmt.RowsAffected(), lastInsertID: s.stmt.LastInsertID()}, nil
}

func (s *Stmt) QueryContext(ctx context.Context, args []sqldriver.NamedValue) (sqldriver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values, err := params(args)
	if err != nil {
		return nil, err
	}

	release := s.conn.connector.enter(s.conn)
	view, hasRow, err := s.stmt.StepWithParams(values)
	release()
	if err != nil {
		return nil, err
	}
	return &Rows{ctx: ctx, stmt: s, view: view, pending: hasRow}, nil
}

type result struct {
	rowsAffected int64
	lastInsertID int64
}

func (r result) LastInsertId() (int64, error) { return r.lastInsertID, nil }
func (r result) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// Rows streams a result set. The statement materializes its rows on the
// first step, so later steps do not touch the engine.
type Rows struct {
	ctx       context.Context
	stmt      *Stmt
	view      decentdb.RowView
	pending   bool // view holds a row Next has not returned yet
	closeStmt bool
}

var _ sqldriver.RowsColumnTypeDatabaseTypeName = (*Rows)(nil)

func (r *Rows) Columns() []string {
	cols := make([]string, r.stmt.stmt.ColumnCount())
	for i := range cols {
		cols[i], _ = r.stmt.stmt.ColumnName(i)
	}
	return cols
}

func (r *Rows) ColumnTypeDatabaseTypeName(i int) string {
	name, _ := r.stmt.stmt.ColumnDeclType(i)
	return name
}

func (r *Rows) Next(dest []sqldriver.Value) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if !r.pending {
		hasRow, err := r.stmt.stmt.Step()
		if err != nil {
			return err
		}
		if !hasRow {
			return io.EOF
		}
		if r.view, err = r.stmt.stmt.RowView(); err != nil {
			return err
		}
	}
	r.pending = false

	views, err := r.view.Values()
	if err != nil {
		return err
	}
	for i := 0; i < len(views) && i < len(dest); i++ {
		dest[i] = fromView(views[i])
	}
	return nil
}

func (r *Rows) Close() error {
	if r.closeStmt {
		return r.stmt.Close()
	}
	return r.stmt.stmt.Reset()
}
