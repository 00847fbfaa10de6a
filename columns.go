package decentdb

import (
	"github.com/decentdb/decentdb/core"
	"github.com/decentdb/decentdb/db"
)

// ColumnCount is the number of result columns, zero for statements that
// return no rows. It is fixed at prepare.
func (s *Stmt) ColumnCount() int {
	if s.state == StateFinalized {
		return 0
	}
	return len(s.plan.Columns)
}

func (s *Stmt) column(i int) (db.ResultColumn, error) {
	if err := s.usable(); err != nil {
		return db.ResultColumn{}, s.fail(err)
	}
	if i < 0 || i >= len(s.plan.Columns) {
		return db.ResultColumn{}, s.fail(core.Errorf(core.CodeIndexOutOfRange, "column index %d out of range 0..%d", i, len(s.plan.Columns)-1))
	}
	return s.plan.Columns[i], nil
}

func (s *Stmt) ColumnName(i int) (string, error) {
	c, err := s.column(i)
	return c.Name, err
}

// ColumnType is the kind values of column i carry when not NULL.
func (s *Stmt) ColumnType(i int) (core.Kind, error) {
	c, err := s.column(i)
	return c.Kind, err
}

// ColumnDeclType is the declared type, such as "DECIMAL(10,2)".
func (s *Stmt) ColumnDeclType(i int) (string, error) {
	c, err := s.column(i)
	return c.DeclType, err
}

// ColumnValue returns column i of the current row.
func (s *Stmt) ColumnValue(i int) (core.Value, error) {
	if _, err := s.column(i); err != nil {
		return nil, err
	}
	if s.state != StateHasRow {
		return nil, s.fail(core.Errorf(core.CodeInvalidState, "no current row"))
	}
	return s.row[i], nil
}

func (s *Stmt) ColumnIsNull(i int) (bool, error) {
	v, err := s.ColumnValue(i)
	if err != nil {
		return false, err
	}
	return core.IsNull(v), nil
}

func (s *Stmt) ColumnInt64(i int) (int64, error) {
	v, err := s.ColumnValue(i)
	if err != nil {
		return 0, err
	}
	n, err := core.AsInt64(v)
	if err != nil {
		return 0, s.fail(err)
	}
	return n, nil
}

func (s *Stmt) ColumnFloat64(i int) (float64, error) {
	v, err := s.ColumnValue(i)
	if err != nil {
		return 0, err
	}
	f, err := core.AsFloat64(v)
	if err != nil {
		return 0, s.fail(err)
	}
	return f, nil
}

func (s *Stmt) ColumnBool(i int) (bool, error) {
	v, err := s.ColumnValue(i)
	if err != nil {
		return false, err
	}
	b, err := core.AsBool(v)
	if err != nil {
		return false, s.fail(err)
	}
	return b, nil
}

func (s *Stmt) ColumnText(i int) (string, error) {
	v, err := s.ColumnValue(i)
	if err != nil {
		return "", err
	}
	b, err := core.AsText(v)
	if err != nil {
		return "", s.fail(err)
	}
	return string(b), nil
}

// ColumnBlob returns a copy of the bytes.
func (s *Stmt) ColumnBlob(i int) ([]byte, error) {
	v, err := s.ColumnValue(i)
	if err != nil {
		return nil, err
	}
	b, err := core.AsBlob(v)
	if err != nil {
		return nil, s.fail(err)
	}
	return b, nil
}

func (s *Stmt) ColumnDecimal(i int) (core.Decimal, error) {
	v, err := s.ColumnValue(i)
	if err != nil {
		return core.Decimal{}, err
	}
	d, err := core.AsDecimal(v)
	if err != nil {
		return core.Decimal{}, s.fail(err)
	}
	return d, nil
}
