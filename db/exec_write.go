package db

import (
	"github.com/decentdb/decentdb/core"
	"github.com/decentdb/decentdb/op"
	"github.com/decentdb/decentdb/sql"
)

func (x *execution) executeWrite() (Result, error) {
	var (
		result CommitResult
		err    error
	)
	switch s := x.plan.Statement.(type) {
	case sql.InsertStatement:
		result, err = x.executeInsert(s)
	case sql.UpdateStatement:
		result, err = x.executeUpdate(s)
	case sql.DeleteStatement:
		result, err = x.executeDelete(s)
	case sql.CreateTableStatement:
		result, err = x.executeCreateTable(s)
	case sql.DropTableStatement:
		result, err = x.executeDropTable(s)
	case sql.CreateIndexStatement:
		result, err = x.executeCreateIndex(s)
	case sql.DropIndexStatement:
		result, err = x.executeDropIndex(s)
	default:
		return nil, core.Errorf(core.CodeInternal, "unsupported statement type: %s", x.plan.Statement.Type())
	}
	if err != nil {
		return nil, err
	}
	result.ExecutionTimeSec = x.elapsed()
	return result, nil
}

func (x *execution) table(name string) (*op.TableOp, error) {
	t, ok := x.engine.store.GetTable(name)
	if !ok {
		return nil, core.Errorf(core.CodeSchema, "no such table: %s", name)
	}
	return t, nil
}

func (x *execution) executeInsert(s sql.InsertStatement) (CommitResult, error) {
	t, err := x.table(s.Table)
	if err != nil {
		return CommitResult{}, err
	}

	positions := make([]int, 0, len(t.Table.Columns))
	if len(s.Columns) == 0 {
		for i := range t.Table.Columns {
			positions = append(positions, i)
		}
	} else {
		for _, name := range s.Columns {
			c, ok := t.Table.ColumnIndex(name)
			if !ok {
				return CommitResult{}, core.Errorf(core.CodeSchema, "no such column: %s.%s", t.Table.Name, name)
			}
			positions = append(positions, c)
		}
	}

	var result CommitResult
	for _, operands := range s.Rows {
		if len(operands) != len(positions) {
			return CommitResult{}, core.Errorf(core.CodeSchema, "table %s: %d values for %d columns", t.Table.Name, len(operands), len(positions))
		}
		row := make([]core.Value, len(t.Table.Columns))
		for i := range row {
			row[i] = core.NewNull()
		}
		for i, o := range operands {
			row[positions[i]] = x.value(o)
		}

		id, err := t.Insert(row)
		if err != nil {
			return CommitResult{}, err
		}
		result.RowsAffected++
		result.LastInsertID = insertID(t, id)
	}
	return result, nil
}

// insertID is the INTEGER PRIMARY KEY of the new row when the table has
// one, its row id otherwise.
func insertID(t *op.TableOp, id int64) int64 {
	pk := t.Table.PrimaryKey()
	if len(pk) == 1 && t.Table.Columns[pk[0]].Type == core.IntType {
		if row, ok := t.Get(id); ok {
			if k, ok := row[pk[0]].(core.Int64); ok {
				return int64(k)
			}
		}
	}
	return id
}

// matching collects the ids of rows passing the WHERE clause before any of
// them is changed.
func (x *execution) matching(t *op.TableOp, where sql.WhereClause) ([]int64, error) {
	f, err := newFilter(t.Table, where, x.params)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, id := range f.candidates(t) {
		if row, ok := t.Get(id); ok && f.matches(row) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (x *execution) executeUpdate(s sql.UpdateStatement) (CommitResult, error) {
	t, err := x.table(s.Table)
	if err != nil {
		return CommitResult{}, err
	}

	targets := make([]int, len(s.Updates))
	for i, set := range s.Updates {
		c, ok := t.Table.ColumnIndex(set.Column)
		if !ok {
			return CommitResult{}, core.Errorf(core.CodeSchema, "no such column: %s.%s", t.Table.Name, set.Column)
		}
		targets[i] = c
	}

	ids, err := x.matching(t, s.Where)
	if err != nil {
		return CommitResult{}, err
	}

	var result CommitResult
	for _, id := range ids {
		old, _ := t.Get(id)
		row := append([]core.Value(nil), old...)
		for i, set := range s.Updates {
			row[targets[i]] = x.value(set.Value)
		}
		if err := t.Update(id, row); err != nil {
			return CommitResult{}, err
		}
		result.RowsAffected++
	}
	return result, nil
}

func (x *execution) executeDelete(s sql.DeleteStatement) (CommitResult, error) {
	t, err := x.table(s.Table)
	if err != nil {
		return CommitResult{}, err
	}

	ids, err := x.matching(t, s.Where)
	if err != nil {
		return CommitResult{}, err
	}

	var result CommitResult
	for _, id := range ids {
		if err := t.Delete(id); err != nil {
			return CommitResult{}, err
		}
		result.RowsAffected++
	}
	return result, nil
}

func (x *execution) executeCreateTable(s sql.CreateTableStatement) (CommitResult, error) {
	table := core.Table{Name: s.Table, Columns: s.Columns}
	created, err := x.engine.store.CreateTable(table, s.IfNotExists)
	if err != nil {
		return CommitResult{}, err
	}
	if !created {
		return CommitResult{}, nil
	}
	return CommitResult{TablesCreated: 1}, nil
}

func (x *execution) executeDropTable(s sql.DropTableStatement) (CommitResult, error) {
	dropped, err := x.engine.store.DropTable(s.Table, s.IfExists)
	if err != nil {
		return CommitResult{}, err
	}
	if !dropped {
		return CommitResult{}, nil
	}
	return CommitResult{TablesDeleted: 1}, nil
}

func (x *execution) executeCreateIndex(s sql.CreateIndexStatement) (CommitResult, error) {
	def := core.Index{Name: s.Name, Table: s.Table, Columns: s.Columns, Unique: s.Unique}
	created, err := x.engine.store.CreateIndex(def, s.IfNotExists)
	if err != nil {
		return CommitResult{}, err
	}
	if !created {
		return CommitResult{}, nil
	}
	return CommitResult{IndexesCreated: 1}, nil
}

func (x *execution) executeDropIndex(s sql.DropIndexStatement) (CommitResult, error) {
	dropped, err := x.engine.store.DropIndex(s.Name, s.IfExists)
	if err != nil {
		return CommitResult{}, err
	}
	if !dropped {
		return CommitResult{}, nil
	}
	return CommitResult{IndexesDeleted: 1}, nil
}
