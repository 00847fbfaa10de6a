package op

import (
	"iter"
	"math"
	"sort"

	"github.com/decentdb/decentdb/core"
	"github.com/decentdb/decentdb/ps"
)

// TableOp holds the rows of one table in row id order. Row slices are never
// modified in place; an update stores a new slice.
type TableOp struct {
	Table     core.Table
	rows      map[int64][]core.Value
	ids       []int64
	nextRowID int64
	maxKey    int64 // highest INTEGER PRIMARY KEY seen, for auto-assignment
	store     *Store
}

func newTableOp(table core.Table, store *Store) *TableOp {
	return &TableOp{
		Table:     table,
		rows:      make(map[int64][]core.Value),
		nextRowID: 1,
		store:     store,
	}
}

func (op *TableOp) Count() int {
	return len(op.ids)
}

// Get returns the row stored under id.
func (op *TableOp) Get(id int64) ([]core.Value, bool) {
	row, ok := op.rows[id]
	return row, ok
}

// Scan yields rows in row id order.
func (op *TableOp) Scan() iter.Seq2[int64, []core.Value] {
	return func(yield func(int64, []core.Value) bool) {
		for _, id := range op.ids {
			if !yield(id, op.rows[id]) {
				return
			}
		}
	}
}

// RowIDs returns a copy of the row ids, so callers may mutate while iterating.
func (op *TableOp) RowIDs() []int64 {
	return append([]int64(nil), op.ids...)
}

func (op *TableOp) Indexes() []*ps.Index {
	return op.store.Indexes.ForTable(op.Table.Name)
}

// IndexOn returns an index whose key columns are exactly cols, in order.
func (op *TableOp) IndexOn(cols []int) (*ps.Index, bool) {
	for _, idx := range op.Indexes() {
		ic := idx.Columns()
		if len(ic) != len(cols) {
			continue
		}
		match := true
		for i := range ic {
			if ic[i] != cols[i] {
				match = false
				break
			}
		}
		if match {
			return idx, true
		}
	}
	return nil, false
}

func (op *TableOp) autoKeyColumn() int {
	pk := op.Table.PrimaryKey()
	if len(pk) == 1 && op.Table.Columns[pk[0]].AutoIncrement() {
		return pk[0]
	}
	return -1
}

func (op *TableOp) noteKey(row []core.Value) {
	if c := op.autoKeyColumn(); c >= 0 {
		if k, ok := row[c].(core.Int64); ok && int64(k) > op.maxKey {
			op.maxKey = int64(k)
		}
	}
}

// prepareRow coerces values to column types, assigns an omitted INTEGER
// PRIMARY KEY and enforces NOT NULL.
func (op *TableOp) prepareRow(values []core.Value, assignKey bool) ([]core.Value, error) {
	if len(values) != len(op.Table.Columns) {
		return nil, core.Errorf(core.CodeInternal, "row has %d values, table %s has %d columns",
			len(values), op.Table.Name, len(op.Table.Columns))
	}

	row := make([]core.Value, len(values))
	for i, col := range op.Table.Columns {
		v, err := core.Coerce(values[i], col)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}

	if c := op.autoKeyColumn(); assignKey && c >= 0 && core.IsNull(row[c]) {
		if op.maxKey == math.MaxInt64 {
			return nil, core.Errorf(core.CodeExecution, "auto-increment key exhausted for %s.%s",
				op.Table.Name, op.Table.Columns[c].Name)
		}
		row[c] = core.NewInt64(op.maxKey + 1)
	}

	for i, col := range op.Table.Columns {
		if col.NotNull && core.IsNull(row[i]) {
			return nil, core.Errorf(core.CodeExecution, "NOT NULL constraint failed: %s.%s", op.Table.Name, col.Name)
		}
	}
	return row, nil
}

func (op *TableOp) checkIndexes(row []core.Value, id int64) error {
	for _, idx := range op.Indexes() {
		if err := idx.Check(row, id); err != nil {
			return err
		}
	}
	return nil
}

func (op *TableOp) indexRow(row []core.Value, id int64) {
	for _, idx := range op.Indexes() {
		// uniqueness was checked up front
		_ = idx.Insert(row, id)
	}
}

func (op *TableOp) unindexRow(row []core.Value, id int64) {
	for _, idx := range op.Indexes() {
		idx.Delete(row, id)
	}
}

// put stores row under id without constraint checks.
func (op *TableOp) put(id int64, row []core.Value) {
	if old, ok := op.rows[id]; ok {
		op.unindexRow(old, id)
	} else {
		pos := sort.Search(len(op.ids), func(i int) bool { return op.ids[i] >= id })
		op.ids = append(op.ids, 0)
		copy(op.ids[pos+1:], op.ids[pos:])
		op.ids[pos] = id
	}
	op.rows[id] = row
	op.indexRow(row, id)
	op.noteKey(row)
	if id >= op.nextRowID {
		op.nextRowID = id + 1
	}
}

// remove deletes the row under id without recording anything.
func (op *TableOp) remove(id int64) {
	row, ok := op.rows[id]
	if !ok {
		return
	}
	op.unindexRow(row, id)
	delete(op.rows, id)
	pos := sort.Search(len(op.ids), func(i int) bool { return op.ids[i] >= id })
	if pos < len(op.ids) && op.ids[pos] == id {
		op.ids = append(op.ids[:pos], op.ids[pos+1:]...)
	}
}

// Insert adds a full row (one value per column) and returns its row id.
func (op *TableOp) Insert(values []core.Value) (int64, error) {
	row, err := op.prepareRow(values, true)
	if err != nil {
		return 0, err
	}

	id := op.nextRowID
	if err := op.checkIndexes(row, id); err != nil {
		return 0, err
	}

	prevNext, prevMax := op.nextRowID, op.maxKey
	op.put(id, row)
	op.store.record(ps.PutChange(op.Table.Name, id, row), func() {
		op.remove(id)
		op.nextRowID, op.maxKey = prevNext, prevMax
	})
	return id, nil
}

// Update replaces the row under id with a full new row.
func (op *TableOp) Update(id int64, values []core.Value) error {
	old, ok := op.rows[id]
	if !ok {
		return core.Errorf(core.CodeInternal, "row %d of %s does not exist", id, op.Table.Name)
	}

	row, err := op.prepareRow(values, false)
	if err != nil {
		return err
	}
	if err := op.checkIndexes(row, id); err != nil {
		return err
	}

	prevMax := op.maxKey
	op.put(id, row)
	op.store.record(ps.PutChange(op.Table.Name, id, row), func() {
		op.put(id, old)
		op.maxKey = prevMax
	})
	return nil
}

// Delete removes the row under id.
func (op *TableOp) Delete(id int64) error {
	old, ok := op.rows[id]
	if !ok {
		return core.Errorf(core.CodeInternal, "row %d of %s does not exist", id, op.Table.Name)
	}

	op.remove(id)
	op.store.record(ps.DeleteChange(op.Table.Name, id), func() {
		op.put(id, old)
	})
	return nil
}
