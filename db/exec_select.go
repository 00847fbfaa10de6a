package db

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/decentdb/decentdb/core"
	"github.com/decentdb/decentdb/sql"
)

// execution carries one run of a plan.
type execution struct {
	engine *Engine
	plan   *Plan
	params []core.Value
	start  time.Time
}

func (x *execution) value(o sql.Operand) core.Value {
	if o.IsParam() {
		return x.params[o.Param-1]
	}
	return o.Literal
}

func (x *execution) elapsed() float64 {
	return time.Since(x.start).Seconds()
}

// count resolves a LIMIT or OFFSET operand; -1 means absent. A NULL
// placeholder counts as absent.
func (x *execution) count(o *sql.Operand, clause string) (int64, error) {
	if o == nil {
		return -1, nil
	}
	n, ok := x.value(*o).(core.Int64)
	if !ok {
		return -1, nil
	}
	if n < 0 {
		return 0, core.Errorf(core.CodeExecution, "%s must not be negative, got %d", clause, int64(n))
	}
	return int64(n), nil
}

func (x *execution) executeSelect(s sql.SelectStatement) (Result, error) {
	result, err := x.selectRows(s)
	if err != nil {
		return nil, withSQL(err, x.plan.SQL)
	}
	return result, nil
}

func (x *execution) selectRows(s sql.SelectStatement) (QueryResult, error) {
	t, ok := x.engine.store.GetTable(s.Table)
	if !ok {
		return QueryResult{}, core.Errorf(core.CodeSchema, "no such table: %s", s.Table)
	}
	f, err := newFilter(t.Table, s.Where, x.params)
	if err != nil {
		return QueryResult{}, err
	}

	var rows [][]core.Value
	read := 0
	for _, id := range f.candidates(t) {
		row, ok := t.Get(id)
		if !ok {
			continue
		}
		read++
		if f.matches(row) {
			rows = append(rows, row)
		}
	}

	result := QueryResult{Columns: x.plan.Columns, RecordsRead: read}

	if len(s.Aggregates) > 0 {
		out := make([]core.Value, len(s.Aggregates))
		for i, agg := range s.Aggregates {
			v, err := aggregate(t.Table, rows, agg)
			if err != nil {
				return QueryResult{}, err
			}
			out[i] = v
		}
		result.Rows, err = x.window([][]core.Value{out}, s)
		if err != nil {
			return QueryResult{}, err
		}
		result.ExecutionTimeSec = x.elapsed()
		return result, nil
	}

	if len(s.OrderBy) > 0 {
		if err := sortRows(t.Table, rows, s.OrderBy); err != nil {
			return QueryResult{}, err
		}
	}

	projection := make([]int, 0, len(t.Table.Columns))
	if len(s.Columns) == 0 {
		if len(t.Table.Columns) != len(x.plan.Columns) {
			return QueryResult{}, core.Errorf(core.CodeSchema, "table %s changed since the statement was prepared", t.Table.Name)
		}
		for i := range t.Table.Columns {
			projection = append(projection, i)
		}
	} else {
		for _, name := range s.Columns {
			c, ok := t.Table.ColumnIndex(name)
			if !ok {
				return QueryResult{}, core.Errorf(core.CodeSchema, "no such column: %s.%s", t.Table.Name, name)
			}
			projection = append(projection, c)
		}
	}

	projected := make([][]core.Value, len(rows))
	for i, row := range rows {
		out := make([]core.Value, len(projection))
		for j, c := range projection {
			out[j] = row[c]
		}
		projected[i] = out
	}

	if s.Distinct {
		projected = applyDistinct(projected)
	}

	if result.Rows, err = x.window(projected, s); err != nil {
		return QueryResult{}, err
	}
	result.ExecutionTimeSec = x.elapsed()
	return result, nil
}

// window applies OFFSET then LIMIT.
func (x *execution) window(rows [][]core.Value, s sql.SelectStatement) ([][]core.Value, error) {
	offset, err := x.count(s.Offset, "OFFSET")
	if err != nil {
		return nil, err
	}
	limit, err := x.count(s.Limit, "LIMIT")
	if err != nil {
		return nil, err
	}

	if offset > 0 {
		if offset >= int64(len(rows)) {
			return nil, nil
		}
		rows = rows[offset:]
	}
	if limit >= 0 && limit < int64(len(rows)) {
		rows = rows[:limit]
	}
	return rows, nil
}

// applyDistinct keeps the first occurrence of every distinct row.
func applyDistinct(rows [][]core.Value) [][]core.Value {
	seen := make(map[string]bool)
	var distinct [][]core.Value

	for _, row := range rows {
		keyParts := make([]string, len(row))
		for i, v := range row {
			keyParts[i] = core.Key(v)
		}
		key := strings.Join(keyParts, "\x00")

		if !seen[key] {
			seen[key] = true
			distinct = append(distinct, row)
		}
	}

	return distinct
}

// sortRows sorts rows by ORDER BY clauses; NULLs sort first ascending.
func sortRows(table core.Table, rows [][]core.Value, orderBy []sql.OrderByClause) error {
	cols := make([]int, len(orderBy))
	for i, clause := range orderBy {
		c, ok := table.ColumnIndex(clause.Column)
		if !ok {
			return core.Errorf(core.CodeSchema, "no such column: %s.%s", table.Name, clause.Column)
		}
		cols[i] = c
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for k, clause := range orderBy {
			cmp := compareForSort(rows[i][cols[k]], rows[j][cols[k]])
			if cmp != 0 {
				if clause.Descending {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
	return nil
}

func compareForSort(a, b core.Value) int {
	an, bn := core.IsNull(a), core.IsNull(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	cmp, _ := core.Compare(a, b)
	return cmp
}

// aggregate folds rows into one value. NULLs are skipped; an aggregate over
// no values is NULL, except COUNT which is 0.
func aggregate(table core.Table, rows [][]core.Value, agg sql.AggregateExpr) (core.Value, error) {
	if agg.Column == "*" {
		return core.NewInt64(int64(len(rows))), nil
	}
	c, ok := table.ColumnIndex(agg.Column)
	if !ok {
		return nil, core.Errorf(core.CodeSchema, "no such column: %s.%s", table.Name, agg.Column)
	}

	var values []core.Value
	for _, row := range rows {
		if !core.IsNull(row[c]) {
			values = append(values, row[c])
		}
	}

	switch agg.Function {
	case "COUNT":
		return core.NewInt64(int64(len(values))), nil
	case "MIN", "MAX":
		if len(values) == 0 {
			return core.NewNull(), nil
		}
		best := values[0]
		for _, v := range values[1:] {
			cmp, _ := core.Compare(v, best)
			if (agg.Function == "MIN" && cmp < 0) || (agg.Function == "MAX" && cmp > 0) {
				best = v
			}
		}
		return best, nil
	case "SUM":
		if len(values) == 0 {
			return core.NewNull(), nil
		}
		return sum(values)
	case "AVG":
		if len(values) == 0 {
			return core.NewNull(), nil
		}
		total := 0.0
		for _, v := range values {
			total += toFloat(v)
		}
		return core.NewFloat64(total / float64(len(values))), nil
	}
	return nil, core.Errorf(core.CodeInternal, "unknown aggregate %s", agg.Function)
}

func sum(values []core.Value) (core.Value, error) {
	switch values[0].(type) {
	case core.Int64:
		var total int64
		for _, v := range values {
			n := int64(v.(core.Int64))
			if (n > 0 && total > math.MaxInt64-n) || (n < 0 && total < math.MinInt64-n) {
				return nil, core.Errorf(core.CodeExecution, "integer overflow in SUM")
			}
			total += n
		}
		return core.NewInt64(total), nil
	case core.Decimal:
		total := values[0].(core.Decimal)
		for _, v := range values[1:] {
			var err error
			if total, err = total.Add(v.(core.Decimal)); err != nil {
				return nil, core.Errorf(core.CodeExecution, "decimal overflow in SUM")
			}
		}
		return total, nil
	default:
		total := 0.0
		for _, v := range values {
			total += toFloat(v)
		}
		return core.NewFloat64(total), nil
	}
}

func toFloat(v core.Value) float64 {
	switch x := v.(type) {
	case core.Int64:
		return float64(x)
	case core.Float64:
		return float64(x)
	case core.Decimal:
		return x.Float64()
	}
	return 0
}
