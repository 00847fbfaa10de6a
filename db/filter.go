package db

import (
	"github.com/decentdb/decentdb/core"
	"github.com/decentdb/decentdb/op"
	"github.com/decentdb/decentdb/sql"
)

// truth is a three-valued logic result; NULL comparisons are unknown.
type truth int8

const (
	truthFalse truth = iota
	truthUnknown
	truthTrue
)

func truthOf(b bool) truth {
	if b {
		return truthTrue
	}
	return truthFalse
}

func (t truth) not() truth {
	switch t {
	case truthTrue:
		return truthFalse
	case truthFalse:
		return truthTrue
	}
	return truthUnknown
}

// filter is a WHERE clause bound to a table and parameter values.
type filter struct {
	where  sql.WhereClause
	cols   []int
	params []core.Value
}

func newFilter(table core.Table, where sql.WhereClause, params []core.Value) (*filter, error) {
	f := &filter{where: where, params: params, cols: make([]int, len(where.Conditions))}
	for i, cond := range where.Conditions {
		c, ok := table.ColumnIndex(cond.Column)
		if !ok {
			return nil, core.Errorf(core.CodeSchema, "no such column: %s.%s", table.Name, cond.Column)
		}
		f.cols[i] = c
	}
	return f, nil
}

func (f *filter) value(o sql.Operand) core.Value {
	if o.IsParam() {
		return f.params[o.Param-1]
	}
	return o.Literal
}

// matches reports whether the row passes; unknown filters the row out.
func (f *filter) matches(row []core.Value) bool {
	if len(f.where.Conditions) == 0 {
		return true
	}

	// AND binds tighter than OR: fold runs of AND, then OR the runs
	result := truthFalse
	group := f.evaluate(row, 0)
	for i := 1; i < len(f.where.Conditions); i++ {
		next := f.evaluate(row, i)
		if f.where.LogicalOps[i-1] == sql.LogicalOr {
			result = or(result, group)
			group = next
		} else {
			group = and(group, next)
		}
	}
	return or(result, group) == truthTrue
}

func and(a, b truth) truth {
	return min(a, b)
}

func or(a, b truth) truth {
	return max(a, b)
}

func (f *filter) evaluate(row []core.Value, i int) truth {
	cond := f.where.Conditions[i]
	value := row[f.cols[i]]

	var result truth
	switch cond.Operator {
	case sql.IsNullOperator:
		result = truthOf(core.IsNull(value))
	case sql.IsNotNullOperator:
		result = truthOf(!core.IsNull(value))
	case sql.LikeOperator:
		pattern := f.value(cond.Right)
		text, ok1 := value.(core.Text)
		pat, ok2 := pattern.(core.Text)
		if !ok1 || !ok2 {
			result = truthUnknown
		} else {
			result = truthOf(matchLike(string(text), string(pat)))
		}
	case sql.InOperator:
		result = f.evaluateIn(value, cond.InValues)
	default:
		cmp, ok := core.Compare(value, f.value(cond.Right))
		if !ok {
			result = truthUnknown
			break
		}
		switch cond.Operator {
		case sql.EqualsOperator:
			result = truthOf(cmp == 0)
		case sql.NotEqualsOperator:
			result = truthOf(cmp != 0)
		case sql.LessThanOperator:
			result = truthOf(cmp < 0)
		case sql.GreaterThanOperator:
			result = truthOf(cmp > 0)
		case sql.LessThanOrEqualOperator:
			result = truthOf(cmp <= 0)
		case sql.GreaterThanOrEqualOperator:
			result = truthOf(cmp >= 0)
		}
	}

	if cond.Negated {
		result = result.not()
	}
	return result
}

func (f *filter) evaluateIn(value core.Value, list []sql.Operand) truth {
	if core.IsNull(value) {
		return truthUnknown
	}
	result := truthFalse
	for _, o := range list {
		cmp, ok := core.Compare(value, f.value(o))
		if !ok {
			result = truthUnknown
			continue
		}
		if cmp == 0 {
			return truthTrue
		}
	}
	return result
}

// matchLike matches SQL LIKE patterns: % is any run, _ is one character.
// Matching ignores ASCII case.
func matchLike(value, pattern string) bool {
	v, p := []rune(value), []rune(pattern)
	vi, pi := 0, 0
	starP, starV := -1, 0
	for vi < len(v) {
		switch {
		case pi < len(p) && p[pi] == '%':
			starP, starV = pi, vi
			pi++
		case pi < len(p) && (p[pi] == '_' || foldASCII(p[pi]) == foldASCII(v[vi])):
			pi++
			vi++
		case starP >= 0:
			starV++
			pi, vi = starP+1, starV
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}

func foldASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// candidates returns the row ids to examine: an index lookup when the WHERE
// clause is a conjunction pinning every column of some index, otherwise a
// full scan in row id order.
func (f *filter) candidates(t *op.TableOp) []int64 {
	for _, logical := range f.where.LogicalOps {
		if logical != sql.LogicalAnd {
			return t.RowIDs()
		}
	}

	pinned := make(map[int]core.Value)
	for i, cond := range f.where.Conditions {
		if cond.Operator != sql.EqualsOperator || cond.Negated {
			continue
		}
		v := f.value(cond.Right)
		col := t.Table.Columns[f.cols[i]]
		// index keys hold values coerced to the column type
		if core.IsNull(v) || v.Kind() != col.Type.Kind() || v.Kind() == core.KindFloat64 {
			continue
		}
		pinned[f.cols[i]] = v
	}
	if len(pinned) == 0 {
		return t.RowIDs()
	}

	for _, idx := range t.Indexes() {
		cols := idx.Columns()
		values := make([]core.Value, len(cols))
		covered := true
		for i, c := range cols {
			v, ok := pinned[c]
			if !ok {
				covered = false
				break
			}
			values[i] = v
		}
		if covered {
			return idx.Lookup(values)
		}
	}
	return t.RowIDs()
}
