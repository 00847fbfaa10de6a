package db

import (
	"strings"

	"github.com/decentdb/decentdb/core"
	"github.com/decentdb/decentdb/sql"
)

// ResultColumn describes one column of a statement's result, fixed at prepare.
type ResultColumn struct {
	Name     string
	Kind     core.Kind
	DeclType string
}

type paramCheck func(v core.Value) error

// Plan is a parsed statement validated against the schema at prepare time.
type Plan struct {
	SQL        string
	Statement  sql.Statement
	Columns    []ResultColumn
	ParamCount int

	checks [][]paramCheck // per placeholder, 0-based
}

// IsQuery reports whether the statement produces rows.
func (p *Plan) IsQuery() bool {
	return p.Statement.Type() == sql.SelectStatementType
}

// Mutates reports whether executing the plan can change the database.
func (p *Plan) Mutates() bool {
	switch p.Statement.Type() {
	case sql.SelectStatementType, sql.BeginStatementType, sql.CommitStatementType, sql.RollbackStatementType:
		return false
	}
	return true
}

// CheckParam validates a value bound to the 1-based placeholder index.
func (p *Plan) CheckParam(index int, v core.Value) error {
	if index < 1 || index > p.ParamCount {
		return core.Errorf(core.CodeIndexOutOfRange, "parameter index %d out of range 1..%d", index, p.ParamCount)
	}
	if v == nil {
		return core.Errorf(core.CodeTypeMismatch, "parameter $%d: missing value", index)
	}
	for _, check := range p.checks[index-1] {
		if err := check(v); err != nil {
			return core.Errorf(core.CodeTypeMismatch, "parameter $%d: %s", index, core.MessageOf(err))
		}
	}
	return nil
}

type planner struct {
	engine *Engine
	plan   *Plan
}

// Prepare parses text and validates it against the current schema.
func (engine *Engine) Prepare(text string) (*Plan, error) {
	statement, params, err := sql.Parse(text)
	if err != nil {
		return nil, withSQL(err, text)
	}

	plan := &Plan{
		SQL:        text,
		Statement:  statement,
		ParamCount: params,
		checks:     make([][]paramCheck, params),
	}
	p := planner{engine: engine, plan: plan}

	switch s := statement.(type) {
	case sql.SelectStatement:
		err = p.planSelect(s)
	case sql.InsertStatement:
		err = p.planInsert(s)
	case sql.UpdateStatement:
		err = p.planUpdate(s)
	case sql.DeleteStatement:
		err = p.planDelete(s)
	}
	if err != nil {
		return nil, withSQL(err, text)
	}
	return plan, nil
}

func withSQL(err error, text string) error {
	e := core.Wrap(core.CodeInternal, err)
	if e.SQL == "" {
		e = &core.Error{Code: e.Code, Message: e.Message, SQL: text}
	}
	return e
}

func (p *planner) table(name string) (core.Table, error) {
	t, ok := p.engine.store.GetTable(name)
	if !ok {
		return core.Table{}, core.Errorf(core.CodeSchema, "no such table: %s", name)
	}
	return t.Table, nil
}

func column(table core.Table, name string) (core.Column, error) {
	i, ok := table.ColumnIndex(name)
	if !ok {
		return core.Column{}, core.Errorf(core.CodeSchema, "no such column: %s.%s", table.Name, name)
	}
	return table.Columns[i], nil
}

func (p *planner) addCheck(param int, check paramCheck) {
	p.plan.checks[param-1] = append(p.plan.checks[param-1], check)
}

// storable checks that v can be written to col.
func storable(col core.Column) paramCheck {
	return func(v core.Value) error {
		_, err := core.Coerce(v, col)
		return err
	}
}

func isNumericKind(k core.Kind) bool {
	return k == core.KindInt64 || k == core.KindFloat64 || k == core.KindDecimal
}

// comparableWith checks that v can be compared with values of col.
func comparableWith(col core.Column) paramCheck {
	return func(v core.Value) error {
		if core.IsNull(v) {
			return nil
		}
		want := col.Type.Kind()
		if v.Kind() == want || (isNumericKind(v.Kind()) && isNumericKind(want)) {
			return nil
		}
		return core.Errorf(core.CodeTypeMismatch, "cannot compare %s value with column %s %s", v.Kind(), col.Name, col.DeclType())
	}
}

func textOnly(v core.Value) error {
	if core.IsNull(v) || v.Kind() == core.KindText {
		return nil
	}
	return core.Errorf(core.CodeTypeMismatch, "LIKE pattern must be TEXT, got %s", v.Kind())
}

func intOnly(v core.Value) error {
	if core.IsNull(v) || v.Kind() == core.KindInt64 {
		return nil
	}
	return core.Errorf(core.CodeTypeMismatch, "LIMIT and OFFSET take INT64, got %s", v.Kind())
}

// operand registers check for a placeholder or applies it to a literal now.
func (p *planner) operand(o sql.Operand, check paramCheck) error {
	if o.IsParam() {
		p.addCheck(o.Param, check)
		return nil
	}
	return check(o.Literal)
}

func (p *planner) planWhere(table core.Table, where sql.WhereClause) error {
	for _, cond := range where.Conditions {
		col, err := column(table, cond.Column)
		if err != nil {
			return err
		}
		switch cond.Operator {
		case sql.IsNullOperator, sql.IsNotNullOperator:
		case sql.LikeOperator:
			if col.Type != core.TextType {
				return core.Errorf(core.CodeTypeMismatch, "LIKE requires a TEXT column, %s is %s", col.Name, col.DeclType())
			}
			if err := p.operand(cond.Right, textOnly); err != nil {
				return err
			}
		case sql.InOperator:
			for _, o := range cond.InValues {
				if err := p.operand(o, comparableWith(col)); err != nil {
					return err
				}
			}
		default:
			if err := p.operand(cond.Right, comparableWith(col)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *planner) planSelect(s sql.SelectStatement) error {
	table, err := p.table(s.Table)
	if err != nil {
		return err
	}

	if len(s.Aggregates) > 0 {
		for _, agg := range s.Aggregates {
			rc, err := aggregateColumn(table, agg)
			if err != nil {
				return err
			}
			p.plan.Columns = append(p.plan.Columns, rc)
		}
		if len(s.OrderBy) > 0 {
			return core.Errorf(core.CodeSchema, "ORDER BY is not supported with aggregates")
		}
	} else if len(s.Columns) == 0 {
		for _, col := range table.Columns {
			p.plan.Columns = append(p.plan.Columns, ResultColumn{Name: col.Name, Kind: col.Type.Kind(), DeclType: col.DeclType()})
		}
	} else {
		for _, name := range s.Columns {
			col, err := column(table, name)
			if err != nil {
				return err
			}
			p.plan.Columns = append(p.plan.Columns, ResultColumn{Name: col.Name, Kind: col.Type.Kind(), DeclType: col.DeclType()})
		}
	}

	if err := p.planWhere(table, s.Where); err != nil {
		return err
	}
	for _, ob := range s.OrderBy {
		if _, err := column(table, ob.Column); err != nil {
			return err
		}
	}
	for _, o := range []*sql.Operand{s.Limit, s.Offset} {
		if o != nil {
			if err := p.operand(*o, intOnly); err != nil {
				return err
			}
		}
	}
	return nil
}

func aggregateColumn(table core.Table, agg sql.AggregateExpr) (ResultColumn, error) {
	rc := ResultColumn{Name: agg.Name()}
	if agg.Column == "*" {
		if agg.Function != "COUNT" {
			return rc, core.Errorf(core.CodeSchema, "%s(*) is not supported", agg.Function)
		}
		rc.Kind, rc.DeclType = core.KindInt64, core.KindInt64.String()
		return rc, nil
	}

	col, err := column(table, agg.Column)
	if err != nil {
		return rc, err
	}
	switch agg.Function {
	case "COUNT":
		rc.Kind = core.KindInt64
	case "AVG":
		if !isNumericKind(col.Type.Kind()) {
			return rc, core.Errorf(core.CodeSchema, "AVG requires a numeric column, %s is %s", col.Name, col.DeclType())
		}
		rc.Kind = core.KindFloat64
	case "SUM":
		if !isNumericKind(col.Type.Kind()) {
			return rc, core.Errorf(core.CodeSchema, "SUM requires a numeric column, %s is %s", col.Name, col.DeclType())
		}
		rc.Kind = col.Type.Kind()
	default:
		rc.Kind = col.Type.Kind()
	}
	rc.DeclType = rc.Kind.String()
	if rc.Kind == col.Type.Kind() {
		rc.DeclType = col.DeclType()
	}
	return rc, nil
}

func (p *planner) planInsert(s sql.InsertStatement) error {
	table, err := p.table(s.Table)
	if err != nil {
		return err
	}

	cols := table.Columns
	if len(s.Columns) > 0 {
		cols = make([]core.Column, len(s.Columns))
		seen := make(map[string]bool)
		for i, name := range s.Columns {
			col, err := column(table, name)
			if err != nil {
				return err
			}
			if seen[strings.ToLower(col.Name)] {
				return core.Errorf(core.CodeSchema, "column %s specified more than once", col.Name)
			}
			seen[strings.ToLower(col.Name)] = true
			cols[i] = col
		}
	}

	for _, row := range s.Rows {
		if len(row) != len(cols) {
			return core.Errorf(core.CodeSchema, "table %s: %d values for %d columns", table.Name, len(row), len(cols))
		}
		for i, o := range row {
			if err := p.operand(o, storable(cols[i])); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *planner) planUpdate(s sql.UpdateStatement) error {
	table, err := p.table(s.Table)
	if err != nil {
		return err
	}
	for _, set := range s.Updates {
		col, err := column(table, set.Column)
		if err != nil {
			return err
		}
		if err := p.operand(set.Value, storable(col)); err != nil {
			return err
		}
	}
	return p.planWhere(table, s.Where)
}

func (p *planner) planDelete(s sql.DeleteStatement) error {
	table, err := p.table(s.Table)
	if err != nil {
		return err
	}
	return p.planWhere(table, s.Where)
}
