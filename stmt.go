package decentdb

import (
	"github.com/decentdb/decentdb/core"
	"github.com/decentdb/decentdb/db"
)

// State is the position of a statement in its lifecycle.
type State int

const (
	StatePrepared State = iota
	StateHasRow
	StateDone
	StateError
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StatePrepared:
		return "prepared"
	case StateHasRow:
		return "has row"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	case StateFinalized:
		return "finalized"
	}
	return "unknown"
}

// Stmt is a prepared statement. It is owned by one caller at a time and
// does no locking of its own state.
//
// Bindings use 1-based placeholder numbers ($1 is index 1); column accessors
// use 0-based column positions.
type Stmt struct {
	db    *DB
	plan  *db.Plan
	state State

	params []core.Value // nil entries are unbound, read as NULL

	rows         [][]core.Value
	cursor       int
	row          []core.Value
	rowsAffected int64
	lastInsertID int64

	// current row as views; text and blob bytes live in arena
	views      []core.ValueView
	arena      []byte
	generation uint64

	errs ErrorContext
}

func newStmt(d *DB, plan *db.Plan) *Stmt {
	return &Stmt{
		db:     d,
		plan:   plan,
		params: make([]core.Value, plan.ParamCount),
		views:  make([]core.ValueView, len(plan.Columns)),
	}
}

// fail records err on the statement and mirrors it into the database slot.
func (s *Stmt) fail(err error) error {
	err = s.errs.set(err)
	s.db.errs.set(err)
	return err
}

func (s *Stmt) usable() error {
	if s.state == StateFinalized {
		return core.Errorf(core.CodeInvalidState, "statement is finalized")
	}
	return nil
}

func (s *Stmt) State() State {
	return s.state
}

func (s *Stmt) SQL() string {
	return s.plan.SQL
}

// Errors is the statement's own error slot.
func (s *Stmt) Errors() *ErrorContext {
	return &s.errs
}

// ParamCount is the highest placeholder number in the statement.
func (s *Stmt) ParamCount() int {
	return s.plan.ParamCount
}

// Bind sets placeholder index to v. The value is checked against the
// column or kind the placeholder is compared with or stored into, so type
// errors surface here rather than at Step. Binding while a row is current
// is rejected; Reset first.
func (s *Stmt) Bind(index int, v core.Value) error {
	if err := s.usable(); err != nil {
		return s.fail(err)
	}
	if s.state == StateHasRow {
		return s.fail(core.Errorf(core.CodeInvalidState, "reset the statement before binding"))
	}
	if v == nil {
		v = core.NewNull()
	}
	if err := s.plan.CheckParam(index, v); err != nil {
		return s.fail(err)
	}
	s.params[index-1] = v
	return nil
}

func (s *Stmt) BindNull(index int) error {
	return s.Bind(index, core.NewNull())
}

func (s *Stmt) BindInt64(index int, v int64) error {
	return s.Bind(index, core.NewInt64(v))
}

func (s *Stmt) BindBool(index int, v bool) error {
	return s.Bind(index, core.NewBool(v))
}

func (s *Stmt) BindFloat64(index int, v float64) error {
	return s.Bind(index, core.NewFloat64(v))
}

func (s *Stmt) BindText(index int, v string) error {
	return s.Bind(index, core.NewTextString(v))
}

// BindBlob copies v.
func (s *Stmt) BindBlob(index int, v []byte) error {
	return s.Bind(index, core.NewBlob(v))
}

// BindDecimal binds unscaled / 10^scale exactly as given.
func (s *Stmt) BindDecimal(index int, unscaled int64, scale int) error {
	d, err := core.NewDecimal(unscaled, scale)
	if err != nil {
		return s.fail(err)
	}
	return s.Bind(index, d)
}

// ClearBindings reverts every placeholder to NULL without changing state.
func (s *Stmt) ClearBindings() error {
	if err := s.usable(); err != nil {
		return s.fail(err)
	}
	clear(s.params)
	return nil
}

// Reset returns the statement to Prepared, dropping any result rows.
// Bindings are kept.
func (s *Stmt) Reset() error {
	if err := s.usable(); err != nil {
		return s.fail(err)
	}
	s.generation++
	s.state = StatePrepared
	s.rows = nil
	s.cursor = 0
	s.row = nil
	s.rowsAffected = 0
	s.lastInsertID = 0
	return nil
}

// Step advances the statement. The first step executes it; a query then
// yields one row per step (true while a row is current). Other statements
// run once and report false. A Done statement stays Done until Reset; a
// statement in Error must be Reset before stepping again.
func (s *Stmt) Step() (bool, error) {
	if err := s.usable(); err != nil {
		return false, s.fail(err)
	}
	s.generation++

	switch s.state {
	case StateError:
		return false, s.fail(core.Errorf(core.CodeInvalidState, "statement failed; reset it before stepping again"))
	case StateDone:
		return false, nil
	case StateHasRow:
		return s.advance(), nil
	}

	if err := s.execute(); err != nil {
		s.state = StateError
		s.row = nil
		return false, s.fail(err)
	}
	if !s.plan.IsQuery() {
		s.state = StateDone
		return false, nil
	}
	return s.advance(), nil
}

func (s *Stmt) execute() error {
	if err := s.db.lock(); err != nil {
		return err
	}
	defer s.db.mu.Unlock()

	result, err := s.db.engine.Execute(s.plan, s.params)
	if err != nil {
		return err
	}

	switch r := result.(type) {
	case db.QueryResult:
		s.rows = r.Rows
		s.cursor = 0
	case db.CommitResult:
		s.rowsAffected += r.RowsAffected
		if r.RowsAffected > 0 {
			s.lastInsertID = r.LastInsertID
		}
	}
	return nil
}

// advance moves to the next result row and reloads the view buffers.
func (s *Stmt) advance() bool {
	if s.cursor >= len(s.rows) {
		s.state = StateDone
		s.row = nil
		s.rows = nil
		return false
	}
	s.row = s.rows[s.cursor]
	s.cursor++
	s.state = StateHasRow
	s.loadViews()
	return true
}

func (s *Stmt) loadViews() {
	size := 0
	for _, v := range s.row {
		size += core.ByteLen(v)
	}
	// sized up front so views taken within one row never move
	if cap(s.arena) < size {
		s.arena = make([]byte, 0, size)
	}
	arena := s.arena[:0]
	if len(s.views) != len(s.row) {
		s.views = make([]core.ValueView, len(s.row))
	}
	for i, v := range s.row {
		s.views[i], arena = core.AppendView(arena, v)
	}
	s.arena = arena
}

// RowsAffected counts rows changed by this execution; Reset zeroes it.
func (s *Stmt) RowsAffected() int64 {
	return s.rowsAffected
}

// LastInsertID is the INTEGER PRIMARY KEY (or row id) of the last row
// inserted by this execution.
func (s *Stmt) LastInsertID() int64 {
	return s.lastInsertID
}

// release drops everything the statement holds.
func (s *Stmt) release() {
	s.generation++
	s.state = StateFinalized
	s.plan = &db.Plan{SQL: s.plan.SQL}
	s.params = nil
	s.rows = nil
	s.row = nil
	s.views = nil
	s.arena = nil
}

// Finalize releases the statement. Calling it again is a no-op; any other
// call afterwards fails with InvalidState.
func (s *Stmt) Finalize() error {
	if s.state == StateFinalized {
		return nil
	}
	s.release()
	s.db.forget(s)
	return nil
}
