package decentdb

import (
	"github.com/decentdb/decentdb/core"
)

// StepWithParams resets the statement, clears its bindings, binds params[i]
// to placeholder i+1 and steps once. The outcome is one of:
//
//	(view, true, nil)          a row is current
//	(RowView{}, false, nil)    the statement is done
//	(RowView{}, false, err)    binding or execution failed
//
// When a bind fails nothing is executed and the statement is left Prepared
// with no bindings.
func (s *Stmt) StepWithParams(params []core.Value) (RowView, bool, error) {
	if err := s.Reset(); err != nil {
		return RowView{}, false, err
	}
	clear(s.params)

	for i, v := range params {
		if err := s.Bind(i+1, v); err != nil {
			clear(s.params)
			return RowView{}, false, err
		}
	}

	hasRow, err := s.Step()
	if err != nil || !hasRow {
		return RowView{}, false, err
	}
	view, err := s.RowView()
	if err != nil {
		return RowView{}, false, err
	}
	return view, true, nil
}

// StepWithViews is StepWithParams for callers that hold boundary views.
// The views are decoded and copied before anything is bound.
func (s *Stmt) StepWithViews(views []core.ValueView) (RowView, bool, error) {
	if err := s.usable(); err != nil {
		return RowView{}, false, s.fail(err)
	}
	params := make([]core.Value, len(views))
	for i, view := range views {
		v, err := core.FromView(view)
		if err != nil {
			return RowView{}, false, s.fail(core.Errorf(core.CodeTypeMismatch, "parameter $%d: %s", i+1, core.MessageOf(err)))
		}
		params[i] = v
	}
	return s.StepWithParams(params)
}
