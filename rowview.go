package decentdb

import (
	"github.com/decentdb/decentdb/core"
)

// RowView borrows the current row of a statement. It is valid until the
// statement is stepped, reset or finalized; after that every accessor fails
// with InvalidState. Views returned by At and Values alias statement buffers
// and must not be modified or kept past the row.
type RowView struct {
	stmt       *Stmt
	generation uint64
}

var errRowViewInvalidated = core.Errorf(core.CodeInvalidState, "row view invalidated")

// RowView returns a view of the current row; InvalidState unless a row is
// current.
func (s *Stmt) RowView() (RowView, error) {
	if err := s.usable(); err != nil {
		return RowView{}, s.fail(err)
	}
	if s.state != StateHasRow {
		return RowView{}, s.fail(core.Errorf(core.CodeInvalidState, "no current row"))
	}
	return RowView{stmt: s, generation: s.generation}, nil
}

// Valid reports whether the row the view was taken on is still current.
func (r RowView) Valid() bool {
	return r.stmt != nil && r.stmt.state == StateHasRow && r.stmt.generation == r.generation
}

func (r RowView) check() error {
	if r.Valid() {
		return nil
	}
	if r.stmt != nil {
		return r.stmt.fail(errRowViewInvalidated)
	}
	return errRowViewInvalidated
}

func (r RowView) Len() (int, error) {
	if err := r.check(); err != nil {
		return 0, err
	}
	return len(r.stmt.views), nil
}

// Values returns the borrowed view array, one element per column.
func (r RowView) Values() ([]core.ValueView, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.stmt.views, nil
}

func (r RowView) At(i int) (core.ValueView, error) {
	if err := r.check(); err != nil {
		return core.ValueView{}, err
	}
	if i < 0 || i >= len(r.stmt.views) {
		return core.ValueView{}, r.stmt.fail(core.Errorf(core.CodeIndexOutOfRange, "column index %d out of range 0..%d", i, len(r.stmt.views)-1))
	}
	return r.stmt.views[i], nil
}

// Value decodes column i into an owned value that outlives the view.
func (r RowView) Value(i int) (core.Value, error) {
	view, err := r.At(i)
	if err != nil {
		return nil, err
	}
	return core.FromView(view)
}

// Copy decodes the whole row into owned values.
func (r RowView) Copy() ([]core.Value, error) {
	views, err := r.Values()
	if err != nil {
		return nil, err
	}
	row := make([]core.Value, len(views))
	for i, view := range views {
		if row[i], err = core.FromView(view); err != nil {
			return nil, err
		}
	}
	return row, nil
}
