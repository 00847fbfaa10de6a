package main

/*
#include <stdlib.h>
#include "handles.h"
*/
import "C"
import (
	"runtime/cgo"
	"unsafe"

	"github.com/decentdb/decentdb"
	"github.com/decentdb/decentdb/core"
)

// database is the Go side of a decentdb_db handle.
type database struct {
	db      *decentdb.DB // nil when open failed
	errs    *decentdb.ErrorContext
	message    *C.char // last string returned by decentdb_last_error_message
	messageSeq uint64  // error Seq that message was built from
	handle     cgo.Handle
}

// statement is the Go side of a decentdb_stmt handle. The current row is
// copied into C memory on demand; seq counts every call that moves the
// statement so a stale copy is never served.
type statement struct {
	owner  *database
	stmt   *decentdb.Stmt
	handle cgo.Handle

	names []*C.char

	views    *C.decentdb_value_view
	viewCap  int
	arena    unsafe.Pointer
	arenaCap int

	seq    uint64
	filled uint64
	ready  bool
	count  int
}

func dbOf(p *C.decentdb_db) *database {
	if p == nil || p.handle == 0 {
		return nil
	}
	d, _ := cgo.Handle(p.handle).Value().(*database)
	return d
}

func stmtOf(p *C.decentdb_stmt) *statement {
	if p == nil || p.handle == 0 {
		return nil
	}
	st, _ := cgo.Handle(p.handle).Value().(*statement)
	return st
}

var invalidHandle = C.int(core.CodeInvalidState)

// fail records an error raised by this layer and returns its code.
func (d *database) fail(err error) C.int {
	return C.int(core.CodeOf(d.errs.Record(err)))
}

// code returns the code of an error the statement already recorded.
func code(err error) C.int {
	return C.int(core.CodeOf(err))
}

//export decentdb_open
func decentdb_open(path, options *C.char) *C.decentdb_db {
	var location, opts string
	if path != nil {
		location = C.GoString(path)
	}
	if options != nil {
		opts = C.GoString(options)
	}

	d := &database{errs: &decentdb.ErrorContext{}}
	if db, err := decentdb.Open(location, opts); err != nil {
		d.errs.Record(err)
	} else {
		d.db = db
		d.errs = db.Errors()
	}

	p := (*C.decentdb_db)(C.malloc(C.size_t(unsafe.Sizeof(C.decentdb_db{}))))
	if p == nil {
		if d.db != nil {
			d.db.Close()
		}
		return nil
	}
	d.handle = cgo.NewHandle(d)
	p.handle = C.uintptr_t(d.handle)
	return p
}

//export decentdb_close
func decentdb_close(p *C.decentdb_db) C.int {
	d := dbOf(p)
	if d == nil {
		return invalidHandle
	}

	var rc C.int
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			rc = code(err)
		}
	}
	if d.message != nil {
		C.free(unsafe.Pointer(d.message))
	}
	d.handle.Delete()
	p.handle = 0
	C.free(unsafe.Pointer(p))
	return rc
}

//export decentdb_last_error_code
func decentdb_last_error_code(p *C.decentdb_db) C.int {
	d := dbOf(p)
	if d == nil {
		return invalidHandle
	}
	return C.int(d.errs.Code())
}

//export decentdb_last_error_message
func decentdb_last_error_message(p *C.decentdb_db) *C.char {
	d := dbOf(p)
	if d == nil {
		return nil
	}
	seq := d.errs.Seq()
	if d.message != nil && seq == d.messageSeq {
		return d.message
	}
	if d.message != nil {
		C.free(unsafe.Pointer(d.message))
	}
	d.message = C.CString(d.errs.Message())
	d.messageSeq = seq
	return d.message
}

//export decentdb_prepare
func decentdb_prepare(p *C.decentdb_db, sqlText *C.char, out **C.decentdb_stmt) C.int {
	d := dbOf(p)
	if d == nil {
		return invalidHandle
	}
	if out == nil {
		return d.fail(core.Errorf(core.CodeInvalidState, "out_stmt is NULL"))
	}
	*out = nil
	if d.db == nil {
		return d.fail(core.Errorf(core.CodeInvalidState, "database is not open"))
	}
	if sqlText == nil {
		return d.fail(core.Errorf(core.CodeSyntax, "syntax error: SQL text is NULL"))
	}

	stmt, err := d.db.Prepare(C.GoString(sqlText))
	if err != nil {
		return code(err)
	}

	sp := (*C.decentdb_stmt)(C.malloc(C.size_t(unsafe.Sizeof(C.decentdb_stmt{}))))
	if sp == nil {
		stmt.Finalize()
		return d.fail(core.Errorf(core.CodeInternal, "out of memory"))
	}
	st := &statement{owner: d, stmt: stmt}
	st.handle = cgo.NewHandle(st)
	sp.handle = C.uintptr_t(st.handle)
	*out = sp
	return 0
}

func bind(sp *C.decentdb_stmt, index C.int, v core.Value) C.int {
	st := stmtOf(sp)
	if st == nil {
		return invalidHandle
	}
	if err := st.stmt.Bind(int(index), v); err != nil {
		return code(err)
	}
	return 0
}

//export decentdb_bind_null
func decentdb_bind_null(sp *C.decentdb_stmt, index C.int) C.int {
	return bind(sp, index, core.NewNull())
}

//export decentdb_bind_int64
func decentdb_bind_int64(sp *C.decentdb_stmt, index C.int, v C.int64_t) C.int {
	return bind(sp, index, core.NewInt64(int64(v)))
}

//export decentdb_bind_bool
func decentdb_bind_bool(sp *C.decentdb_stmt, index C.int, v C.int) C.int {
	return bind(sp, index, core.NewBool(v != 0))
}

//export decentdb_bind_float64
func decentdb_bind_float64(sp *C.decentdb_stmt, index C.int, v C.double) C.int {
	return bind(sp, index, core.NewFloat64(float64(v)))
}

// decentdb_bind_text copies byteLen bytes; a negative length reads up to the
// first NUL.
//
//export decentdb_bind_text
func decentdb_bind_text(sp *C.decentdb_stmt, index C.int, utf8 *C.char, byteLen C.int) C.int {
	st := stmtOf(sp)
	if st == nil {
		return invalidHandle
	}
	switch {
	case utf8 == nil && byteLen > 0:
		return st.owner.fail(core.Errorf(core.CodeTypeMismatch, "parameter $%d: text pointer is NULL", int(index)))
	case utf8 == nil:
		return bind(sp, index, core.NewTextString(""))
	case byteLen < 0:
		return bind(sp, index, core.NewTextString(C.GoString(utf8)))
	}
	return bind(sp, index, core.NewTextString(C.GoStringN(utf8, byteLen)))
}

//export decentdb_bind_blob
func decentdb_bind_blob(sp *C.decentdb_stmt, index C.int, data *C.uint8_t, byteLen C.int) C.int {
	st := stmtOf(sp)
	if st == nil {
		return invalidHandle
	}
	if byteLen < 0 || (data == nil && byteLen > 0) {
		return st.owner.fail(core.Errorf(core.CodeTypeMismatch, "parameter $%d: invalid blob buffer", int(index)))
	}
	if byteLen == 0 {
		return bind(sp, index, core.NewBlob(nil))
	}
	return bind(sp, index, core.NewBlob(C.GoBytes(unsafe.Pointer(data), byteLen)))
}

//export decentdb_bind_decimal
func decentdb_bind_decimal(sp *C.decentdb_stmt, index C.int, unscaled C.int64_t, scale C.int) C.int {
	st := stmtOf(sp)
	if st == nil {
		return invalidHandle
	}
	if err := st.stmt.BindDecimal(int(index), int64(unscaled), int(scale)); err != nil {
		return code(err)
	}
	return 0
}

//export decentdb_reset
func decentdb_reset(sp *C.decentdb_stmt) C.int {
	st := stmtOf(sp)
	if st == nil {
		return invalidHandle
	}
	st.seq++
	if err := st.stmt.Reset(); err != nil {
		return code(err)
	}
	return 0
}

//export decentdb_clear_bindings
func decentdb_clear_bindings(sp *C.decentdb_stmt) C.int {
	st := stmtOf(sp)
	if st == nil {
		return invalidHandle
	}
	if err := st.stmt.ClearBindings(); err != nil {
		return code(err)
	}
	return 0
}

// decentdb_step returns 1 when a row is current, 0 when done and the
// negated error code on failure.
//
//export decentdb_step
func decentdb_step(sp *C.decentdb_stmt) C.int {
	st := stmtOf(sp)
	if st == nil {
		return -invalidHandle
	}
	st.seq++
	hasRow, err := st.stmt.Step()
	if err != nil {
		return -code(err)
	}
	if hasRow {
		return 1
	}
	return 0
}

//export decentdb_column_count
func decentdb_column_count(sp *C.decentdb_stmt) C.int {
	st := stmtOf(sp)
	if st == nil {
		return 0
	}
	return C.int(st.stmt.ColumnCount())
}

// decentdb_column_name returns a string owned by the statement, valid until
// it is finalized.
//
//export decentdb_column_name
func decentdb_column_name(sp *C.decentdb_stmt, col C.int) *C.char {
	st := stmtOf(sp)
	if st == nil {
		return nil
	}
	if st.names == nil {
		st.names = make([]*C.char, st.stmt.ColumnCount())
	}
	i := int(col)
	name, err := st.stmt.ColumnName(i)
	if err != nil {
		return nil
	}
	if st.names[i] == nil {
		st.names[i] = C.CString(name)
	}
	return st.names[i]
}

//export decentdb_column_type
func decentdb_column_type(sp *C.decentdb_stmt, col C.int) C.int {
	st := stmtOf(sp)
	if st == nil {
		return -1
	}
	kind, err := st.stmt.ColumnType(int(col))
	if err != nil {
		return -1
	}
	return C.int(kind)
}

// materialize copies the current row into C memory once per position.
// Text and blob bytes are NUL-terminated and never NULL for non-null values.
func (st *statement) materialize() (int, error) {
	if st.ready && st.filled == st.seq {
		return st.count, nil
	}
	view, err := st.stmt.RowView()
	if err != nil {
		return 0, err
	}
	values, err := view.Values()
	if err != nil {
		return 0, err
	}

	n := len(values)
	if n > st.viewCap {
		if st.views != nil {
			C.free(unsafe.Pointer(st.views))
		}
		st.views = (*C.decentdb_value_view)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.decentdb_value_view{}))))
		if st.views == nil {
			st.viewCap = 0
			return 0, st.owner.errs.Record(core.Errorf(core.CodeInternal, "out of memory"))
		}
		st.viewCap = n
	}

	need := 0
	for _, v := range values {
		if v.Kind == core.KindText || v.Kind == core.KindBlob {
			need += len(v.Bytes) + 1
		}
	}
	if need > st.arenaCap {
		if st.arena != nil {
			C.free(st.arena)
		}
		st.arena = C.malloc(C.size_t(need))
		if st.arena == nil {
			st.arenaCap = 0
			return 0, st.owner.errs.Record(core.Errorf(core.CodeInternal, "out of memory"))
		}
		st.arenaCap = need
	}

	var arena []byte
	if need > 0 {
		arena = unsafe.Slice((*byte)(st.arena), need)
	}
	var dst []C.decentdb_value_view
	if n > 0 {
		dst = unsafe.Slice(st.views, n)
	}
	off := 0
	for i, v := range values {
		cv := C.decentdb_value_view{
			kind:          C.int(v.Kind),
			int64_val:     C.int64_t(v.Int64),
			float64_val:   C.double(v.Float64),
			decimal_scale: C.int(v.DecimalScale),
		}
		if v.IsNull {
			cv.is_null = 1
		}
		if !v.IsNull && (v.Kind == core.KindText || v.Kind == core.KindBlob) {
			copy(arena[off:], v.Bytes)
			arena[off+len(v.Bytes)] = 0
			cv.bytes = (*C.uint8_t)(unsafe.Pointer(&arena[off]))
			cv.bytes_len = C.int(len(v.Bytes))
			off += len(v.Bytes) + 1
		}
		dst[i] = cv
	}

	st.count = n
	st.filled = st.seq
	st.ready = true
	return n, nil
}

// column returns the C copy of column col of the current row.
func (st *statement) column(col C.int) (*C.decentdb_value_view, error) {
	n, err := st.materialize()
	if err != nil {
		return nil, err
	}
	i := int(col)
	if i < 0 || i >= n {
		return nil, st.owner.errs.Record(core.Errorf(core.CodeIndexOutOfRange, "column index %d out of range 0..%d", i, n-1))
	}
	return &unsafe.Slice(st.views, n)[i], nil
}

//export decentdb_column_is_null
func decentdb_column_is_null(sp *C.decentdb_stmt, col C.int) C.int {
	st := stmtOf(sp)
	if st == nil {
		return -1
	}
	v, err := st.column(col)
	if err != nil {
		return -1
	}
	return v.is_null
}

// decentdb_column_int64 returns INT64 values, BOOL as 0/1 and the unscaled
// integer of a DECIMAL.
//
//export decentdb_column_int64
func decentdb_column_int64(sp *C.decentdb_stmt, col C.int) C.int64_t {
	st := stmtOf(sp)
	if st == nil {
		return 0
	}
	v, err := st.column(col)
	if err != nil {
		return 0
	}
	return v.int64_val
}

//export decentdb_column_float64
func decentdb_column_float64(sp *C.decentdb_stmt, col C.int) C.double {
	st := stmtOf(sp)
	if st == nil {
		return 0
	}
	v, err := st.column(col)
	if err != nil {
		return 0
	}
	return v.float64_val
}

// decentdb_column_text returns NUL-terminated bytes owned by the statement,
// valid until the next step, reset or finalize. NULL is returned for a NULL
// value.
//
//export decentdb_column_text
func decentdb_column_text(sp *C.decentdb_stmt, col C.int, outLen *C.int) *C.char {
	return (*C.char)(unsafe.Pointer(columnBytes(sp, col, outLen)))
}

//export decentdb_column_blob
func decentdb_column_blob(sp *C.decentdb_stmt, col C.int, outLen *C.int) *C.uint8_t {
	return columnBytes(sp, col, outLen)
}

func columnBytes(sp *C.decentdb_stmt, col C.int, outLen *C.int) *C.uint8_t {
	if outLen != nil {
		*outLen = 0
	}
	st := stmtOf(sp)
	if st == nil {
		return nil
	}
	v, err := st.column(col)
	if err != nil || v.is_null != 0 {
		return nil
	}
	if outLen != nil {
		*outLen = v.bytes_len
	}
	return (*C.uint8_t)(unsafe.Pointer(v.bytes))
}

//export decentdb_column_decimal_unscaled
func decentdb_column_decimal_unscaled(sp *C.decentdb_stmt, col C.int) C.int64_t {
	return decentdb_column_int64(sp, col)
}

//export decentdb_column_decimal_scale
func decentdb_column_decimal_scale(sp *C.decentdb_stmt, col C.int) C.int {
	st := stmtOf(sp)
	if st == nil {
		return 0
	}
	v, err := st.column(col)
	if err != nil {
		return 0
	}
	return v.decimal_scale
}

// decentdb_row_view exposes the current row. The array and the bytes it
// points to are owned by the statement and valid until the next step,
// reset or finalize.
//
//export decentdb_row_view
func decentdb_row_view(sp *C.decentdb_stmt, out **C.decentdb_value_view, outCount *C.int) C.int {
	st := stmtOf(sp)
	if st == nil {
		return invalidHandle
	}
	if out == nil || outCount == nil {
		return st.owner.fail(core.Errorf(core.CodeInvalidState, "row view output pointers are NULL"))
	}
	*out, *outCount = nil, 0

	n, err := st.materialize()
	if err != nil {
		return code(err)
	}
	*out = st.views
	*outCount = C.int(n)
	return 0
}

// decentdb_step_with_params_row_view resets the statement, binds inCount
// parameters from in, steps once and exposes the row. It returns 0 on
// success and -1 on failure; the error is in the database slot.
//
//export decentdb_step_with_params_row_view
func decentdb_step_with_params_row_view(sp *C.decentdb_stmt, in *C.decentdb_value_view, inCount C.int,
	out **C.decentdb_value_view, outCount *C.int, outHasRow *C.int) C.int {
	st := stmtOf(sp)
	if st == nil {
		return -1
	}
	if out == nil || outCount == nil || outHasRow == nil {
		st.owner.fail(core.Errorf(core.CodeInvalidState, "row view output pointers are NULL"))
		return -1
	}
	*out, *outCount, *outHasRow = nil, 0, 0
	if inCount < 0 || (in == nil && inCount > 0) {
		st.owner.fail(core.Errorf(core.CodeIndexOutOfRange, "invalid parameter array"))
		return -1
	}

	params := make([]core.ValueView, int(inCount))
	if inCount > 0 {
		for i, cv := range unsafe.Slice(in, int(inCount)) {
			params[i] = fromC(cv)
		}
	}

	st.seq++
	_, hasRow, err := st.stmt.StepWithViews(params)
	if err != nil {
		return -1
	}
	if !hasRow {
		return 0
	}

	n, err := st.materialize()
	if err != nil {
		return -1
	}
	*out = st.views
	*outCount = C.int(n)
	*outHasRow = 1
	return 0
}

// fromC reads a caller-owned view. Bytes alias C memory; the statement
// copies them before binding.
func fromC(cv C.decentdb_value_view) core.ValueView {
	view := core.ValueView{
		Kind:         core.Kind(cv.kind),
		IsNull:       cv.is_null != 0,
		Int64:        int64(cv.int64_val),
		Float64:      float64(cv.float64_val),
		DecimalScale: int(cv.decimal_scale),
	}
	if cv.bytes != nil && cv.bytes_len > 0 {
		view.Bytes = unsafe.Slice((*byte)(unsafe.Pointer(cv.bytes)), int(cv.bytes_len))
	}
	return view
}

//export decentdb_rows_affected
func decentdb_rows_affected(sp *C.decentdb_stmt) C.int64_t {
	st := stmtOf(sp)
	if st == nil {
		return 0
	}
	return C.int64_t(st.stmt.RowsAffected())
}

//export decentdb_last_insert_id
func decentdb_last_insert_id(sp *C.decentdb_stmt) C.int64_t {
	st := stmtOf(sp)
	if st == nil {
		return 0
	}
	return C.int64_t(st.stmt.LastInsertID())
}

//export decentdb_finalize
func decentdb_finalize(sp *C.decentdb_stmt) {
	st := stmtOf(sp)
	if st == nil {
		return
	}
	st.stmt.Finalize()
	for _, name := range st.names {
		if name != nil {
			C.free(unsafe.Pointer(name))
		}
	}
	if st.views != nil {
		C.free(unsafe.Pointer(st.views))
	}
	if st.arena != nil {
		C.free(st.arena)
	}
	st.handle.Delete()
	sp.handle = 0
	C.free(unsafe.Pointer(sp))
}

//export decentdb_checkpoint
func decentdb_checkpoint(p *C.decentdb_db) C.int {
	d := dbOf(p)
	if d == nil {
		return invalidHandle
	}
	if d.db == nil {
		return d.fail(core.Errorf(core.CodeInvalidState, "database is not open"))
	}
	if err := d.db.Checkpoint(); err != nil {
		return code(err)
	}
	return 0
}

//export decentdb_free
func decentdb_free(ptr unsafe.Pointer) {
	C.free(ptr)
}

//export decentdb_list_tables_json
func decentdb_list_tables_json(p *C.decentdb_db, outLen *C.int) *C.char {
	return snapshot(p, outLen, func(db *decentdb.DB) (*decentdb.Buffer, error) {
		return db.ListTablesJSON()
	})
}

//export decentdb_get_table_columns_json
func decentdb_get_table_columns_json(p *C.decentdb_db, table *C.char, outLen *C.int) *C.char {
	return snapshot(p, outLen, func(db *decentdb.DB) (*decentdb.Buffer, error) {
		if table == nil {
			return nil, core.Errorf(core.CodeSchema, "table name is NULL")
		}
		return db.TableColumnsJSON(C.GoString(table))
	})
}

//export decentdb_list_indexes_json
func decentdb_list_indexes_json(p *C.decentdb_db, outLen *C.int) *C.char {
	return snapshot(p, outLen, func(db *decentdb.DB) (*decentdb.Buffer, error) {
		return db.ListIndexesJSON()
	})
}

// snapshot copies a schema buffer into NUL-terminated C memory the caller
// releases with decentdb_free.
func snapshot(p *C.decentdb_db, outLen *C.int, build func(*decentdb.DB) (*decentdb.Buffer, error)) *C.char {
	if outLen != nil {
		*outLen = 0
	}
	d := dbOf(p)
	if d == nil {
		return nil
	}
	if d.db == nil {
		d.fail(core.Errorf(core.CodeInvalidState, "database is not open"))
		return nil
	}

	buf, err := build(d.db)
	if err != nil {
		d.fail(err)
		return nil
	}
	defer buf.Release()
	data, err := buf.Bytes()
	if err != nil {
		d.fail(err)
		return nil
	}

	out := C.malloc(C.size_t(len(data) + 1))
	if out == nil {
		d.fail(core.Errorf(core.CodeInternal, "out of memory"))
		return nil
	}
	dst := unsafe.Slice((*byte)(out), len(data)+1)
	copy(dst, data)
	dst[len(data)] = 0
	if outLen != nil {
		*outLen = C.int(len(data))
	}
	return (*C.char)(out)
}

func main() {}
