package main

/*
#include <stdlib.h>
#include "handles.h"
*/
import "C"
import (
	"unsafe"
)

// Go-typed wrappers over the exported ABI, used by the package tests.

func goOpen(path, options string) *C.decentdb_db {
	cp, co := C.CString(path), C.CString(options)
	defer C.free(unsafe.Pointer(cp))
	defer C.free(unsafe.Pointer(co))
	return decentdb_open(cp, co)
}

func goLastError(p *C.decentdb_db) (int, string) {
	return int(decentdb_last_error_code(p)), C.GoString(decentdb_last_error_message(p))
}

// lastErrorPointer is the address of the message string, for identity checks.
func lastErrorPointer(p *C.decentdb_db) uintptr {
	return uintptr(unsafe.Pointer(decentdb_last_error_message(p)))
}

func goPrepare(p *C.decentdb_db, sql string) (*C.decentdb_stmt, int) {
	cs := C.CString(sql)
	defer C.free(unsafe.Pointer(cs))
	var st *C.decentdb_stmt
	rc := decentdb_prepare(p, cs, &st)
	return st, int(rc)
}

func goBindText(st *C.decentdb_stmt, index int, s string) int {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return int(decentdb_bind_text(st, C.int(index), cs, C.int(len(s))))
}

func goBindBlob(st *C.decentdb_stmt, index int, b []byte) int {
	if len(b) == 0 {
		return int(decentdb_bind_blob(st, C.int(index), nil, 0))
	}
	p := C.CBytes(b)
	defer C.free(p)
	return int(decentdb_bind_blob(st, C.int(index), (*C.uint8_t)(p), C.int(len(b))))
}

func goColumnText(st *C.decentdb_stmt, col int) (string, bool) {
	var n C.int
	p := decentdb_column_text(st, C.int(col), &n)
	if p == nil {
		return "", false
	}
	return C.GoStringN(p, n), true
}

func goColumnBlob(st *C.decentdb_stmt, col int) []byte {
	var n C.int
	p := decentdb_column_blob(st, C.int(col), &n)
	if p == nil {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(p), n)
}

// goView is a Go copy of one decentdb_value_view.
type goView struct {
	Kind   int
	IsNull bool
	Int64  int64
	Float  float64
	Bytes  []byte
	Scale  int
}

func viewsOf(p *C.decentdb_value_view, n C.int) []goView {
	if p == nil || n == 0 {
		return nil
	}
	out := make([]goView, int(n))
	for i, cv := range unsafe.Slice(p, int(n)) {
		out[i] = goView{
			Kind:   int(cv.kind),
			IsNull: cv.is_null != 0,
			Int64:  int64(cv.int64_val),
			Float:  float64(cv.float64_val),
			Scale:  int(cv.decimal_scale),
		}
		if cv.bytes != nil {
			out[i].Bytes = C.GoBytes(unsafe.Pointer(cv.bytes), cv.bytes_len)
		}
	}
	return out
}

func goRowView(st *C.decentdb_stmt) ([]goView, int) {
	var p *C.decentdb_value_view
	var n C.int
	rc := decentdb_row_view(st, &p, &n)
	return viewsOf(p, n), int(rc)
}

// goStepWithInt64s runs the fused call with INT64 parameters.
func goStepWithInt64s(st *C.decentdb_stmt, params ...int64) ([]goView, bool, int) {
	var in *C.decentdb_value_view
	if len(params) > 0 {
		in = (*C.decentdb_value_view)(C.calloc(C.size_t(len(params)), C.size_t(unsafe.Sizeof(C.decentdb_value_view{}))))
		defer C.free(unsafe.Pointer(in))
		views := unsafe.Slice(in, len(params))
		for i, v := range params {
			views[i].kind = 1
			views[i].int64_val = C.int64_t(v)
		}
	}
	var out *C.decentdb_value_view
	var n, hasRow C.int
	rc := decentdb_step_with_params_row_view(st, in, C.int(len(params)), &out, &n, &hasRow)
	return viewsOf(out, n), hasRow == 1, int(rc)
}

func goSnapshot(p *C.decentdb_db, table string) (tables, columns, indexes string) {
	var n C.int
	take := func(s *C.char) string {
		if s == nil {
			return ""
		}
		defer decentdb_free(unsafe.Pointer(s))
		return C.GoStringN(s, n)
	}
	tables = take(decentdb_list_tables_json(p, &n))
	ct := C.CString(table)
	defer C.free(unsafe.Pointer(ct))
	columns = take(decentdb_get_table_columns_json(p, ct, &n))
	indexes = take(decentdb_list_indexes_json(p, &n))
	return tables, columns, indexes
}
