package core

import (
	"bytes"
	"encoding/hex"
	"math"
	"strconv"
)

// Kind is the wire code of a value variant.
type Kind int

const (
	KindNull    Kind = 0
	KindInt64   Kind = 1
	KindBool    Kind = 2
	KindFloat64 Kind = 3
	KindText    Kind = 4
	KindBlob    Kind = 5
	KindDecimal Kind = 12
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInt64:
		return "INT64"
	case KindBool:
		return "BOOL"
	case KindFloat64:
		return "FLOAT64"
	case KindText:
		return "TEXT"
	case KindBlob:
		return "BLOB"
	case KindDecimal:
		return "DECIMAL"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(k)) + ")"
	}
}

// Valid reports whether k is one of the defined wire codes.
func (k Kind) Valid() bool {
	switch k {
	case KindNull, KindInt64, KindBool, KindFloat64, KindText, KindBlob, KindDecimal:
		return true
	}
	return false
}

// Value is a single SQL value. The set of implementations is closed.
type Value interface {
	Kind() Kind
	String() string
	isValue()
}

type Null struct{}

type Int64 int64

type Bool bool

type Float64 float64

type Text string

// Blob holds raw bytes. Construct with NewBlob; the contents are never mutated.
type Blob []byte

func (Null) Kind() Kind    { return KindNull }
func (Int64) Kind() Kind   { return KindInt64 }
func (Bool) Kind() Kind    { return KindBool }
func (Float64) Kind() Kind { return KindFloat64 }
func (Text) Kind() Kind    { return KindText }
func (Blob) Kind() Kind    { return KindBlob }
func (Decimal) Kind() Kind { return KindDecimal }

func (Null) isValue()    {}
func (Int64) isValue()   {}
func (Bool) isValue()    {}
func (Float64) isValue() {}
func (Text) isValue()    {}
func (Blob) isValue()    {}
func (Decimal) isValue() {}

func (Null) String() string      { return "NULL" }
func (v Int64) String() string   { return strconv.FormatInt(int64(v), 10) }
func (v Bool) String() string    { return strconv.FormatBool(bool(v)) }
func (v Float64) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v Text) String() string    { return string(v) }
func (v Blob) String() string    { return "x'" + hex.EncodeToString(v) + "'" }

func NewNull() Value                { return Null{} }
func NewInt64(v int64) Value        { return Int64(v) }
func NewBool(v bool) Value          { return Bool(v) }
func NewFloat64(v float64) Value    { return Float64(v) }
func NewTextString(v string) Value  { return Text(v) }
func NewText(v []byte) Value        { return Text(string(v)) }
func NewBlob(v []byte) Value        { return Blob(bytes.Clone(nonNil(v))) }

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// IsNull reports whether v is absent or the NULL variant.
func IsNull(v Value) bool {
	return v == nil || v.Kind() == KindNull
}

func mismatch(want Kind, got Value) *Error {
	gotKind := KindNull
	if got != nil {
		gotKind = got.Kind()
	}
	return Errorf(CodeTypeMismatch, "expected %s value, got %s", want, gotKind)
}

func AsInt64(v Value) (int64, error) {
	if x, ok := v.(Int64); ok {
		return int64(x), nil
	}
	return 0, mismatch(KindInt64, v)
}

func AsBool(v Value) (bool, error) {
	if x, ok := v.(Bool); ok {
		return bool(x), nil
	}
	return false, mismatch(KindBool, v)
}

func AsFloat64(v Value) (float64, error) {
	if x, ok := v.(Float64); ok {
		return float64(x), nil
	}
	return 0, mismatch(KindFloat64, v)
}

// AsText returns a copy of the text bytes.
func AsText(v Value) ([]byte, error) {
	if x, ok := v.(Text); ok {
		return []byte(x), nil
	}
	return nil, mismatch(KindText, v)
}

// AsBlob returns a copy of the blob bytes.
func AsBlob(v Value) ([]byte, error) {
	if x, ok := v.(Blob); ok {
		return bytes.Clone(nonNil(x)), nil
	}
	return nil, mismatch(KindBlob, v)
}

func AsDecimal(v Value) (Decimal, error) {
	if x, ok := v.(Decimal); ok {
		return x, nil
	}
	return Decimal{}, mismatch(KindDecimal, v)
}

// Equal reports whether a and b hold the same variant and payload.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Blob:
		return bytes.Equal(x, b.(Blob))
	case Float64:
		y := b.(Float64)
		return x == y || (math.IsNaN(float64(x)) && math.IsNaN(float64(y)))
	default:
		return a == b
	}
}

// Compare orders two non-NULL values. Numeric variants compare with each
// other exactly where possible; ok is false for NULLs and incomparable kinds.
func Compare(a, b Value) (int, bool) {
	if IsNull(a) || IsNull(b) {
		return 0, false
	}
	switch x := a.(type) {
	case Int64:
		switch y := b.(type) {
		case Int64:
			return cmpOrdered(x, y), true
		case Float64:
			return cmpFloat(float64(x), float64(y)), true
		case Decimal:
			return Decimal{Unscaled: int64(x)}.Cmp(y), true
		}
	case Float64:
		switch y := b.(type) {
		case Int64:
			return cmpFloat(float64(x), float64(y)), true
		case Float64:
			return cmpFloat(float64(x), float64(y)), true
		case Decimal:
			return cmpFloat(float64(x), y.Float64()), true
		}
	case Decimal:
		switch y := b.(type) {
		case Int64:
			return x.Cmp(Decimal{Unscaled: int64(y)}), true
		case Float64:
			return cmpFloat(x.Float64(), float64(y)), true
		case Decimal:
			return x.Cmp(y), true
		}
	case Bool:
		if y, ok := b.(Bool); ok {
			switch {
			case x == y:
				return 0, true
			case !bool(x):
				return -1, true
			default:
				return 1, true
			}
		}
	case Text:
		if y, ok := b.(Text); ok {
			return cmpOrdered(x, y), true
		}
	case Blob:
		if y, ok := b.(Blob); ok {
			return bytes.Compare(x, y), true
		}
	}
	return 0, false
}

func cmpOrdered[T ~int64 | ~string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Key renders v as a string usable as a map key: equal values give equal keys
// and different variants never collide.
func Key(v Value) string {
	if IsNull(v) {
		return "n"
	}
	switch x := v.(type) {
	case Int64:
		return "i" + strconv.FormatInt(int64(x), 10)
	case Bool:
		return "b" + strconv.FormatBool(bool(x))
	case Float64:
		return "f" + strconv.FormatUint(math.Float64bits(float64(x)), 16)
	case Text:
		return "t" + string(x)
	case Blob:
		return "x" + string(x)
	case Decimal:
		return "d" + x.Normalize().String()
	default:
		return "?"
	}
}
