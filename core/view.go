package core

import "math"

// ValueView is the flat record used to pass one value across the foreign
// boundary. Bool travels in Int64 as 0/1; Decimal carries its unscaled value
// in Int64 and its scale in DecimalScale. Bytes is read-only and, when
// produced by a row view, only valid until the statement moves.
type ValueView struct {
	Kind         Kind
	IsNull       bool
	Int64        int64
	Float64      float64
	Bytes        []byte
	DecimalScale int
}

// ViewOf builds a view of v. Text and blob bytes are copied.
func ViewOf(v Value) ValueView {
	view, _ := AppendView(nil, v)
	return view
}

// AppendView builds a view of v whose text or blob bytes live in arena,
// returning the extended arena. When arena has enough spare capacity the
// bytes of earlier views stay put.
func AppendView(arena []byte, v Value) (ValueView, []byte) {
	if IsNull(v) {
		return ValueView{Kind: KindNull, IsNull: true}, arena
	}
	switch x := v.(type) {
	case Int64:
		return ValueView{Kind: KindInt64, Int64: int64(x)}, arena
	case Bool:
		var i int64
		if x {
			i = 1
		}
		return ValueView{Kind: KindBool, Int64: i}, arena
	case Float64:
		return ValueView{Kind: KindFloat64, Float64: float64(x)}, arena
	case Text:
		start := len(arena)
		arena = append(arena, x...)
		return ValueView{Kind: KindText, Bytes: arena[start:len(arena):len(arena)]}, arena
	case Blob:
		start := len(arena)
		arena = append(arena, x...)
		return ValueView{Kind: KindBlob, Bytes: arena[start:len(arena):len(arena)]}, arena
	case Decimal:
		return ValueView{Kind: KindDecimal, Int64: x.Unscaled, DecimalScale: x.Scale}, arena
	}
	return ValueView{Kind: KindNull, IsNull: true}, arena
}

// ByteLen is the number of arena bytes AppendView needs for v.
func ByteLen(v Value) int {
	switch x := v.(type) {
	case Text:
		return len(x)
	case Blob:
		return len(x)
	}
	return 0
}

// FromView validates a view and decodes it into an owned Value.
func FromView(view ValueView) (Value, error) {
	if view.IsNull || view.Kind == KindNull {
		return Null{}, nil
	}
	switch view.Kind {
	case KindInt64:
		return Int64(view.Int64), nil
	case KindBool:
		return Bool(view.Int64 != 0), nil
	case KindFloat64:
		return Float64(view.Float64), nil
	case KindText:
		return NewText(view.Bytes), nil
	case KindBlob:
		return NewBlob(view.Bytes), nil
	case KindDecimal:
		return NewDecimal(view.Int64, view.DecimalScale)
	}
	return nil, Errorf(CodeTypeMismatch, "unknown value kind %d", int(view.Kind))
}

// WireValue is the JSON shape of a value in records, log entries and dumps.
// Floats are stored as their IEEE bits so NaN and -0 survive the round trip.
type WireValue struct {
	K Kind   `json:"k"`
	I int64  `json:"i,omitempty"`
	B []byte `json:"b,omitempty"`
	S int    `json:"s,omitempty"`
}

func ToWire(v Value) WireValue {
	if IsNull(v) {
		return WireValue{K: KindNull}
	}
	switch x := v.(type) {
	case Int64:
		return WireValue{K: KindInt64, I: int64(x)}
	case Bool:
		if x {
			return WireValue{K: KindBool, I: 1}
		}
		return WireValue{K: KindBool}
	case Float64:
		return WireValue{K: KindFloat64, I: int64(math.Float64bits(float64(x)))}
	case Text:
		return WireValue{K: KindText, B: []byte(x)}
	case Blob:
		return WireValue{K: KindBlob, B: []byte(x)}
	case Decimal:
		return WireValue{K: KindDecimal, I: x.Unscaled, S: x.Scale}
	}
	return WireValue{K: KindNull}
}

func FromWire(w WireValue) (Value, error) {
	switch w.K {
	case KindNull:
		return Null{}, nil
	case KindInt64:
		return Int64(w.I), nil
	case KindBool:
		return Bool(w.I != 0), nil
	case KindFloat64:
		return Float64(math.Float64frombits(uint64(w.I))), nil
	case KindText:
		return Text(string(w.B)), nil
	case KindBlob:
		return NewBlob(w.B), nil
	case KindDecimal:
		return NewDecimal(w.I, w.S)
	}
	return nil, Errorf(CodeCorruption, "unknown stored value kind %d", int(w.K))
}

// ToWireRow and FromWireRow convert whole rows.
func ToWireRow(row []Value) []WireValue {
	out := make([]WireValue, len(row))
	for i, v := range row {
		out[i] = ToWire(v)
	}
	return out
}

func FromWireRow(row []WireValue) ([]Value, error) {
	out := make([]Value, len(row))
	for i, w := range row {
		v, err := FromWire(w)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
