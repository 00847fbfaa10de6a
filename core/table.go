package core

import (
	"fmt"
	"strings"
)

// Identity is the author recorded on checkpoint commits.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ParseIdentity accepts "Name <email>" or a bare name.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identity{}, fmt.Errorf("empty identity")
	}
	open := strings.IndexByte(s, '<')
	if open < 0 {
		return Identity{Name: s}, nil
	}
	if !strings.HasSuffix(s, ">") || open == len(s)-1 {
		return Identity{}, fmt.Errorf("malformed identity %q", s)
	}
	return Identity{
		Name:  strings.TrimSpace(s[:open]),
		Email: strings.TrimSpace(s[open+1 : len(s)-1]),
	}, nil
}

func (i Identity) String() string {
	if i.Email == "" {
		return i.Name
	}
	return fmt.Sprintf("%s <%s>", i.Name, i.Email)
}

type ColumnType int

const (
	IntType ColumnType = iota
	FloatType
	BoolType
	TextType
	BlobType
	DecimalType
)

// Kind is the value kind stored in columns of this type.
func (t ColumnType) Kind() Kind {
	switch t {
	case IntType:
		return KindInt64
	case FloatType:
		return KindFloat64
	case BoolType:
		return KindBool
	case TextType:
		return KindText
	case BlobType:
		return KindBlob
	case DecimalType:
		return KindDecimal
	}
	return KindNull
}

func (t ColumnType) String() string {
	return t.Kind().String()
}

type Column struct {
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	PrimaryKey bool       `json:"primaryKey,omitempty"`
	NotNull    bool       `json:"notNull,omitempty"`
	Unique     bool       `json:"unique,omitempty"`
	Precision  int        `json:"precision,omitempty"` // DECIMAL(p,s); 0 when undeclared
	Scale      int        `json:"scale,omitempty"`
}

// DeclType renders the declared type, e.g. DECIMAL(18,9).
func (c Column) DeclType() string {
	if c.Type == DecimalType && c.Precision > 0 {
		return fmt.Sprintf("DECIMAL(%d,%d)", c.Precision, c.Scale)
	}
	return c.Type.String()
}

// AutoIncrement reports whether omitted values are assigned max+1.
func (c Column) AutoIncrement() bool {
	return c.PrimaryKey && c.Type == IntType
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// ColumnIndex returns the position of the named column, case-insensitively.
func (t Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// PrimaryKey returns the positions of primary key columns in declaration order.
func (t Table) PrimaryKey() []int {
	var pk []int
	for i, c := range t.Columns {
		if c.PrimaryKey {
			pk = append(pk, i)
		}
	}
	return pk
}

// Index is a secondary or implicit index over one or more columns.
type Index struct {
	Name     string   `json:"name"`
	Table    string   `json:"table"`
	Columns  []string `json:"columns"`
	Unique   bool     `json:"unique"`
	Implicit bool     `json:"implicit,omitempty"` // created for a PRIMARY KEY or UNIQUE column
}

// Coerce converts v to the representation stored in col. NULL passes; NOT NULL
// is checked when the row is written.
func Coerce(v Value, col Column) (Value, error) {
	if IsNull(v) {
		return Null{}, nil
	}
	switch col.Type {
	case IntType:
		if x, ok := v.(Int64); ok {
			return x, nil
		}
	case FloatType:
		switch x := v.(type) {
		case Float64:
			return x, nil
		case Int64:
			return Float64(float64(x)), nil
		case Decimal:
			return Float64(x.Float64()), nil
		}
	case BoolType:
		if x, ok := v.(Bool); ok {
			return x, nil
		}
	case TextType:
		if x, ok := v.(Text); ok {
			return x, nil
		}
	case BlobType:
		if x, ok := v.(Blob); ok {
			return x, nil
		}
	case DecimalType:
		var d Decimal
		switch x := v.(type) {
		case Decimal:
			d = x
		case Int64:
			d = Decimal{Unscaled: int64(x)}
		default:
			return nil, columnMismatch(v, col)
		}
		if col.Precision == 0 {
			return d, nil
		}
		r, err := d.Rescale(col.Scale)
		if err != nil {
			return nil, Errorf(CodeTypeMismatch, "value %s does not fit column %s %s", d.String(), col.Name, col.DeclType())
		}
		if r.Digits() > col.Precision {
			return nil, Errorf(CodeTypeMismatch, "value %s exceeds precision of column %s %s", d.String(), col.Name, col.DeclType())
		}
		return r, nil
	}
	return nil, columnMismatch(v, col)
}

func columnMismatch(v Value, col Column) *Error {
	return Errorf(CodeTypeMismatch, "cannot store %s value in column %s %s", v.Kind(), col.Name, col.DeclType())
}
