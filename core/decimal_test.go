package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in       string
		unscaled int64
		scale    int
	}{
		{"123.45", 12345, 2},
		{"-0.001", -1, 3},
		{"42", 42, 0},
		{"12.340", 12340, 3},
		{"1E+3", 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDecimal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, Decimal{Unscaled: tt.unscaled, Scale: tt.scale}, d)
		})
	}
}

func TestParseDecimalErrors(t *testing.T) {
	for _, in := range []string{"abc", "NaN", "99999999999999999999", "1.0000000000000000000001"} {
		_, err := ParseDecimal(in)
		assert.True(t, errors.Is(err, ErrTypeMismatch), "input %q", in)
	}
}

func TestDecimalString(t *testing.T) {
	assert.Equal(t, "123.45", Decimal{Unscaled: 12345, Scale: 2}.String())
	assert.Equal(t, "-0.05", Decimal{Unscaled: -5, Scale: 2}.String())
	assert.Equal(t, "7", Decimal{Unscaled: 7}.String())
	assert.Equal(t, "1.000000000", Decimal{Unscaled: 1000000000, Scale: 9}.String())
}

func TestDecimalRescale(t *testing.T) {
	d := Decimal{Unscaled: 12345, Scale: 2}

	up, err := d.Rescale(4)
	require.NoError(t, err)
	assert.Equal(t, Decimal{Unscaled: 1234500, Scale: 4}, up)

	down, err := up.Rescale(2)
	require.NoError(t, err)
	assert.Equal(t, d, down)

	_, err = d.Rescale(1)
	assert.True(t, errors.Is(err, ErrTypeMismatch), "lossy rescale must fail")

	_, err = Decimal{Unscaled: math.MaxInt64 / 10, Scale: 0}.Rescale(2)
	assert.True(t, errors.Is(err, ErrTypeMismatch), "overflow must fail")
}

func TestDecimalCmpIgnoresScale(t *testing.T) {
	a := Decimal{Unscaled: 150, Scale: 2}
	b := Decimal{Unscaled: 15, Scale: 1}
	assert.Equal(t, 0, a.Cmp(b))
	assert.Equal(t, Key(a), Key(b))
	assert.Equal(t, -1, Decimal{Unscaled: 1, Scale: 3}.Cmp(b))
}

func TestDecimalAdd(t *testing.T) {
	sum, err := Decimal{Unscaled: 150, Scale: 2}.Add(Decimal{Unscaled: 5, Scale: 1})
	require.NoError(t, err)
	assert.Equal(t, Decimal{Unscaled: 200, Scale: 2}, sum)
}

func TestNewDecimalScaleBounds(t *testing.T) {
	_, err := NewDecimal(1, -1)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
	_, err = NewDecimal(1, MaxDecimalScale+1)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
	v, err := NewDecimal(12345, 2)
	require.NoError(t, err)
	assert.Equal(t, KindDecimal, v.Kind())
}

func TestCoerceDecimalColumn(t *testing.T) {
	col := Column{Name: "amount", Type: DecimalType, Precision: 18, Scale: 9}

	v, err := Coerce(Decimal{Unscaled: 12345, Scale: 2}, col)
	require.NoError(t, err)
	assert.Equal(t, Decimal{Unscaled: 123450000000, Scale: 9}, v)

	v, err = Coerce(Int64(3), col)
	require.NoError(t, err)
	assert.Equal(t, Decimal{Unscaled: 3000000000, Scale: 9}, v)

	_, err = Coerce(Decimal{Unscaled: 1, Scale: 10}, col)
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	small := Column{Name: "small", Type: DecimalType, Precision: 3, Scale: 1}
	_, err = Coerce(Decimal{Unscaled: 12345, Scale: 1}, small)
	assert.True(t, errors.Is(err, ErrTypeMismatch), "precision overflow must fail")

	free := Column{Name: "free", Type: DecimalType}
	v, err = Coerce(Decimal{Unscaled: 12345, Scale: 2}, free)
	require.NoError(t, err)
	assert.Equal(t, Decimal{Unscaled: 12345, Scale: 2}, v)
}
