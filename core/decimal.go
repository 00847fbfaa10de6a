package core

import (
	"github.com/cockroachdb/apd/v3"
)

// MaxDecimalScale bounds the number of fractional digits a Decimal may carry.
const MaxDecimalScale = 18

// Decimal is an exact decimal number: Unscaled / 10^Scale.
type Decimal struct {
	Unscaled int64
	Scale    int
}

var decimalContext = apd.BaseContext.WithPrecision(40)

// NewDecimal validates the scale and returns the Decimal as a Value.
func NewDecimal(unscaled int64, scale int) (Value, error) {
	d, err := MakeDecimal(unscaled, scale)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func MakeDecimal(unscaled int64, scale int) (Decimal, error) {
	if scale < 0 || scale > MaxDecimalScale {
		return Decimal{}, Errorf(CodeTypeMismatch, "decimal scale %d out of range 0..%d", scale, MaxDecimalScale)
	}
	return Decimal{Unscaled: unscaled, Scale: scale}, nil
}

// ParseDecimal parses a decimal literal such as "-12.340" keeping its scale.
func ParseDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, Errorf(CodeTypeMismatch, "invalid decimal %q", s)
	}
	return fromApd(d)
}

func fromApd(d *apd.Decimal) (Decimal, error) {
	if d.Form != apd.Finite {
		return Decimal{}, Errorf(CodeTypeMismatch, "decimal %s is not finite", d.String())
	}
	var c apd.Decimal
	c.Set(d)
	if c.Exponent > 0 {
		if _, err := decimalContext.Quantize(&c, d, 0); err != nil {
			return Decimal{}, Errorf(CodeTypeMismatch, "decimal %s out of range", d.String())
		}
	}
	scale := int(-c.Exponent)
	if scale > MaxDecimalScale {
		return Decimal{}, Errorf(CodeTypeMismatch, "decimal scale %d out of range 0..%d", scale, MaxDecimalScale)
	}
	c.Exponent = 0
	unscaled, err := c.Int64()
	if err != nil {
		return Decimal{}, Errorf(CodeTypeMismatch, "decimal %s overflows a 64-bit unscaled value", d.String())
	}
	return Decimal{Unscaled: unscaled, Scale: scale}, nil
}

func (d Decimal) apd() *apd.Decimal {
	return apd.New(d.Unscaled, -int32(d.Scale))
}

func (d Decimal) String() string {
	return d.apd().Text('f')
}

// Cmp compares numerically, so 1.50 and 1.5 are equal.
func (d Decimal) Cmp(o Decimal) int {
	return d.apd().Cmp(o.apd())
}

func (d Decimal) Float64() float64 {
	f, err := d.apd().Float64()
	if err != nil {
		return 0
	}
	return f
}

// Rescale changes the scale without changing the value. It fails rather
// than round when digits would be lost, and when the result does not fit.
func (d Decimal) Rescale(scale int) (Decimal, error) {
	if scale == d.Scale {
		return d, nil
	}
	if scale < 0 || scale > MaxDecimalScale {
		return Decimal{}, Errorf(CodeTypeMismatch, "decimal scale %d out of range 0..%d", scale, MaxDecimalScale)
	}
	var out apd.Decimal
	cond, err := decimalContext.Quantize(&out, d.apd(), -int32(scale))
	if err != nil || cond.Inexact() {
		return Decimal{}, Errorf(CodeTypeMismatch, "decimal %s cannot be represented with scale %d", d.String(), scale)
	}
	r, err := fromApd(&out)
	if err != nil {
		return Decimal{}, err
	}
	return r, nil
}

// Normalize strips trailing fractional zeros.
func (d Decimal) Normalize() Decimal {
	for d.Scale > 0 && d.Unscaled%10 == 0 {
		d.Unscaled /= 10
		d.Scale--
	}
	return d
}

// Digits is the number of decimal digits in the unscaled value.
func (d Decimal) Digits() int {
	u := d.Unscaled
	n := 1
	for u >= 10 || u <= -10 {
		u /= 10
		n++
	}
	return n
}

// DecimalFromFloat converts through the shortest decimal text of f.
func DecimalFromFloat(f float64) (Decimal, error) {
	var d apd.Decimal
	if _, err := d.SetFloat64(f); err != nil {
		return Decimal{}, Errorf(CodeTypeMismatch, "cannot convert %v to decimal", f)
	}
	return fromApd(&d)
}

// Add returns d+o at the larger of the two scales.
func (d Decimal) Add(o Decimal) (Decimal, error) {
	var out apd.Decimal
	if _, err := decimalContext.Add(&out, d.apd(), o.apd()); err != nil {
		return Decimal{}, Errorf(CodeTypeMismatch, "decimal addition failed: %v", err)
	}
	r, err := fromApd(&out)
	if err != nil {
		return Decimal{}, err
	}
	scale := max(d.Scale, o.Scale)
	if r.Scale < scale {
		return r.Rescale(scale)
	}
	return r, nil
}
