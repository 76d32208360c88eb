// Package money carries monetary amounts together with the unit they are
// expressed in. Major units are rupees as shown to the user, minor units are
// paise as sent to the payment provider.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Unit string

const (
	UnitMajor Unit = "major"
	UnitMinor Unit = "minor"
)

// MinorPerMajor is the number of paise in a rupee.
const MinorPerMajor = 100

var ErrUnitMismatch = errors.New("money: unit mismatch")

// Amount is an immutable value. The zero value is zero in major units.
type Amount struct {
	value decimal.Decimal
	unit  Unit
}

func Major(v decimal.Decimal) Amount {
	return Amount{value: v, unit: UnitMajor}
}

func MajorFromFloat(f float64) Amount {
	return Major(decimal.NewFromFloat(f))
}

func MajorFromInt(i int64) Amount {
	return Major(decimal.NewFromInt(i))
}

func Minor(i int64) Amount {
	return Amount{value: decimal.NewFromInt(i), unit: UnitMinor}
}

func Zero() Amount {
	return Major(decimal.Zero)
}

func (a Amount) Unit() Unit {
	if a.unit == "" {
		return UnitMajor
	}
	return a.unit
}

func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

func (a Amount) Float64() float64 {
	f, _ := a.value.Float64()
	return f
}

func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

func (a Amount) IsPositive() bool {
	return a.value.IsPositive()
}

func (a Amount) IsNegative() bool {
	return a.value.IsNegative()
}

// Add panics on a unit mismatch; mixing units is a programming error.
func (a Amount) Add(b Amount) Amount {
	a.mustMatch(b)
	return Amount{value: a.value.Add(b.value), unit: a.Unit()}
}

func (a Amount) Sub(b Amount) Amount {
	a.mustMatch(b)
	return Amount{value: a.value.Sub(b.value), unit: a.Unit()}
}

func (a Amount) MulInt(n int) Amount {
	return Amount{value: a.value.Mul(decimal.NewFromInt(int64(n))), unit: a.Unit()}
}

func (a Amount) MulRate(rate decimal.Decimal) Amount {
	return Amount{value: a.value.Mul(rate), unit: a.Unit()}
}

func (a Amount) Equal(b Amount) bool {
	return a.Unit() == b.Unit() && a.value.Equal(b.value)
}

func (a Amount) GreaterThan(b Amount) bool {
	a.mustMatch(b)
	return a.value.GreaterThan(b.value)
}

// ToMinor is the only major to minor conversion point: round(value * 100),
// half away from zero. Minor amounts are returned unchanged.
func (a Amount) ToMinor() Amount {
	if a.Unit() == UnitMinor {
		return a
	}
	return Amount{value: a.value.Mul(decimal.NewFromInt(MinorPerMajor)).Round(0), unit: UnitMinor}
}

// MinorUnits returns the integer paise value of a minor amount.
func (a Amount) MinorUnits() (int64, error) {
	if a.Unit() != UnitMinor {
		return 0, fmt.Errorf("%w: expected minor units, got %s", ErrUnitMismatch, a.Unit())
	}
	return a.value.IntPart(), nil
}

// ToMajor is used for display of provider amounts only.
func (a Amount) ToMajor() Amount {
	if a.Unit() == UnitMajor {
		return a
	}
	return Major(a.value.Div(decimal.NewFromInt(MinorPerMajor)))
}

func (a Amount) String() string {
	if a.Unit() == UnitMinor {
		return a.value.StringFixed(0) + " paise"
	}
	return "₹" + a.value.StringFixed(2)
}

// MarshalJSON writes the bare number; the unit is implied by the field.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.value.String()), nil
}

// UnmarshalJSON reads a number as a major amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("unmarshal amount: %w", err)
	}
	*a = Major(d)
	return nil
}

func (a Amount) mustMatch(b Amount) {
	if a.Unit() != b.Unit() {
		panic(fmt.Sprintf("%v: %s vs %s", ErrUnitMismatch, a.Unit(), b.Unit()))
	}
}
