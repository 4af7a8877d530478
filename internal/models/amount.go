package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value in integer minor units (cents). It is stored
// and round-tripped as an integer so no rounding can ever occur; conversion
// to the decimal string form gateways expect happens only at the adapter
// boundary.
type Amount int64

// NewAmountFromDecimal converts a major-unit decimal (e.g. "12.34") into
// minor units. Fractions beyond two places are rejected rather than rounded.
func NewAmountFromDecimal(d decimal.Decimal) (Amount, error) {
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-cent precision", d.String())
	}
	return Amount(cents.IntPart()), nil
}

// Decimal returns the major-unit decimal representation.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(a)).Div(decimal.NewFromInt(100))
}

// String formats as a two-place decimal string ("12.34").
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// Int64 returns the raw minor-unit value.
func (a Amount) Int64() int64 {
	return int64(a)
}

// Value implements driver.Valuer; the column stays an integer.
func (a Amount) Value() (driver.Value, error) {
	return int64(a), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = 0
		return nil
	case int64:
		*a = Amount(v)
		return nil
	case int:
		*a = Amount(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Amount", value)
	}
}
