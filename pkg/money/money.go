// Package money provides a fixed-precision USD amount used for all monetary
// fields. Amounts are decimal, never binary floats, and serialize as
// two-decimal strings ("200.00") to match the wire format.
package money

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	dErrors "pampermomma/pkg/domain-errors"
)

// Amount is a fixed-precision monetary value.
type Amount struct {
	dec decimal.Decimal
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{}
}

// Parse parses a decimal string such as "49.99". It rejects values that are
// not valid decimals; callers on trust boundaries should prefer Parse and
// callers on the aggregation boundary should use Optional.OrZero.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, dErrors.Newf(dErrors.CodeValidation, "invalid amount %q", s)
	}
	return Amount{dec: d}, nil
}

// MustParse parses a decimal string and panics on failure. For constants and
// tests only.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromCents converts a processor minor-unit value to an Amount.
func FromCents(cents int64) Amount {
	return Amount{dec: decimal.NewFromInt(cents).Shift(-2)}
}

// FromInt converts a whole-dollar value to an Amount.
func FromInt(n int64) Amount {
	return Amount{dec: decimal.NewFromInt(n)}
}

// Cents returns the amount in processor minor units, rounded to the nearest
// cent.
func (a Amount) Cents() int64 {
	return a.dec.Round(2).Shift(2).IntPart()
}

func (a Amount) Add(b Amount) Amount {
	return Amount{dec: a.dec.Add(b.dec)}
}

func (a Amount) Sub(b Amount) Amount {
	return Amount{dec: a.dec.Sub(b.dec)}
}

// MulInt multiplies the amount by a whole number (hours × cost_per_hour).
func (a Amount) MulInt(n int64) Amount {
	return Amount{dec: a.dec.Mul(decimal.NewFromInt(n))}
}

func (a Amount) Cmp(b Amount) int {
	return a.dec.Cmp(b.dec)
}

func (a Amount) Equal(b Amount) bool {
	return a.dec.Equal(b.dec)
}

func (a Amount) LessThan(b Amount) bool {
	return a.dec.LessThan(b.dec)
}

func (a Amount) GreaterThan(b Amount) bool {
	return a.dec.GreaterThan(b.dec)
}

func (a Amount) IsZero() bool {
	return a.dec.IsZero()
}

func (a Amount) IsNegative() bool {
	return a.dec.IsNegative()
}

func (a Amount) IsPositive() bool {
	return a.dec.IsPositive()
}

// String renders the amount with exactly two decimal places.
func (a Amount) String() string {
	return a.dec.StringFixed(2)
}

// MarshalJSON renders the amount as a two-decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string or a bare JSON number. Invalid
// values are an error here; lenient defaulting belongs to Optional only.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Some producers emit bare numbers.
		var f json.Number
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("amount must be a string or number: %s", data)
		}
		s = f.String()
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sum adds a series of amounts.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Optional is an amount that may be absent on the wire. Absent or unparsable
// values stay invalid rather than erroring, so a malformed upstream field
// never aborts an aggregate; OrZero applies the default at the aggregation
// boundary only.
type Optional struct {
	Amount Amount
	Valid  bool
}

// Some wraps a present amount.
func Some(a Amount) Optional {
	return Optional{Amount: a, Valid: true}
}

// OrZero returns the amount, defaulting to zero when absent.
func (o Optional) OrZero() Amount {
	if !o.Valid {
		return Zero()
	}
	return o.Amount
}

func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return o.Amount.MarshalJSON()
}

// UnmarshalJSON treats null, empty, and unparsable values as absent.
func (o *Optional) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || string(data) == `""` {
		*o = Optional{}
		return nil
	}
	var a Amount
	if err := a.UnmarshalJSON(data); err != nil {
		*o = Optional{}
		return nil
	}
	*o = Optional{Amount: a, Valid: true}
	return nil
}
