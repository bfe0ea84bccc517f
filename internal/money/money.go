// Package money provides the fixed-precision amount type used by caja and arqueo.
// Amounts are always rounded to two decimal places; arithmetic is exact.
package money

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Scale is the number of decimal places every Money keeps.
const Scale = 2

// Money is an immutable amount. The zero value is $0.
type Money struct {
	d decimal.Decimal
}

// Zero is $0.
var Zero = Money{}

var printer = message.NewPrinter(language.MustParse("es-CO"))

func New(d decimal.Decimal) Money { return Money{d: d.Round(Scale)} }

func FromInt(i int64) Money { return Money{d: decimal.NewFromInt(i)} }

// FromString parses "1234.5", "-10", etc.
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("monto inválido %q: %w", s, err)
	}
	return New(d), nil
}

// MustFromString is FromString for constants and tests.
func MustFromString(s string) Money {
	m, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money        { return Money{d: m.d.Neg()} }
func (m Money) Abs() Money        { return Money{d: m.d.Abs()} }

// MulInt multiplies by a whole factor (e.g. 2 × expected cash).
func (m Money) MulInt(n int64) Money { return Money{d: m.d.Mul(decimal.NewFromInt(n))} }

func (m Money) IsZero() bool     { return m.d.IsZero() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }

func (m Money) Cmp(o Money) int             { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool          { return m.d.Equal(o.d) }
func (m Money) GreaterThan(o Money) bool    { return m.d.GreaterThan(o.d) }
func (m Money) LessThan(o Money) bool       { return m.d.LessThan(o.d) }
func (m Money) LessThanOrEqual(o Money) bool { return m.d.LessThanOrEqual(o.d) }

// Ratio returns m / o as a decimal. Callers must guard o != 0.
func (m Money) Ratio(o Money) decimal.Decimal {
	return m.d.DivRound(o.d, 8)
}

// String is the plain machine form ("1234.50").
func (m Money) String() string { return m.d.StringFixed(Scale) }

// Format renders peso text with es-CO grouping: $100.000, -$1.234,50.
// Cents are shown only when non-zero.
func (m Money) Format() string {
	abs := m.d.Abs()
	whole := abs.Truncate(0)
	cents := abs.Sub(whole).Shift(Scale).IntPart()

	out := "$" + printer.Sprintf("%d", whole.IntPart())
	if cents != 0 {
		out += fmt.Sprintf(",%02d", cents)
	}
	if m.d.IsNegative() {
		out = "-" + out
	}
	return out
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = New(d)
	return nil
}

func (m Money) Value() (driver.Value, error) { return m.String(), nil }

func (m *Money) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	*m = New(d)
	return nil
}

// Sum adds all amounts.
func Sum(ms ...Money) Money {
	total := Zero
	for _, m := range ms {
		total = total.Add(m)
	}
	return total
}
