// Package money implements the fixed-point decimal type shared by the
// coordinator and participant services: precision 19, scale 4, as required
// by every monetary field in the transfer protocol.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const scale = 4

// ErrNegative is returned by operations that require a non-negative amount.
var ErrNegative = errors.New("money: amount must be non-negative")

// ErrNotPositive is returned by operations that require a strictly positive amount.
var ErrNotPositive = errors.New("money: amount must be positive")

// Money is a fixed-point decimal value rounded to scale 4.
type Money struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{d: decimal.Zero}

// New rounds v to scale 4 and wraps it.
func New(v decimal.Decimal) Money {
	return Money{d: v.Round(scale)}
}

// FromString parses a decimal literal such as "1000.0000" or "50".
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return New(d), nil
}

// FromFloat builds a Money from a float64, primarily for tests and seed data.
func FromFloat(f float64) Money {
	return New(decimal.NewFromFloat(f))
}

// String renders the value with a fixed 4 decimal places.
func (m Money) String() string {
	return m.d.StringFixed(scale)
}

// Decimal exposes the underlying decimal.Decimal for callers that need
// arithmetic not provided directly by Money (e.g. store layers building
// NUMERIC bind parameters).
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Add returns m + other, rounded to scale 4.
func (m Money) Add(other Money) Money {
	return New(m.d.Add(other.d))
}

// Sub returns m - other, rounded to scale 4.
func (m Money) Sub(other Money) Money {
	return New(m.d.Sub(other.d))
}

// Neg returns -m.
func (m Money) Neg() Money {
	return New(m.d.Neg())
}

// Abs returns |m|.
func (m Money) Abs() Money {
	return New(m.d.Abs())
}

// Cmp compares m and other: -1, 0, or 1.
func (m Money) Cmp(other Money) int {
	return m.d.Cmp(other.d)
}

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

// IsZero reports whether m == 0.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// RequireNonNegative enforces invariant 1 of the Account data model.
func (m Money) RequireNonNegative() error {
	if m.IsNegative() {
		return ErrNegative
	}
	return nil
}

// RequirePositive enforces the Transaction.amount > 0 invariant.
func (m Money) RequirePositive() error {
	if !m.IsPositive() {
		return ErrNotPositive
	}
	return nil
}

// MarshalJSON encodes the amount as a JSON number, matching the wire
// protocol's `"amount": <number, signed>` contract.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.StringFixed(scale)), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw json.RawMessage = data
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.d = d.Round(scale)
		return nil
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return err
	}
	m.d = d.Round(scale)
	return nil
}

// Value implements driver.Valuer so pgx can bind Money directly to a
// NUMERIC(19,4) column.
func (m Money) Value() (driver.Value, error) {
	return m.d.StringFixed(scale), nil
}

// Scan implements sql.Scanner for reading NUMERIC(19,4) columns back.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		m.d = decimal.Zero
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		m.d = d.Round(scale)
		return nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return err
		}
		m.d = d.Round(scale)
		return nil
	case float64:
		m.d = decimal.NewFromFloat(v).Round(scale)
		return nil
	default:
		return fmt.Errorf("money: unsupported scan type %T", src)
	}
}
