/*
Package generic provides the domain-agnostic building blocks of the portal.

PURPOSE:
  Types shared by every domain package: quantities with a unit, calendar
  days, the injectable clock, holidays, audit entries and the error
  sentinels that the storage layer reports. Nothing here knows what a
  leave request or a dashboard is.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 1.5 days)
  - Entity IDs: Type-safe identifiers for the acting user

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so half days never drift
  2. Type Safety: EntityID is not interchangeable with plain strings

USAGE:
  half := generic.NewAmount(0.5, generic.UnitDays)
  total := generic.NewAmount(20, generic.UnitDays)
  left := total.Sub(half) // 19.5 days

SEE ALSO:
  - time.go: Calendar days and holidays
  - clock.go: Current date source
  - errors.go: Shared error sentinels
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const UnitDays Unit = "days"

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) GreaterOrEqual(b Amount) bool { return a.Value.GreaterThanOrEqual(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) String() string               { return a.Value.String() }

// Float64 is for presentation only (JSON, spreadsheets).
func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EntityID identifies the person a balance or request belongs to.
type EntityID string
