/*
calculator.go - Chargeable day count for a leave range

PURPOSE:
  Converts a date range plus the session selected at each boundary into
  the number of days charged against a balance. Feeds the live "days
  requested" display, so it must stay pure and cheap: no caching, no
  lookups, same inputs give the same output.

RULES:
  Same day:
    Full + Full                -> 1
    same half twice            -> 0.5
    FirstHalf + SecondHalf     -> 1 (either order)
    one half, the other Full   -> 0.5
  Several days:
    inclusive day count
    -0.5 when the range starts on the SecondHalf
    -0.5 when the range ends on the FirstHalf
  End before start            -> 0 (callers reject the range separately)

EXAMPLE:
  CalculateDays(d("2024-01-10"), d("2024-01-12"), SessionFull, SessionFull)           // 3
  CalculateDays(d("2024-01-10"), d("2024-01-12"), SessionSecondHalf, SessionFirstHalf) // 2
*/
package leave

import (
	"github.com/empowerflow/portal/generic"
	"github.com/shopspring/decimal"
)

var half = decimal.NewFromFloat(0.5)

// DayCounter computes chargeable days. CalculateDays is the default.
type DayCounter func(start, end generic.TimePoint, startSession, endSession Session) generic.Amount

// CalculateDays returns the chargeable days for [start, end], in multiples of 0.5.
func CalculateDays(start, end generic.TimePoint, startSession, endSession Session) generic.Amount {
	if end.Before(start) {
		return generic.Amount{Value: decimal.Zero, Unit: generic.UnitDays}
	}

	var days decimal.Decimal
	if start.Equal(end) {
		days = sameDay(startSession, endSession)
	} else {
		days = decimal.NewFromInt(int64(generic.DaysBetween(start, end) + 1))
		if startSession == SessionSecondHalf {
			days = days.Sub(half)
		}
		if endSession == SessionFirstHalf {
			days = days.Sub(half)
		}
	}

	if days.IsNegative() {
		days = decimal.Zero
	}
	return generic.Amount{Value: days, Unit: generic.UnitDays}
}

func sameDay(a, b Session) decimal.Decimal {
	switch {
	case !a.IsHalf() && !b.IsHalf():
		return decimal.NewFromInt(1)
	case a == b:
		return half
	case a.IsHalf() && b.IsHalf():
		// first and second half of the same day
		return decimal.NewFromInt(1)
	default:
		return half
	}
}
