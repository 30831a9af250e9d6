/*
policies.go - Standard leave types

PURPOSE:
  The leave types every new account starts with, and constructors for
  bounded and unlimited balances.

AVAILABLE TYPES:
  Annual:    20 days a year
  Sick:      10 days a year
  Casual:     5 days a year
  LOP Taken: loss of pay, unlimited running total

EXAMPLE:
  for _, b := range leave.StandardBalances() {
      store.SaveBalance(ctx, userID, b)
  }
*/
package leave

import "github.com/empowerflow/portal/generic"

const (
	TypeAnnual = "Annual"
	TypeSick   = "Sick"
	TypeCasual = "Casual"
	TypeLOP    = "LOP Taken"
)

// Quota is a bounded balance with available out of total days.
func Quota(leaveTypeID string, available, total float64) LeaveBalance {
	t := generic.NewAmount(total, generic.UnitDays)
	return LeaveBalance{
		LeaveTypeID: leaveTypeID,
		Available:   generic.NewAmount(available, generic.UnitDays),
		Total:       &t,
		Unit:        generic.UnitDays,
	}
}

// RunningTotal is an unlimited type whose Available counts days taken.
func RunningTotal(leaveTypeID string, taken float64) LeaveBalance {
	return LeaveBalance{
		LeaveTypeID: leaveTypeID,
		Available:   generic.NewAmount(taken, generic.UnitDays),
		Unit:        generic.UnitDays,
		Unlimited:   true,
	}
}

// StandardBalances is the full allowance for a new account.
func StandardBalances() []LeaveBalance {
	return []LeaveBalance{
		Quota(TypeAnnual, 20, 20),
		Quota(TypeSick, 10, 10),
		Quota(TypeCasual, 5, 5),
		RunningTotal(TypeLOP, 0),
	}
}
