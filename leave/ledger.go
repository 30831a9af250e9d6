package leave

import (
	"context"
	"fmt"
	"strings"

	"github.com/empowerflow/portal/generic"
)

// =============================================================================
// LEDGER - Read side of leave balances
// =============================================================================

// Ledger exposes the acting person's balances and answers sufficiency
// questions at submission time. It never writes.
type Ledger struct {
	balances BalanceStore
}

func NewLedger(balances BalanceStore) *Ledger {
	return &Ledger{balances: balances}
}

// Balances returns a copy of every balance, in leave type insertion order.
func (l *Ledger) Balances(ctx context.Context, entityID generic.EntityID) ([]LeaveBalance, error) {
	list, err := l.balances.ListBalances(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	out := make([]LeaveBalance, len(list))
	for i, b := range list {
		out[i] = b.clone()
	}
	return out, nil
}

// Quotas is Balances without the unlimited running-total types.
func (l *Ledger) Quotas(ctx context.Context, entityID generic.EntityID) ([]LeaveBalance, error) {
	all, err := l.Balances(ctx, entityID)
	if err != nil {
		return nil, err
	}
	out := make([]LeaveBalance, 0, len(all))
	for _, b := range all {
		if b.Bounded() {
			out = append(out, b)
		}
	}
	return out, nil
}

// Balance looks up one leave type. Matching is case-insensitive.
func (l *Ledger) Balance(ctx context.Context, entityID generic.EntityID, leaveTypeID string) (LeaveBalance, error) {
	all, err := l.Balances(ctx, entityID)
	if err != nil {
		return LeaveBalance{}, err
	}
	for _, b := range all {
		if strings.EqualFold(b.LeaveTypeID, leaveTypeID) {
			return b, nil
		}
	}
	return LeaveBalance{}, fmt.Errorf("%w: %s", ErrInvalidLeaveType, leaveTypeID)
}

// CheckSufficient reports whether days fit in the available balance.
// Unlimited types always fit. Unknown types return ErrInvalidLeaveType.
func (l *Ledger) CheckSufficient(ctx context.Context, entityID generic.EntityID, leaveTypeID string, days generic.Amount) (bool, error) {
	_, ok, err := l.check(ctx, entityID, leaveTypeID, days)
	return ok, err
}

func (l *Ledger) check(ctx context.Context, entityID generic.EntityID, leaveTypeID string, days generic.Amount) (LeaveBalance, bool, error) {
	b, err := l.Balance(ctx, entityID, leaveTypeID)
	if err != nil {
		return LeaveBalance{}, false, err
	}
	if b.Unlimited {
		return b, true, nil
	}
	return b, b.Available.GreaterOrEqual(days), nil
}
