package leave

import (
	"context"

	"github.com/empowerflow/portal/generic"
)

// RequestStore persists leave requests.
// Get returns (nil, nil) when the id is unknown.
type RequestStore interface {
	GetRequest(ctx context.Context, id string) (*LeaveRequest, error)
	SaveRequest(ctx context.Context, r LeaveRequest) error
	DeleteRequest(ctx context.Context, id string) error
	ListRequests(ctx context.Context, entityID generic.EntityID) ([]LeaveRequest, error)

	// NextRequestSeq returns a number greater than every sequence handed
	// out or saved so far.
	NextRequestSeq(ctx context.Context) (int64, error)
}

// BalanceStore persists per-person balances.
// ListBalances returns leave types in the order they were first saved.
type BalanceStore interface {
	ListBalances(ctx context.Context, entityID generic.EntityID) ([]LeaveBalance, error)
	SaveBalance(ctx context.Context, entityID generic.EntityID, b LeaveBalance) error
}

// HolidayStore persists the company calendar.
// DeleteHoliday returns generic.ErrNotFound for an unknown id.
type HolidayStore interface {
	SaveHoliday(ctx context.Context, h generic.Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
	ListHolidays(ctx context.Context) ([]generic.Holiday, error)
}
