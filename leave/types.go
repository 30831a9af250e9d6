// Package leave implements leave balances, the day-count calculator and the
// request workflow (submit, cancel, history) on top of the generic types.
package leave

import (
	"fmt"
	"strings"

	"github.com/empowerflow/portal/generic"
)

// =============================================================================
// SESSION - Full day or half day at a range boundary
// =============================================================================

type Session int

const (
	SessionFull Session = iota
	SessionFirstHalf
	SessionSecondHalf
)

func (s Session) String() string {
	switch s {
	case SessionFirstHalf:
		return "first_half"
	case SessionSecondHalf:
		return "second_half"
	default:
		return "full"
	}
}

func (s Session) IsHalf() bool { return s == SessionFirstHalf || s == SessionSecondHalf }

// ParseSession accepts "full", "first_half", "second_half" and their
// camel-case or hyphenated spellings. Empty means Full.
func ParseSession(raw string) (Session, error) {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(raw))
	switch norm {
	case "", "full", "fullday":
		return SessionFull, nil
	case "firsthalf", "morning":
		return SessionFirstHalf, nil
	case "secondhalf", "afternoon":
		return SessionSecondHalf, nil
	}
	return SessionFull, fmt.Errorf("unknown session %q", raw)
}

func (s Session) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Session) UnmarshalText(b []byte) error {
	v, err := ParseSession(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// =============================================================================
// REQUEST STATUS
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// IsTerminal is true for every state except Pending.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus is case-insensitive ("Approved" and "approved" both work).
func ParseStatus(raw string) (RequestStatus, error) {
	s := RequestStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s == "canceled" {
		s = StatusCancelled
	}
	if !s.Valid() {
		return "", fmt.Errorf("unknown request status %q", raw)
	}
	return s, nil
}

// =============================================================================
// LEAVE BALANCE
// =============================================================================

// LeaveBalance is the quota of one leave type for one person.
// Total is nil for types without a bounded quota. Unlimited types
// (e.g. loss of pay) are tracked as a running total and never block a request.
type LeaveBalance struct {
	LeaveTypeID string
	Available   generic.Amount
	Total       *generic.Amount
	Unit        generic.Unit
	Unlimited   bool
}

// Validate enforces Available <= Total when Total is known.
func (b LeaveBalance) Validate() error {
	if strings.TrimSpace(b.LeaveTypeID) == "" {
		return fmt.Errorf("leave balance: %w", ErrInvalidLeaveType)
	}
	if b.Total != nil && b.Available.GreaterThan(*b.Total) {
		return fmt.Errorf("leave balance %s: available %v exceeds total %v",
			b.LeaveTypeID, b.Available.Value, b.Total.Value)
	}
	return nil
}

// Bounded reports whether the balance is a real quota.
func (b LeaveBalance) Bounded() bool { return !b.Unlimited }

func (b LeaveBalance) clone() LeaveBalance {
	c := b
	if b.Total != nil {
		t := *b.Total
		c.Total = &t
	}
	return c
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

// LeaveRequest is one application for leave. ChargedDays is always
// derived by the calculator; callers never set it.
type LeaveRequest struct {
	ID            string
	Seq           int64 // numeric part of ID, used for ordering
	EntityID      generic.EntityID
	LeaveTypeID   string
	StartDate     generic.TimePoint
	EndDate       generic.TimePoint
	StartSession  Session
	EndSession    Session
	ChargedDays   generic.Amount
	Reason        string
	ContactNumber string
	Status        RequestStatus
	AppliedOn     generic.TimePoint
}

// FormatRequestID renders a sequence number as L001, L002, ...
func FormatRequestID(seq int64) string {
	return fmt.Sprintf("L%03d", seq)
}

// SubmitInput is what an employee fills in on the application form.
// Zero dates count as missing.
type SubmitInput struct {
	LeaveTypeID   string
	StartDate     generic.TimePoint
	EndDate       generic.TimePoint
	StartSession  Session
	EndSession    Session
	Reason        string
	ContactNumber string
}

// HistoryFilter narrows History. Zero values match everything.
type HistoryFilter struct {
	LeaveTypeID string
	Year        int // year of AppliedOn
}

func (f HistoryFilter) matches(r LeaveRequest) bool {
	if f.LeaveTypeID != "" && !strings.EqualFold(r.LeaveTypeID, f.LeaveTypeID) {
		return false
	}
	if f.Year != 0 && r.AppliedOn.Year() != f.Year {
		return false
	}
	return true
}
