/*
workflow.go - Leave request lifecycle

PURPOSE:
  Submit, cancel and list leave requests for the acting person.

STATES:
  pending -> approved | rejected | cancelled   (all three terminal)
  Only pending -> cancelled is triggered here, by the submitter.
  Approval and rejection belong to an administrative collaborator.

SUBMIT VALIDATION ORDER:
  1. leave type, start date, end date, reason present   (missing_field)
  2. start <= end                                         (invalid_range)
  3. chargeable days > 0                                  (zero_duration)
  4. leave type known for this person                     (invalid_leave_type)
  5. available balance covers the days                    (insufficient_balance)
  Nothing is written until all five pass. Balances are not decremented
  on submission.

CANCEL POLICY:
  CancelRemove (default) deletes the record.
  CancelRetain keeps it with status cancelled.
  Callers see the same operation either way.

CONCURRENCY:
  Submit and Cancel hold the workflow mutex across check and write so
  two calls in this process cannot interleave.

SEE ALSO:
  - calculator.go: Day count
  - ledger.go: Balance sufficiency
  - store.go: RequestStore
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/empowerflow/portal/generic"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CancelPolicy decides what cancelling does to the stored record.
type CancelPolicy int

const (
	CancelRemove CancelPolicy = iota
	CancelRetain
)

// ParseCancelPolicy accepts "remove" and "retain". Empty means remove.
func ParseCancelPolicy(s string) (CancelPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "remove", "delete":
		return CancelRemove, nil
	case "retain", "keep", "soft":
		return CancelRetain, nil
	}
	return CancelRemove, fmt.Errorf("unknown cancel policy %q", s)
}

func (p CancelPolicy) String() string {
	if p == CancelRetain {
		return "retain"
	}
	return "remove"
}

// =============================================================================
// WORKFLOW
// =============================================================================

type Workflow struct {
	mu       sync.Mutex
	requests RequestStore
	ledger   *Ledger
	clock    generic.Clock
	count    DayCounter
	policy   CancelPolicy
	audit    generic.AuditLog
	logger   *zap.Logger
}

type Option func(*Workflow)

func WithClock(c generic.Clock) Option { return func(w *Workflow) { w.clock = c } }
func WithDayCounter(f DayCounter) Option { return func(w *Workflow) { w.count = f } }
func WithCancelPolicy(p CancelPolicy) Option { return func(w *Workflow) { w.policy = p } }
func WithAuditLog(a generic.AuditLog) Option { return func(w *Workflow) { w.audit = a } }
func WithLogger(l *zap.Logger) Option { return func(w *Workflow) { w.logger = l } }

func NewWorkflow(requests RequestStore, ledger *Ledger, opts ...Option) *Workflow {
	w := &Workflow{
		requests: requests,
		ledger:   ledger,
		clock:    generic.SystemClock{},
		count:    CalculateDays,
		policy:   CancelRemove,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.L()
	}
	w.logger = w.logger.Named("leave.workflow")
	return w
}

// CancelPolicy reports the configured policy.
func (w *Workflow) CancelPolicy() CancelPolicy { return w.policy }

// Preview computes chargeable days without validating or writing anything.
func (w *Workflow) Preview(start, end generic.TimePoint, startSession, endSession Session) generic.Amount {
	return w.count(start, end, startSession, endSession)
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit validates in and stores a new pending request for entityID.
func (w *Workflow) Submit(ctx context.Context, entityID generic.EntityID, in SubmitInput) (*LeaveRequest, error) {
	in.LeaveTypeID = strings.TrimSpace(in.LeaveTypeID)
	in.Reason = strings.TrimSpace(in.Reason)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)

	switch {
	case in.LeaveTypeID == "":
		return nil, missingField("leaveTypeId")
	case in.StartDate.IsZero():
		return nil, missingField("startDate")
	case in.EndDate.IsZero():
		return nil, missingField("endDate")
	case in.Reason == "":
		return nil, missingField("reason")
	}

	if in.EndDate.Before(in.StartDate) {
		return nil, &ValidationError{
			Kind:    KindInvalidRange,
			Field:   "endDate",
			Message: "end date cannot be before start date",
			Cause:   generic.ErrInvalidPeriod,
		}
	}

	days := w.count(in.StartDate, in.EndDate, in.StartSession, in.EndSession)
	if !days.IsPositive() {
		return nil, &ValidationError{Kind: KindZeroDuration, Message: "selected range charges zero days"}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	balance, ok, err := w.ledger.check(ctx, entityID, in.LeaveTypeID, days)
	if errors.Is(err, ErrInvalidLeaveType) {
		return nil, &ValidationError{
			Kind:    KindInvalidLeaveType,
			Field:   "leaveTypeId",
			Message: fmt.Sprintf("unknown leave type %q", in.LeaveTypeID),
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ValidationError{
			Kind:    KindInsufficientBalance,
			Field:   "leaveTypeId",
			Message: fmt.Sprintf("insufficient %s leave balance", balance.LeaveTypeID),
			Cause:   &generic.InsufficientBalanceError{
				EntityID:  entityID,
				Resource:  balance.LeaveTypeID,
				Available: balance.Available,
				Requested: days,
			},
		}
	}

	seq, err := w.requests.NextRequestSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate request id: %w", err)
	}

	req := LeaveRequest{
		ID:            FormatRequestID(seq),
		Seq:           seq,
		EntityID:      entityID,
		LeaveTypeID:   balance.LeaveTypeID,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		StartSession:  in.StartSession,
		EndSession:    in.EndSession,
		ChargedDays:   days,
		Reason:        in.Reason,
		ContactNumber: in.ContactNumber,
		Status:        StatusPending,
		AppliedOn:     generic.TodayFrom(w.clock),
	}
	if err := w.requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save leave request: %w", err)
	}

	w.record(ctx, generic.AuditRequestCreated, req, map[string]any{
		"leave_type": req.LeaveTypeID,
		"start":      req.StartDate.String(),
		"end":        req.EndDate.String(),
		"days":       req.ChargedDays.String(),
	})
	w.logger.Info("leave request submitted",
		zap.String("request_id", req.ID),
		zap.String("entity_id", string(entityID)),
		zap.String("leave_type", req.LeaveTypeID),
		zap.String("days", req.ChargedDays.String()),
	)
	return &req, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel withdraws a pending request owned by entityID.
// Requests of other people are reported as not found.
func (w *Workflow) Cancel(ctx context.Context, entityID generic.EntityID, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	req, err := w.requests.GetRequest(ctx, id)
	if err != nil {
		return fmt.Errorf("get leave request: %w", err)
	}
	if req == nil || req.EntityID != entityID {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	if req.Status != StatusPending {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, req.Status)
	}

	switch w.policy {
	case CancelRetain:
		req.Status = StatusCancelled
		err = w.requests.SaveRequest(ctx, *req)
	default:
		err = w.requests.DeleteRequest(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("cancel leave request: %w", err)
	}

	w.record(ctx, generic.AuditRequestCancelled, *req, map[string]any{"policy": w.policy.String()})
	w.logger.Info("leave request cancelled",
		zap.String("request_id", id),
		zap.String("entity_id", string(entityID)),
		zap.Stringer("policy", w.policy),
	)
	return nil
}

// =============================================================================
// HISTORY
// =============================================================================

// History lists entityID's requests, newest AppliedOn first, ties broken
// by id descending.
func (w *Workflow) History(ctx context.Context, entityID generic.EntityID, filter HistoryFilter) ([]LeaveRequest, error) {
	all, err := w.requests.ListRequests(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}

	out := make([]LeaveRequest, 0, len(all))
	for _, r := range all {
		if filter.matches(r) {
			out = append(out, r)
		}
	}
	SortHistory(out)
	return out, nil
}

// SortHistory orders requests the way History returns them.
func SortHistory(rs []LeaveRequest) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].AppliedOn.Equal(rs[j].AppliedOn) {
			return rs[i].AppliedOn.After(rs[j].AppliedOn)
		}
		return rs[i].Seq > rs[j].Seq
	})
}

func (w *Workflow) record(ctx context.Context, action generic.AuditAction, r LeaveRequest, payload map[string]any) {
	if w.audit == nil {
		return
	}
	entry := generic.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: w.clock.Now(),
		ActorID:   string(r.EntityID),
		Action:    action,
		EntityID:  r.EntityID,
		Subject:   r.ID,
		Payload:   payload,
	}
	if err := w.audit.AppendAudit(ctx, entry); err != nil {
		w.logger.Warn("audit append failed", zap.String("action", string(action)), zap.Error(err))
	}
}
