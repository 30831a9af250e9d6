package leave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/empowerflow/portal/generic"
	"github.com/empowerflow/portal/leave"
	"github.com/empowerflow/portal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const emp = generic.EntityID("emp-1")

func newTestWorkflow(t *testing.T, opts ...leave.Option) (*leave.Workflow, *memory.Store) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	for _, b := range []leave.LeaveBalance{
		leave.Quota(leave.TypeAnnual, 12, 20),
		leave.Quota(leave.TypeSick, 8, 10),
		leave.Quota(leave.TypeCasual, 0.5, 5),
		leave.RunningTotal(leave.TypeLOP, 0),
	} {
		require.NoError(t, store.SaveBalance(ctx, emp, b))
	}

	base := []leave.Option{
		leave.WithClock(generic.ClockAt(2024, time.January, 8)),
		leave.WithAuditLog(store),
		leave.WithLogger(zap.NewNop()),
	}
	w := leave.NewWorkflow(store, leave.NewLedger(store), append(base, opts...)...)
	return w, store
}

func annual(start, end string) leave.SubmitInput {
	return leave.SubmitInput{
		LeaveTypeID: leave.TypeAnnual,
		StartDate:   day(start),
		EndDate:     day(end),
		Reason:      "Family trip",
	}
}

func assertKind(t *testing.T, err error, kind leave.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	got, ok := leave.KindOf(err)
	require.True(t, ok, "error %v outside the leave taxonomy", err)
	assert.Equal(t, kind, got)
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestWorkflow_Submit_CreatesPendingRequest(t *testing.T) {
	// GIVEN: Annual balance 12 of 20
	// WHEN: Submitting 2024-01-10 to 2024-01-12, full days
	// THEN: A pending request L001 charging 3 days is stored

	w, store := newTestWorkflow(t)
	ctx := context.Background()

	req, err := w.Submit(ctx, emp, annual("2024-01-10", "2024-01-12"))
	require.NoError(t, err)

	assert.Equal(t, "L001", req.ID)
	assert.Equal(t, leave.StatusPending, req.Status)
	assert.Equal(t, "3", req.ChargedDays.String())
	assert.Equal(t, "2024-01-08", req.AppliedOn.String())

	stored, err := store.GetRequest(ctx, "L001")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, *req, *stored)

	// balances are untouched by submission
	b, err := leave.NewLedger(store).Balance(ctx, emp, leave.TypeAnnual)
	require.NoError(t, err)
	assert.Equal(t, "12", b.Available.String())
}

func TestWorkflow_Submit_HalfDaySessions(t *testing.T) {
	w, _ := newTestWorkflow(t)
	in := annual("2024-02-01", "2024-02-01")
	in.StartSession = leave.SessionFirstHalf
	in.EndSession = leave.SessionSecondHalf

	req, err := w.Submit(context.Background(), emp, in)
	require.NoError(t, err)
	assert.Equal(t, "1", req.ChargedDays.String())
	assert.Equal(t, leave.SessionFirstHalf, req.StartSession)
	assert.Equal(t, leave.SessionSecondHalf, req.EndSession)
}

func TestWorkflow_Submit_IDsIncrease(t *testing.T) {
	w, _ := newTestWorkflow(t)
	ctx := context.Background()

	first, err := w.Submit(ctx, emp, annual("2024-03-01", "2024-03-01"))
	require.NoError(t, err)
	second, err := w.Submit(ctx, emp, annual("2024-03-04", "2024-03-04"))
	require.NoError(t, err)

	assert.Equal(t, "L001", first.ID)
	assert.Equal(t, "L002", second.ID)
	assert.Greater(t, second.Seq, first.Seq)
}

func TestWorkflow_Submit_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*leave.SubmitInput)
		field string
	}{
		{"leave type", func(in *leave.SubmitInput) { in.LeaveTypeID = "  " }, "leaveTypeId"},
		{"start date", func(in *leave.SubmitInput) { in.StartDate = generic.TimePoint{} }, "startDate"},
		{"end date", func(in *leave.SubmitInput) { in.EndDate = generic.TimePoint{} }, "endDate"},
		{"reason", func(in *leave.SubmitInput) { in.Reason = "" }, "reason"},
		{"blank reason", func(in *leave.SubmitInput) { in.Reason = " \t" }, "reason"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: A form with one required field left empty
			// WHEN: Submitting
			// THEN: MissingField naming that field, and nothing is stored

			w, store := newTestWorkflow(t)
			ctx := context.Background()
			in := annual("2024-01-10", "2024-01-12")
			tt.edit(&in)

			_, err := w.Submit(ctx, emp, in)
			assertKind(t, err, leave.KindMissingField)
			assert.ErrorIs(t, err, leave.ErrMissingField)

			var ve *leave.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)

			history, err := store.ListRequests(ctx, emp)
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}

func TestWorkflow_Submit_InvalidRange(t *testing.T) {
	w, store := newTestWorkflow(t)
	ctx := context.Background()

	_, err := w.Submit(ctx, emp, annual("2024-01-12", "2024-01-10"))
	assertKind(t, err, leave.KindInvalidRange)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	history, _ := store.ListRequests(ctx, emp)
	assert.Empty(t, history)
}

func TestWorkflow_Submit_ZeroDuration(t *testing.T) {
	// GIVEN: A day counter that charges nothing
	// WHEN: Submitting an otherwise valid request
	// THEN: ZeroDuration, nothing stored

	zero := func(_, _ generic.TimePoint, _, _ leave.Session) generic.Amount {
		return generic.NewAmount(0, generic.UnitDays)
	}
	w, store := newTestWorkflow(t, leave.WithDayCounter(zero))
	ctx := context.Background()

	_, err := w.Submit(ctx, emp, annual("2024-01-10", "2024-01-12"))
	assertKind(t, err, leave.KindZeroDuration)

	history, _ := store.ListRequests(ctx, emp)
	assert.Empty(t, history)
}

func TestWorkflow_Submit_UnknownLeaveType(t *testing.T) {
	w, _ := newTestWorkflow(t)
	in := annual("2024-01-10", "2024-01-10")
	in.LeaveTypeID = "Sabbatical"

	_, err := w.Submit(context.Background(), emp, in)
	assertKind(t, err, leave.KindInvalidLeaveType)
	assert.ErrorIs(t, err, leave.ErrInvalidLeaveType)
}

func TestWorkflow_Submit_InsufficientBalance(t *testing.T) {
	// GIVEN: Casual balance of 0.5 days
	// WHEN: Requesting a full day
	// THEN: InsufficientBalance with the shortfall detail

	w, store := newTestWorkflow(t)
	ctx := context.Background()
	in := annual("2024-01-10", "2024-01-10")
	in.LeaveTypeID = leave.TypeCasual

	_, err := w.Submit(ctx, emp, in)
	assertKind(t, err, leave.KindInsufficientBalance)
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)
	assert.ErrorIs(t, err, generic.ErrInsufficientBalance)

	var detail *generic.InsufficientBalanceError
	require.ErrorAs(t, err, &detail)
	assert.Equal(t, "0.5", detail.Available.String())
	assert.Equal(t, "1", detail.Requested.String())
	assert.Equal(t, "0.5", detail.Shortfall().String())

	history, _ := store.ListRequests(ctx, emp)
	assert.Empty(t, history)
}

func TestWorkflow_Submit_ExactBalanceFits(t *testing.T) {
	w, _ := newTestWorkflow(t)
	in := annual("2024-01-10", "2024-01-10")
	in.LeaveTypeID = leave.TypeCasual
	in.EndSession = leave.SessionFirstHalf

	req, err := w.Submit(context.Background(), emp, in)
	require.NoError(t, err)
	assert.Equal(t, "0.5", req.ChargedDays.String())
}

func TestWorkflow_Submit_UnlimitedTypeNeverBlocks(t *testing.T) {
	w, _ := newTestWorkflow(t)
	in := annual("2024-01-01", "2024-03-31")
	in.LeaveTypeID = "lop taken"

	req, err := w.Submit(context.Background(), emp, in)
	require.NoError(t, err)
	assert.Equal(t, leave.TypeLOP, req.LeaveTypeID, "canonical type id is stored")
}

func TestWorkflow_Submit_ValidationOrder(t *testing.T) {
	// missing reason is reported before the reversed range and the unknown type
	w, _ := newTestWorkflow(t)
	in := leave.SubmitInput{
		LeaveTypeID: "Sabbatical",
		StartDate:   day("2024-01-12"),
		EndDate:     day("2024-01-10"),
	}
	_, err := w.Submit(context.Background(), emp, in)
	assertKind(t, err, leave.KindMissingField)

	in.Reason = "x"
	_, err = w.Submit(context.Background(), emp, in)
	assertKind(t, err, leave.KindInvalidRange)
}

func TestWorkflow_Submit_WritesAudit(t *testing.T) {
	w, store := newTestWorkflow(t)
	ctx := context.Background()

	_, err := w.Submit(ctx, emp, annual("2024-01-10", "2024-01-12"))
	require.NoError(t, err)

	entries, err := store.QueryAudit(ctx, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditRequestCreated}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "L001", entries[0].Subject)
	assert.Equal(t, emp, entries[0].EntityID)
	assert.Equal(t, "3", entries[0].Payload["days"])
}

func TestWorkflow_Submit_Concurrent(t *testing.T) {
	// GIVEN: 20 goroutines submitting at once
	// THEN: 20 distinct ids

	w, store := newTestWorkflow(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := annual("2024-05-06", "2024-05-06")
			in.LeaveTypeID = leave.TypeLOP
			_, err := w.Submit(ctx, emp, in)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := store.ListRequests(ctx, emp)
	require.NoError(t, err)
	require.Len(t, history, 20)
	seen := map[string]bool{}
	for _, r := range history {
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
}

// =============================================================================
// CANCEL
// =============================================================================

func TestWorkflow_Cancel_RemovesPendingRequest(t *testing.T) {
	// GIVEN: A pending request
	// WHEN: The owner cancels it
	// THEN: It no longer appears in history

	w, _ := newTestWorkflow(t)
	ctx := context.Background()
	req, err := w.Submit(ctx, emp, annual("2024-01-10", "2024-01-12"))
	require.NoError(t, err)

	require.NoError(t, w.Cancel(ctx, emp, req.ID))

	history, err := w.History(ctx, emp, leave.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestWorkflow_Cancel_RetainPolicyKeepsRecord(t *testing.T) {
	w, _ := newTestWorkflow(t, leave.WithCancelPolicy(leave.CancelRetain))
	ctx := context.Background()
	req, err := w.Submit(ctx, emp, annual("2024-01-10", "2024-01-12"))
	require.NoError(t, err)

	require.NoError(t, w.Cancel(ctx, emp, req.ID))

	history, err := w.History(ctx, emp, leave.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, leave.StatusCancelled, history[0].Status)

	// a cancelled request is terminal
	err = w.Cancel(ctx, emp, req.ID)
	assertKind(t, err, leave.KindInvalidState)
}

func TestWorkflow_Cancel_NonPendingIsInvalidState(t *testing.T) {
	w, store := newTestWorkflow(t)
	ctx := context.Background()
	approved := leave.LeaveRequest{
		ID: "L001", Seq: 1, EntityID: emp, LeaveTypeID: leave.TypeAnnual,
		StartDate: day("2023-11-10"), EndDate: day("2023-11-12"),
		ChargedDays: generic.NewAmount(3, generic.UnitDays),
		Reason:      "Trip", Status: leave.StatusApproved, AppliedOn: day("2023-11-01"),
	}
	require.NoError(t, store.SaveRequest(ctx, approved))

	err := w.Cancel(ctx, emp, "L001")
	assertKind(t, err, leave.KindInvalidState)
	assert.ErrorIs(t, err, leave.ErrInvalidState)

	stored, _ := store.GetRequest(ctx, "L001")
	require.NotNil(t, stored)
	assert.Equal(t, leave.StatusApproved, stored.Status)
}

func TestWorkflow_Cancel_UnknownOrForeignIsNotFound(t *testing.T) {
	w, _ := newTestWorkflow(t)
	ctx := context.Background()

	err := w.Cancel(ctx, emp, "L999")
	assertKind(t, err, leave.KindNotFound)

	req, err := w.Submit(ctx, emp, annual("2024-01-10", "2024-01-10"))
	require.NoError(t, err)
	err = w.Cancel(ctx, "someone-else", req.ID)
	assert.True(t, errors.Is(err, leave.ErrRequestNotFound))
}

// =============================================================================
// HISTORY
// =============================================================================

func seedHistory(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	for _, r := range []leave.LeaveRequest{
		{ID: "L001", Seq: 1, LeaveTypeID: leave.TypeAnnual, AppliedOn: day("2023-11-01"), Status: leave.StatusApproved},
		{ID: "L002", Seq: 2, LeaveTypeID: leave.TypeSick, AppliedOn: day("2023-12-01"), Status: leave.StatusApproved},
		{ID: "L003", Seq: 3, LeaveTypeID: leave.TypeCasual, AppliedOn: day("2024-01-02"), Status: leave.StatusPending},
		{ID: "L004", Seq: 4, LeaveTypeID: leave.TypeAnnual, AppliedOn: day("2024-01-02"), Status: leave.StatusRejected},
	} {
		r.EntityID = emp
		r.StartDate, r.EndDate = r.AppliedOn, r.AppliedOn
		r.ChargedDays = generic.NewAmount(1, generic.UnitDays)
		r.Reason = "seed"
		require.NoError(t, store.SaveRequest(ctx, r))
	}
	require.NoError(t, store.SaveRequest(ctx, leave.LeaveRequest{
		ID: "L005", Seq: 5, EntityID: "other", LeaveTypeID: leave.TypeAnnual, AppliedOn: day("2024-01-03"),
	}))
}

func ids(rs []leave.LeaveRequest) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestWorkflow_History_OrderAndFilters(t *testing.T) {
	w, store := newTestWorkflow(t)
	seedHistory(t, store)
	ctx := context.Background()

	all, err := w.History(ctx, emp, leave.HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"L004", "L003", "L002", "L001"}, ids(all), "newest applied first, ties by id descending")

	annualOnly, err := w.History(ctx, emp, leave.HistoryFilter{LeaveTypeID: "annual"})
	require.NoError(t, err)
	assert.Equal(t, []string{"L004", "L001"}, ids(annualOnly))

	in2023, err := w.History(ctx, emp, leave.HistoryFilter{Year: 2023})
	require.NoError(t, err)
	assert.Equal(t, []string{"L002", "L001"}, ids(in2023))

	none, err := w.History(ctx, emp, leave.HistoryFilter{Year: 2022})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWorkflow_Submit_AfterSeededHistoryContinuesSequence(t *testing.T) {
	w, store := newTestWorkflow(t)
	seedHistory(t, store)

	req, err := w.Submit(context.Background(), emp, annual("2024-01-10", "2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, "L006", req.ID)
}

func TestParseCancelPolicy(t *testing.T) {
	for in, want := range map[string]leave.CancelPolicy{
		"": leave.CancelRemove, "remove": leave.CancelRemove, "Retain": leave.CancelRetain, "keep": leave.CancelRetain,
	} {
		got, err := leave.ParseCancelPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := leave.ParseCancelPolicy("archive")
	assert.Error(t, err)
}
