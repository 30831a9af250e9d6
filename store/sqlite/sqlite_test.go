package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/empowerflow/portal/auth"
	"github.com/empowerflow/portal/generic"
	"github.com/empowerflow/portal/leave"
	"github.com/empowerflow/portal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func day(s string) generic.TimePoint {
	tp, err := generic.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

func sampleRequest(seq int64, entity generic.EntityID) leave.LeaveRequest {
	return leave.LeaveRequest{
		ID:            leave.FormatRequestID(seq),
		Seq:           seq,
		EntityID:      entity,
		LeaveTypeID:   leave.TypeAnnual,
		StartDate:     day("2024-01-10"),
		EndDate:       day("2024-01-12"),
		StartSession:  leave.SessionSecondHalf,
		EndSession:    leave.SessionFirstHalf,
		ChargedDays:   generic.NewAmount(2, generic.UnitDays),
		Reason:        "Family trip",
		ContactNumber: "+1 555 0100",
		Status:        leave.StatusPending,
		AppliedOn:     day("2024-01-08"),
	}
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestStore_RequestRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := sampleRequest(1, "emp-1")
	require.NoError(t, store.SaveRequest(ctx, want))

	got, err := store.GetRequest(ctx, "L001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.EntityID, got.EntityID)
	assert.True(t, want.StartDate.Equal(got.StartDate))
	assert.True(t, want.EndDate.Equal(got.EndDate))
	assert.Equal(t, leave.SessionSecondHalf, got.StartSession)
	assert.Equal(t, leave.SessionFirstHalf, got.EndSession)
	assert.Equal(t, "2", got.ChargedDays.String())
	assert.Equal(t, want.ContactNumber, got.ContactNumber)
	assert.Equal(t, leave.StatusPending, got.Status)
	assert.Equal(t, "2024-01-08", got.AppliedOn.String())

	missing, err := store.GetRequest(ctx, "L999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_SaveRequestUpdatesStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := sampleRequest(1, "emp-1")
	require.NoError(t, store.SaveRequest(ctx, r))
	r.Status = leave.StatusCancelled
	require.NoError(t, store.SaveRequest(ctx, r))

	got, err := store.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, got.Status)
}

func TestStore_DuplicateSeqRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRequest(ctx, sampleRequest(1, "emp-1")))
	clash := sampleRequest(1, "emp-1")
	clash.ID = "L001-copy"
	err := store.SaveRequest(ctx, clash)
	assert.ErrorIs(t, err, generic.ErrAlreadyExists)
}

func TestStore_ListAndDeleteRequests(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRequest(ctx, sampleRequest(2, "emp-1")))
	require.NoError(t, store.SaveRequest(ctx, sampleRequest(1, "emp-1")))
	require.NoError(t, store.SaveRequest(ctx, sampleRequest(3, "emp-2")))

	list, err := store.ListRequests(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "L001", list[0].ID)
	assert.Equal(t, "L002", list[1].ID)

	require.NoError(t, store.DeleteRequest(ctx, "L001"))
	assert.ErrorIs(t, store.DeleteRequest(ctx, "L001"), generic.ErrNotFound)

	list, err = store.ListRequests(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_NextRequestSeq(t *testing.T) {
	// GIVEN: Seeded history up to L003
	// WHEN: Allocating ids
	// THEN: Allocation continues after the highest saved seq

	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.NextRequestSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	require.NoError(t, store.SaveRequest(ctx, sampleRequest(3, "emp-1")))
	next, err := store.NextRequestSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)

	// saving an older seq never moves the counter back
	require.NoError(t, store.SaveRequest(ctx, sampleRequest(2, "emp-1")))
	next, err = store.NextRequestSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), next)
}

// =============================================================================
// BALANCES
// =============================================================================

func TestStore_Balances(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, b := range leave.StandardBalances() {
		require.NoError(t, store.SaveBalance(ctx, "emp-1", b))
	}
	// update in place keeps the position, matching case-insensitively
	require.NoError(t, store.SaveBalance(ctx, "emp-1", leave.Quota("annual", 12.5, 20)))

	list, err := store.ListBalances(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, list, 4)

	assert.Equal(t, leave.TypeAnnual, list[0].LeaveTypeID)
	assert.Equal(t, "12.5", list[0].Available.String())
	require.NotNil(t, list[0].Total)
	assert.Equal(t, "20", list[0].Total.String())

	assert.Equal(t, leave.TypeLOP, list[3].LeaveTypeID)
	assert.True(t, list[3].Unlimited)
	assert.Nil(t, list[3].Total)

	other, err := store.ListBalances(ctx, "emp-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_SaveBalanceValidates(t *testing.T) {
	store := newTestStore(t)
	err := store.SaveBalance(context.Background(), "emp-1", leave.Quota(leave.TypeAnnual, 25, 20))
	assert.Error(t, err)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestStore_Holidays(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHoliday(ctx, generic.Holiday{ID: "h2", Date: day("2024-08-15"), Name: "Independence Day", Type: generic.HolidayNational}))
	require.NoError(t, store.SaveHoliday(ctx, generic.Holiday{ID: "h1", Date: day("2024-01-26"), Name: "Republic Day", Type: generic.HolidayNational, Recurring: true}))

	list, err := store.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "h1", list[0].ID)
	assert.True(t, list[0].Recurring)
	assert.Equal(t, generic.HolidayNational, list[0].Type)

	dup := generic.Holiday{ID: "h3", Date: day("2024-01-26"), Name: "Republic Day", Type: generic.HolidayNational}
	assert.ErrorIs(t, store.SaveHoliday(ctx, dup), generic.ErrAlreadyExists)

	require.NoError(t, store.DeleteHoliday(ctx, "h1"))
	assert.ErrorIs(t, store.DeleteHoliday(ctx, "h1"), generic.ErrNotFound)
}

// =============================================================================
// USERS
// =============================================================================

func TestStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

	u := auth.User{ID: "u-1", Email: "kara@example.com", Name: "Kara", Role: auth.RoleLead, PasswordHash: "hash", CreatedAt: created}
	require.NoError(t, store.CreateUser(ctx, u))

	got, err := store.GetUserByEmail(ctx, "KARA@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
	assert.True(t, created.Equal(got.CreatedAt))

	byID, err := store.GetUser(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, auth.RoleLead, byID.Role)

	missing, err := store.GetUser(ctx, "u-2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := u
	dup.ID = "u-2"
	dup.Email = "Kara@Example.com"
	assert.ErrorIs(t, store.CreateUser(ctx, dup), generic.ErrAlreadyExists)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestStore_DeleteUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, auth.User{ID: "u-1", Email: "sam@example.com", Role: auth.RoleEmployee}))

	require.NoError(t, store.DeleteUser(ctx, "u-1"))
	assert.ErrorIs(t, store.DeleteUser(ctx, "u-1"), generic.ErrNotFound)

	got, err := store.GetUserByEmail(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, store.CreateUser(ctx, auth.User{ID: "u-2", Email: "sam@example.com", Role: auth.RoleEmployee}))
}

// =============================================================================
// AUDIT / RESET / PERSISTENCE
// =============================================================================

func TestStore_Audit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	emp := generic.EntityID("emp-1")

	entries := []generic.AuditEntry{
		{ID: "a1", Timestamp: now, ActorID: "emp-1", Action: generic.AuditRequestCreated, EntityID: emp, Subject: "L001", Payload: map[string]any{"days": "3"}},
		{ID: "a2", Timestamp: now.Add(time.Minute), ActorID: "emp-1", Action: generic.AuditRequestCancelled, EntityID: emp, Subject: "L001"},
		{ID: "a3", Timestamp: now.Add(2 * time.Minute), ActorID: "hr-1", Action: generic.AuditHolidayAdded, Subject: "h1"},
	}
	for _, e := range entries {
		require.NoError(t, store.AppendAudit(ctx, e))
	}

	all, err := store.QueryAudit(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a3", all[0].ID, "newest first")
	assert.Equal(t, "3", all[2].Payload["days"])
	assert.True(t, now.Equal(all[2].Timestamp))

	mine, err := store.QueryAudit(ctx, generic.AuditFilter{EntityID: &emp})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	created, err := store.QueryAudit(ctx, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditRequestCreated}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "L001", created[0].Subject)

	limited, err := store.QueryAudit(ctx, generic.AuditFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRequest(ctx, sampleRequest(7, "emp-1")))
	require.NoError(t, store.SaveBalance(ctx, "emp-1", leave.Quota(leave.TypeAnnual, 1, 2)))
	require.NoError(t, store.CreateUser(ctx, auth.User{ID: "u-1", Email: "a@example.com"}))

	require.NoError(t, store.Reset(ctx))

	reqs, _ := store.ListRequests(ctx, "emp-1")
	assert.Empty(t, reqs)
	bals, _ := store.ListBalances(ctx, "emp-1")
	assert.Empty(t, bals)
	users, _ := store.ListUsers(ctx)
	assert.Empty(t, users)

	seq, err := store.NextRequestSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq, "sequence restarts after reset")
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRequest(ctx, sampleRequest(1, "emp-1")))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetRequest(ctx, "L001")
	require.NoError(t, err)
	require.NotNil(t, got)
	seq, err := reopened.NextRequestSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}
