// Package memory provides an in-memory implementation of every store
// interface, for tests and for running the server without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/empowerflow/portal/auth"
	"github.com/empowerflow/portal/generic"
	"github.com/empowerflow/portal/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store keeps everything in maps behind one RWMutex. Reads return copies.
type Store struct {
	mu       sync.RWMutex
	requests map[string]leave.LeaveRequest
	seq      int64
	balances map[generic.EntityID][]leave.LeaveBalance
	holidays map[string]generic.Holiday
	users    map[string]auth.User
	emails   map[string]string // email -> user id
	audit    []generic.AuditEntry
}

var (
	_ leave.RequestStore = (*Store)(nil)
	_ leave.BalanceStore = (*Store)(nil)
	_ leave.HolidayStore = (*Store)(nil)
	_ auth.UserStore     = (*Store)(nil)
	_ generic.AuditLog   = (*Store)(nil)
)

func New() *Store {
	s := &Store{}
	s.resetLocked()
	return s
}

func (s *Store) resetLocked() {
	s.requests = make(map[string]leave.LeaveRequest)
	s.seq = 0
	s.balances = make(map[generic.EntityID][]leave.LeaveBalance)
	s.holidays = make(map[string]generic.Holiday)
	s.users = make(map[string]auth.User)
	s.emails = make(map[string]string)
	s.audit = nil
}

// Reset drops all data.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return nil
}

func (s *Store) Close() error { return nil }

// =============================================================================
// REQUESTS
// =============================================================================

func (s *Store) GetRequest(_ context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *Store) SaveRequest(_ context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.requests {
		if id != r.ID && existing.Seq == r.Seq {
			return fmt.Errorf("request %s: seq %d taken by %s: %w", r.ID, r.Seq, id, generic.ErrAlreadyExists)
		}
	}
	s.requests[r.ID] = r
	if r.Seq > s.seq {
		s.seq = r.Seq
	}
	return nil
}

func (s *Store) DeleteRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[id]; !ok {
		return generic.ErrNotFound
	}
	delete(s.requests, id)
	return nil
}

// ListRequests returns entityID's requests in sequence order.
func (s *Store) ListRequests(_ context.Context, entityID generic.EntityID) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []leave.LeaveRequest
	for _, r := range s.requests {
		if r.EntityID == entityID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *Store) NextRequestSeq(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	return s.seq, nil
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Store) ListBalances(_ context.Context, entityID generic.EntityID) ([]leave.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.balances[entityID]
	out := make([]leave.LeaveBalance, len(src))
	for i, b := range src {
		out[i] = copyBalance(b)
	}
	return out, nil
}

// SaveBalance replaces the balance of the same leave type, keeping its
// position and original spelling, or appends a new one.
func (s *Store) SaveBalance(_ context.Context, entityID generic.EntityID, b leave.LeaveBalance) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.balances[entityID]
	for i := range list {
		if strings.EqualFold(list[i].LeaveTypeID, b.LeaveTypeID) {
			b.LeaveTypeID = list[i].LeaveTypeID
			list[i] = copyBalance(b)
			return nil
		}
	}
	s.balances[entityID] = append(list, copyBalance(b))
	return nil
}

func copyBalance(b leave.LeaveBalance) leave.LeaveBalance {
	if b.Total != nil {
		t := *b.Total
		b.Total = &t
	}
	return b
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (s *Store) SaveHoliday(_ context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.holidays {
		if id != h.ID && existing.CompanyID == h.CompanyID &&
			existing.Date.Equal(h.Date) && existing.Name == h.Name {
			return fmt.Errorf("holiday %s on %s: %w", h.Name, h.Date, generic.ErrAlreadyExists)
		}
	}
	s.holidays[h.ID] = h
	return nil
}

func (s *Store) DeleteHoliday(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.holidays[id]; !ok {
		return generic.ErrNotFound
	}
	delete(s.holidays, id)
	return nil
}

func (s *Store) ListHolidays(_ context.Context) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]generic.Holiday, 0, len(s.holidays))
	for _, h := range s.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) CreateUser(_ context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, taken := s.emails[email]; taken {
		return generic.ErrAlreadyExists
	}
	if _, taken := s.users[u.ID]; taken {
		return generic.ErrAlreadyExists
	}
	s.users[u.ID] = u
	s.emails[email] = u.ID
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return generic.ErrNotFound
	}
	delete(s.users, id)
	delete(s.emails, strings.ToLower(u.Email))
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]auth.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// =============================================================================
// AUDIT
// =============================================================================

func (s *Store) AppendAudit(_ context.Context, e generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

// QueryAudit returns matching entries newest first.
func (s *Store) QueryAudit(_ context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []generic.AuditEntry
	for i := len(s.audit) - 1; i >= 0; i-- {
		if f.Matches(s.audit[i]) {
			out = append(out, s.audit[i])
			if f.Limit > 0 && len(out) == f.Limit {
				break
			}
		}
	}
	return out, nil
}
