/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface (leave requests, balances,
  holidays, users, audit log) on one SQLite database.

INTERFACES IMPLEMENTED:
  leave.RequestStore:  Leave requests + id sequence
  leave.BalanceStore:  Per-person balances, insertion ordered
  leave.HolidayStore:  Company calendar
  auth.UserStore:      Accounts
  generic.AuditLog:    Who did what when

KEY TABLES:
  leave_requests:  One row per request, id L001.. backed by seq
  sequences:       Monotonic counters (leave_request)
  leave_balances:  (entity_id, leave_type_id) with a position column
  holidays:        Calendar entries, unique per (company, date, name)
  users:           Accounts, email unique case-insensitive
  audit_log:       Append-only

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, so
  ":memory:" databases are shared by every call.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging).

USAGE:
  store, err := sqlite.New("./data/portal.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/empowerflow/portal/auth"
	"github.com/empowerflow/portal/generic"
	"github.com/empowerflow/portal/leave"
	_ "github.com/mattn/go-sqlite3"
)

const requestSequence = "leave_request"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ leave.RequestStore = (*Store)(nil)
	_ leave.BalanceStore = (*Store)(nil)
	_ leave.HolidayStore = (*Store)(nil)
	_ auth.UserStore     = (*Store)(nil)
	_ generic.AuditLog   = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_balances (
		entity_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL COLLATE NOCASE,
		position INTEGER NOT NULL,
		available TEXT NOT NULL,
		total TEXT,
		unit TEXT NOT NULL,
		unlimited BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (entity_id, leave_type_id)
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL UNIQUE,
		entity_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		start_session TEXT NOT NULL,
		end_session TEXT NOT NULL,
		charged_days TEXT NOT NULL,
		reason TEXT NOT NULL,
		contact_number TEXT,
		status TEXT NOT NULL,
		applied_on TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_entity
		ON leave_requests(entity_id, applied_on DESC);

	CREATE TABLE IF NOT EXISTS sequences (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		recurring BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_company_date_name
		ON holidays(company_id, date, name);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		ts TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		entity_id TEXT,
		subject TEXT,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears all data (for scenario loading).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"leave_requests", "sequences", "leave_balances", "holidays", "users", "audit_log"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// LEAVE REQUESTS (leave.RequestStore)
// =============================================================================

// SaveRequest inserts or updates a request and advances the sequence past its seq.
func (s *Store) SaveRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO leave_requests (id, seq, entity_id, leave_type_id, start_date, end_date,
			start_session, end_session, charged_days, reason, contact_number, status, applied_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			leave_type_id = excluded.leave_type_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			start_session = excluded.start_session,
			end_session = excluded.end_session,
			charged_days = excluded.charged_days,
			reason = excluded.reason,
			contact_number = excluded.contact_number,
			status = excluded.status
	`
	_, err = tx.ExecContext(ctx, query,
		r.ID, r.Seq, string(r.EntityID), r.LeaveTypeID,
		r.StartDate.String(), r.EndDate.String(),
		r.StartSession.String(), r.EndSession.String(),
		r.ChargedDays.Value.String(), r.Reason, nullString(r.ContactNumber),
		string(r.Status), r.AppliedOn.String(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("request seq %d: %w", r.Seq, generic.ErrAlreadyExists)
		}
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sequences (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = MAX(value, excluded.value)
	`, requestSequence, r.Seq)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// GetRequest retrieves a request by ID.
func (s *Store) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectRequests+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	requests, err := scanRequests(rows)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	return &requests[0], nil
}

// DeleteRequest removes a request. Unknown ids return generic.ErrNotFound.
func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM leave_requests WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

// ListRequests returns all requests of an entity in sequence order.
func (s *Store) ListRequests(ctx context.Context, entityID generic.EntityID) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectRequests+" WHERE entity_id = ? ORDER BY seq ASC", string(entityID))
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

// NextRequestSeq increments and returns the request counter.
func (s *Store) NextRequestSeq(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sequences (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
	`, requestSequence)
	if err != nil {
		return 0, err
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT value FROM sequences WHERE name = ?", requestSequence).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, tx.Commit()
}

const selectRequests = `
	SELECT id, seq, entity_id, leave_type_id, start_date, end_date, start_session,
		end_session, charged_days, reason, contact_number, status, applied_on
	FROM leave_requests`

func scanRequests(rows *sql.Rows) ([]leave.LeaveRequest, error) {
	defer rows.Close()

	var requests []leave.LeaveRequest
	for rows.Next() {
		var r leave.LeaveRequest
		var entityID, startDate, endDate, startSession, endSession, days, status, appliedOn string
		var contact sql.NullString
		if err := rows.Scan(
			&r.ID, &r.Seq, &entityID, &r.LeaveTypeID, &startDate, &endDate, &startSession,
			&endSession, &days, &r.Reason, &contact, &status, &appliedOn,
		); err != nil {
			return nil, err
		}

		r.EntityID = generic.EntityID(entityID)
		r.StartDate = parseDay(startDate)
		r.EndDate = parseDay(endDate)
		r.StartSession, _ = leave.ParseSession(startSession)
		r.EndSession, _ = leave.ParseSession(endSession)
		r.ChargedDays = parseAmount(days, string(generic.UnitDays))
		r.ContactNumber = contact.String
		r.Status = leave.RequestStatus(status)
		r.AppliedOn = parseDay(appliedOn)

		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// =============================================================================
// BALANCES (leave.BalanceStore)
// =============================================================================

// SaveBalance upserts a balance; new leave types go to the end of the list.
func (s *Store) SaveBalance(ctx context.Context, entityID generic.EntityID, b leave.LeaveBalance) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var total sql.NullString
	if b.Total != nil {
		total = sql.NullString{String: b.Total.Value.String(), Valid: true}
	}
	unit := b.Unit
	if unit == "" {
		unit = generic.UnitDays
	}

	query := `
		INSERT INTO leave_balances (entity_id, leave_type_id, position, available, total, unit, unlimited)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM leave_balances WHERE entity_id = ?), ?, ?, ?, ?)
		ON CONFLICT(entity_id, leave_type_id) DO UPDATE SET
			available = excluded.available,
			total = excluded.total,
			unit = excluded.unit,
			unlimited = excluded.unlimited
	`
	_, err := s.db.ExecContext(ctx, query,
		string(entityID), b.LeaveTypeID, string(entityID),
		b.Available.Value.String(), total, string(unit), b.Unlimited,
	)
	return err
}

// ListBalances returns an entity's balances in insertion order.
func (s *Store) ListBalances(ctx context.Context, entityID generic.EntityID) ([]leave.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT leave_type_id, available, total, unit, unlimited
		FROM leave_balances
		WHERE entity_id = ?
		ORDER BY position ASC
	`, string(entityID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []leave.LeaveBalance
	for rows.Next() {
		var b leave.LeaveBalance
		var available, unit string
		var total sql.NullString
		if err := rows.Scan(&b.LeaveTypeID, &available, &total, &unit, &b.Unlimited); err != nil {
			return nil, err
		}
		b.Unit = generic.Unit(unit)
		b.Available = parseAmount(available, unit)
		if total.Valid {
			t := parseAmount(total.String, unit)
			b.Total = &t
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// =============================================================================
// HOLIDAYS (leave.HolidayStore)
// =============================================================================

// SaveHoliday saves a holiday to the database.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, company_id, date, name, type, recurring, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			name = excluded.name,
			type = excluded.type,
			recurring = excluded.recurring
	`

	_, err := s.db.ExecContext(ctx, query,
		h.ID,
		h.CompanyID,
		h.Date.String(),
		h.Name,
		string(h.Type),
		h.Recurring,
		time.Now().UTC().Format(time.RFC3339),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("holiday %s on %s: %w", h.Name, h.Date, generic.ErrAlreadyExists)
	}
	return err
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

// ListHolidays returns every holiday ordered by date.
func (s *Store) ListHolidays(ctx context.Context) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, date, name, type, recurring
		FROM holidays
		ORDER BY date ASC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var h generic.Holiday
		var dateStr, typ string
		if err := rows.Scan(&h.ID, &h.CompanyID, &dateStr, &h.Name, &typ, &h.Recurring); err != nil {
			return nil, err
		}
		h.Date = parseDay(dateStr)
		h.Type = generic.HolidayType(typ)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// USERS (auth.UserStore)
// =============================================================================

// CreateUser inserts a user. Duplicate emails return generic.ErrAlreadyExists.
func (s *Store) CreateUser(ctx context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.Name, u.Role.String(), u.PasswordHash, u.CreatedAt.UTC().Format(time.RFC3339))
	if isUniqueConstraintError(err) {
		return fmt.Errorf("user %s: %w", u.Email, generic.ErrAlreadyExists)
	}
	return err
}

// DeleteUser removes an account. Balances and requests are left alone.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*auth.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *Store) getUser(ctx context.Context, column, value string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, role, password_hash, created_at FROM users WHERE "+column+" = ?",
		value,
	)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns all users ordered by email.
func (s *Store) ListUsers(ctx context.Context) ([]auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, email, name, role, password_hash, created_at FROM users ORDER BY email",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*auth.User, error) {
	var u auth.User
	var role, createdAt string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &createdAt); err != nil {
		return nil, err
	}
	r, err := auth.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	u.Role = r
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// =============================================================================
// AUDIT LOG (generic.AuditLog)
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode audit payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, ts, actor_id, action, entity_id, subject, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Timestamp.UTC().Format(time.RFC3339Nano), nullString(e.ActorID), string(e.Action),
		nullString(string(e.EntityID)), nullString(e.Subject), string(payload))
	return err
}

// QueryAudit returns matching entries newest first.
func (s *Store) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if f.EntityID != nil {
		where = append(where, "entity_id = ?")
		args = append(args, string(*f.EntityID))
	}
	if len(f.Actions) > 0 {
		marks := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			marks[i] = "?"
			args = append(args, string(a))
		}
		where = append(where, "action IN ("+strings.Join(marks, ", ")+")")
	}

	query := "SELECT id, ts, actor_id, action, entity_id, subject, payload_json FROM audit_log"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var e generic.AuditEntry
		var ts, action string
		var actor, entity, subject, payload sql.NullString
		if err := rows.Scan(&e.ID, &ts, &actor, &action, &entity, &subject, &payload); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.ActorID = actor.String
		e.Action = generic.AuditAction(action)
		e.EntityID = generic.EntityID(entity.String)
		e.Subject = subject.String
		if payload.Valid && payload.String != "" && payload.String != "null" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("decode audit payload %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseAmount(value, unit string) generic.Amount {
	return generic.Amount{
		Value: generic.MustParseDecimal(value),
		Unit:  generic.Unit(unit),
	}
}

func parseDay(s string) generic.TimePoint {
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}
	}
	return tp
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		errors.Is(err, generic.ErrAlreadyExists))
}
