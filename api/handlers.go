/*
handlers.go - HTTP handlers for the leave portal

ENDPOINTS:
  Leave (authenticated, own data only):
    GET    /api/leave/balances           All balances of the caller
    GET    /api/leave/quotas             Bounded balances only
    GET    /api/leave/calculate          Day-count preview
    POST   /api/leave-requests           Submit a request
    DELETE /api/leave-requests/{id}      Cancel a pending request
    GET    /api/leave-requests           History (?leaveType=&year=)
    GET    /api/leave-requests/export    History as .xlsx (?year=)

  Holidays:
    GET    /api/holidays                 Company calendar (?year=)
    GET    /api/holidays/upcoming        Next holidays (?count=)
    POST   /api/holidays                 hr, superadmin
    DELETE /api/holidays/{id}            hr, superadmin

  Audit:
    GET    /api/audit                    hr, superadmin

Auth endpoints live in auth_handlers.go, scenarios in scenarios.go.

ERROR HANDLING:
  Domain errors are mapped in errors.go. Leave validation failures are
  400 with {errorKind, message}.
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/empowerflow/portal/auth"
	"github.com/empowerflow/portal/generic"
	"github.com/empowerflow/portal/leave"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the API persists. Both store/memory and store/sqlite
// satisfy it.
type Store interface {
	leave.RequestStore
	leave.BalanceStore
	leave.HolidayStore
	auth.UserStore
	generic.AuditLog
	Reset(ctx context.Context) error
}

type HandlerConfig struct {
	Clock        generic.Clock
	TokenSecret  string
	TokenTTL     time.Duration
	CancelPolicy leave.CancelPolicy
	Logger       *zap.Logger
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    Store
	Workflow *leave.Workflow
	Ledger   *leave.Ledger
	Calendar *leave.Calendar
	Auth     *auth.Service

	clock    generic.Clock
	validate *validator.Validate
	logger   *zap.Logger

	mu              sync.RWMutex
	currentScenario string
}

func NewHandler(store Store, cfg HandlerConfig) *Handler {
	if cfg.Clock == nil {
		cfg.Clock = generic.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}

	ledger := leave.NewLedger(store)
	h := &Handler{
		Store:  store,
		Ledger: ledger,
		Workflow: leave.NewWorkflow(store, ledger,
			leave.WithClock(cfg.Clock),
			leave.WithCancelPolicy(cfg.CancelPolicy),
			leave.WithAuditLog(store),
			leave.WithLogger(cfg.Logger),
		),
		Calendar: leave.NewCalendar(store, cfg.Clock),
		Auth:     auth.NewService(store, auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL, cfg.Clock), cfg.Clock, cfg.Logger),
		clock:    cfg.Clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   cfg.Logger.Named("api"),
	}
	h.Auth.OnSignup(h.grantStartingBalances)
	return h
}

// grantStartingBalances gives a new account the standard quotas.
func (h *Handler) grantStartingBalances(ctx context.Context, u auth.User) error {
	for _, b := range leave.StandardBalances() {
		if err := h.Store.SaveBalance(ctx, generic.EntityID(u.ID), b); err != nil {
			return err
		}
	}
	h.audit(ctx, generic.AuditEntry{
		ActorID:  u.ID,
		Action:   generic.AuditUserSignedUp,
		EntityID: generic.EntityID(u.ID),
		Subject:  u.ID,
		Payload:  map[string]any{"role": u.Role.String()},
	})
	return nil
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// BALANCES
// =============================================================================

// ListBalances returns every balance of the caller, in configured order.
func (h *Handler) ListBalances(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)
	balances, err := h.Ledger.Balances(r.Context(), id.EntityID())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTOs(balances))
}

// ListQuotas returns the caller's bounded balances.
func (h *Handler) ListQuotas(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)
	quotas, err := h.Ledger.Quotas(r.Context(), id.EntityID())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTOs(quotas))
}

// Calculate previews the days a range would charge.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, ok := parseDateParam(w, q.Get("start"), "start")
	if !ok {
		return
	}
	end, ok := parseDateParam(w, q.Get("end"), "end")
	if !ok {
		return
	}
	startSession, ok := parseSessionParam(w, q.Get("startSession"), "startSession")
	if !ok {
		return
	}
	endSession, ok := parseSessionParam(w, q.Get("endSession"), "endSession")
	if !ok {
		return
	}

	days := h.Workflow.Preview(start, end, startSession, endSession)
	writeJSON(w, http.StatusOK, CalculateDTO{
		StartDate:    start.String(),
		EndDate:      end.String(),
		StartSession: startSession.String(),
		EndSession:   endSession.String(),
		Days:         days.Float64(),
	})
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// SubmitLeaveRequest validates and stores a pending request for the caller.
func (h *Handler) SubmitLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := leave.SubmitInput{
		LeaveTypeID:   req.LeaveTypeID,
		Reason:        req.Reason,
		ContactNumber: req.ContactNumber,
	}
	var ok bool
	if in.StartDate, ok = parseOptionalDate(w, req.StartDate, "startDate"); !ok {
		return
	}
	if in.EndDate, ok = parseOptionalDate(w, req.EndDate, "endDate"); !ok {
		return
	}
	if in.StartSession, ok = parseSessionParam(w, req.StartSession, "startSession"); !ok {
		return
	}
	if in.EndSession, ok = parseSessionParam(w, req.EndSession, "endSession"); !ok {
		return
	}

	id := mustIdentity(r)
	created, err := h.Workflow.Submit(r.Context(), id.EntityID(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveRequestDTO(*created))
}

// CancelLeaveRequest withdraws one of the caller's pending requests.
func (h *Handler) CancelLeaveRequest(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)
	if err := h.Workflow.Cancel(r.Context(), id.EntityID(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLeaveRequests returns the caller's history, newest first.
func (h *Handler) ListLeaveRequests(w http.ResponseWriter, r *http.Request) {
	filter, ok := historyFilter(w, r)
	if !ok {
		return
	}
	id := mustIdentity(r)
	history, err := h.Workflow.History(r.Context(), id.EntityID(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTOs(history))
}

// ExportLeaveRequests streams the caller's history as a spreadsheet.
func (h *Handler) ExportLeaveRequests(w http.ResponseWriter, r *http.Request) {
	filter, ok := historyFilter(w, r)
	if !ok {
		return
	}
	id := mustIdentity(r)
	history, err := h.Workflow.History(r.Context(), id.EntityID(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	name := "leave-history.xlsx"
	if filter.Year != 0 {
		name = fmt.Sprintf("leave-history-%d.xlsx", filter.Year)
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := leave.WriteHistoryXLSX(w, history); err != nil {
		h.logger.Error("export history", zap.String("user_id", id.UserID), zap.Error(err))
	}
}

func historyFilter(w http.ResponseWriter, r *http.Request) (leave.HistoryFilter, bool) {
	q := r.URL.Query()
	var f leave.HistoryFilter
	if t := strings.TrimSpace(q.Get("leaveType")); t != "" && !strings.EqualFold(t, "all") {
		f.LeaveTypeID = t
	}
	year, ok := parseIntParam(w, q.Get("year"), "year")
	if !ok {
		return f, false
	}
	f.Year = year
	return f, true
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// ListHolidays returns the holidays of ?year= (default: this year).
// year=0 lists every stored holiday.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := generic.TodayFrom(h.clock).Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		var ok bool
		if year, ok = parseIntParam(w, raw, "year"); !ok {
			return
		}
	}
	holidays, err := h.Calendar.Holidays(r.Context(), year)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTOs(holidays))
}

// UpcomingHolidays returns the next ?count= holidays from today.
func (h *Handler) UpcomingHolidays(w http.ResponseWriter, r *http.Request) {
	count, ok := parseIntParam(w, r.URL.Query().Get("count"), "count")
	if !ok {
		return
	}
	if count <= 0 {
		count = leave.DefaultUpcomingCount
	}
	holidays, err := h.Calendar.Upcoming(r.Context(), count)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTOs(holidays))
}

// CreateHoliday adds a company holiday.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	holiday, err := h.Calendar.Add(r.Context(), generic.Holiday{
		Date:      date,
		Name:      req.Name,
		Type:      generic.HolidayType(req.Type),
		Recurring: req.Recurring,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	id := mustIdentity(r)
	h.audit(r.Context(), generic.AuditEntry{
		ActorID: id.UserID,
		Action:  generic.AuditHolidayAdded,
		Subject: holiday.ID,
		Payload: map[string]any{"date": holiday.Date.String(), "name": holiday.Name},
	})
	writeJSON(w, http.StatusCreated, toHolidayDTOs([]generic.Holiday{holiday})[0])
}

// DeleteHoliday removes a company holiday.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	holidayID := chi.URLParam(r, "id")
	if err := h.Calendar.Remove(r.Context(), holidayID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	id := mustIdentity(r)
	h.audit(r.Context(), generic.AuditEntry{
		ActorID: id.UserID,
		Action:  generic.AuditHolidayRemoved,
		Subject: holidayID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// AUDIT
// =============================================================================

// ListAudit returns audit entries newest first.
// Query: entityId, action (comma separated), limit (default 100).
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := parseIntParam(w, q.Get("limit"), "limit")
	if !ok {
		return
	}
	if limit <= 0 {
		limit = 100
	}
	filter := generic.AuditFilter{Limit: limit}
	if e := q.Get("entityId"); e != "" {
		entity := generic.EntityID(e)
		filter.EntityID = &entity
	}
	for _, a := range strings.Split(q.Get("action"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			filter.Actions = append(filter.Actions, generic.AuditAction(a))
		}
	}

	entries, err := h.Store.QueryAudit(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditDTOs(entries))
}

func (h *Handler) audit(ctx context.Context, e generic.AuditEntry) {
	e.ID = uuid.NewString()
	e.Timestamp = h.clock.Now()
	if err := h.Store.AppendAudit(ctx, e); err != nil {
		h.logger.Warn("append audit entry", zap.String("action", string(e.Action)), zap.Error(err))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Message = err.Error()
	}
	writeJSON(w, status, resp)
}

// decodeValid decodes the body into v and runs its validate tags.
// It writes the 400 itself and reports whether the handler may continue.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag())
			}
			writeError(w, http.StatusBadRequest, "Validation failed", errors.New(strings.Join(fields, "; ")))
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// mustIdentity is for handlers mounted behind RequireIdentity.
func mustIdentity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

func parseDateParam(w http.ResponseWriter, raw, name string) (generic.TimePoint, bool) {
	if strings.TrimSpace(raw) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:     string(leave.KindMissingField),
			ErrorKind: string(leave.KindMissingField),
			Message:   "is required",
			Field:     name,
		})
		return generic.TimePoint{}, false
	}
	return parseOptionalDate(w, raw, name)
}

// parseOptionalDate maps "" to the zero day so the domain reports it missing.
func parseOptionalDate(w http.ResponseWriter, raw, name string) (generic.TimePoint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return generic.TimePoint{}, true
	}
	tp, err := generic.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s (use YYYY-MM-DD)", name), err)
		return generic.TimePoint{}, false
	}
	return tp, true
}

func parseSessionParam(w http.ResponseWriter, raw, name string) (leave.Session, bool) {
	s, err := leave.ParseSession(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name), err)
		return leave.SessionFull, false
	}
	return s, true
}

// parseIntParam treats "" as 0.
func parseIntParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name), err)
		return 0, false
	}
	return n, true
}
