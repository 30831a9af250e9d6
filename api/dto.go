/*
dto.go - JSON shapes of the HTTP API

NAMING:
  - *DTO:     response bodies
  - *Request: request bodies

Dates are "YYYY-MM-DD". Day counts are numbers (0.5 steps).
Auth request bodies carry validator tags; leave submission is validated
by the leave package, which owns the error kinds.
*/
package api

import (
	"time"

	"github.com/empowerflow/portal/auth"
	"github.com/empowerflow/portal/generic"
	"github.com/empowerflow/portal/leave"
)

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=employee lead manager"`
}

type UserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type SessionDTO struct {
	Token     string  `json:"token"`
	ExpiresAt int64   `json:"expiresAt"`
	User      UserDTO `json:"user"`
	Dashboard string  `json:"dashboard"`
}

type MeDTO struct {
	User      UserDTO `json:"user"`
	Dashboard string  `json:"dashboard"`
}

type DecisionDTO struct {
	Route    string `json:"route"`
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
}

func toUserDTO(u auth.User) UserDTO {
	return UserDTO{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role.String()}
}

func identityDTO(id auth.Identity) UserDTO {
	return UserDTO{ID: id.UserID, Email: id.Email, Name: id.Name, Role: id.Role.String()}
}

// =============================================================================
// LEAVE
// =============================================================================

type BalanceDTO struct {
	LeaveTypeID string   `json:"leaveTypeId"`
	Available   float64  `json:"available"`
	Total       *float64 `json:"total,omitempty"`
	Unit        string   `json:"unit"`
	Unlimited   bool     `json:"unlimited"`
}

type SubmitLeaveRequest struct {
	LeaveTypeID   string `json:"leaveTypeId"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	StartSession  string `json:"startSession"`
	EndSession    string `json:"endSession"`
	Reason        string `json:"reason"`
	ContactNumber string `json:"contactNumber,omitempty"`
}

type LeaveRequestDTO struct {
	ID            string  `json:"id"`
	LeaveTypeID   string  `json:"leaveTypeId"`
	StartDate     string  `json:"startDate"`
	EndDate       string  `json:"endDate"`
	StartSession  string  `json:"startSession"`
	EndSession    string  `json:"endSession"`
	Days          float64 `json:"days"`
	Reason        string  `json:"reason"`
	ContactNumber string  `json:"contactNumber,omitempty"`
	Status        string  `json:"status"`
	AppliedOn     string  `json:"appliedOn"`
}

type CalculateDTO struct {
	StartDate    string  `json:"startDate"`
	EndDate      string  `json:"endDate"`
	StartSession string  `json:"startSession"`
	EndSession   string  `json:"endSession"`
	Days         float64 `json:"days"`
}

func toBalanceDTO(b leave.LeaveBalance) BalanceDTO {
	dto := BalanceDTO{
		LeaveTypeID: b.LeaveTypeID,
		Available:   b.Available.Float64(),
		Unit:        string(b.Unit),
		Unlimited:   b.Unlimited,
	}
	if b.Total != nil {
		t := b.Total.Float64()
		dto.Total = &t
	}
	return dto
}

func toBalanceDTOs(bs []leave.LeaveBalance) []BalanceDTO {
	out := make([]BalanceDTO, len(bs))
	for i, b := range bs {
		out[i] = toBalanceDTO(b)
	}
	return out
}

func toLeaveRequestDTO(r leave.LeaveRequest) LeaveRequestDTO {
	return LeaveRequestDTO{
		ID:            r.ID,
		LeaveTypeID:   r.LeaveTypeID,
		StartDate:     r.StartDate.String(),
		EndDate:       r.EndDate.String(),
		StartSession:  r.StartSession.String(),
		EndSession:    r.EndSession.String(),
		Days:          r.ChargedDays.Float64(),
		Reason:        r.Reason,
		ContactNumber: r.ContactNumber,
		Status:        string(r.Status),
		AppliedOn:     r.AppliedOn.String(),
	}
}

func toLeaveRequestDTOs(rs []leave.LeaveRequest) []LeaveRequestDTO {
	out := make([]LeaveRequestDTO, len(rs))
	for i, r := range rs {
		out[i] = toLeaveRequestDTO(r)
	}
	return out
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Recurring bool   `json:"recurring"`
}

type CreateHolidayRequest struct {
	Date      string `json:"date" validate:"required"`
	Name      string `json:"name" validate:"required,max=100"`
	Type      string `json:"type" validate:"omitempty,oneof='National Holiday' 'Optional Holiday'"`
	Recurring bool   `json:"recurring"`
}

func toHolidayDTOs(hs []generic.Holiday) []HolidayDTO {
	out := make([]HolidayDTO, len(hs))
	for i, h := range hs {
		out[i] = HolidayDTO{
			ID:        h.ID,
			Date:      h.Date.String(),
			Name:      h.Name,
			Type:      string(h.Type),
			Recurring: h.Recurring,
		}
	}
	return out
}

// =============================================================================
// SCENARIOS / AUDIT
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"id" validate:"required"`
}

type AuditEntryDTO struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	ActorID   string         `json:"actorId,omitempty"`
	Action    string         `json:"action"`
	EntityID  string         `json:"entityId,omitempty"`
	Subject   string         `json:"subject,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func toAuditDTOs(es []generic.AuditEntry) []AuditEntryDTO {
	out := make([]AuditEntryDTO, len(es))
	for i, e := range es {
		out[i] = AuditEntryDTO{
			ID:        e.ID,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			ActorID:   e.ActorID,
			Action:    string(e.Action),
			EntityID:  string(e.EntityID),
			Subject:   e.Subject,
			Payload:   e.Payload,
		}
	}
	return out
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx reply. ErrorKind is set for
// leave validation failures.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorKind string `json:"errorKind,omitempty"`
	Message   string `json:"message,omitempty"`
	Field     string `json:"field,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
}
