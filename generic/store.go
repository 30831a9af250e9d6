/*
store.go - Audit trail interface

PURPOSE:
  Records who did what when, separately from the records themselves.
  A leave request removed by cancellation still leaves an audit entry.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: audit_log table
  - store/memory/memory.go: in-memory slice

SEE ALSO:
  - leave/workflow.go: Writes request_created / request_cancelled
  - api/handlers.go: Audit query endpoint
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// AUDIT LOG - Append-only
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	ActorID   string // who performed the action
	Action    AuditAction
	EntityID  EntityID
	Subject   string         // id of the affected record
	Payload   map[string]any // action-specific data
}

type AuditAction string

const (
	AuditRequestCreated   AuditAction = "request_created"
	AuditRequestCancelled AuditAction = "request_cancelled"
	AuditHolidayAdded     AuditAction = "holiday_added"
	AuditHolidayRemoved   AuditAction = "holiday_removed"
	AuditUserSignedUp     AuditAction = "user_signed_up"
	AuditScenarioLoaded   AuditAction = "scenario_loaded"
)

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// AuditFilter narrows a query. Zero values match everything.
// Results are newest first.
type AuditFilter struct {
	EntityID *EntityID
	Actions  []AuditAction
	Limit    int
}

// Matches reports whether e passes the filter, ignoring Limit.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.EntityID != nil && e.EntityID != *f.EntityID {
		return false
	}
	if len(f.Actions) == 0 {
		return true
	}
	for _, a := range f.Actions {
		if a == e.Action {
			return true
		}
	}
	return false
}
