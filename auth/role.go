/*
Package auth provides identities, sessions and dashboard gating.

PURPOSE:
  Login and signup against a UserStore, HS256 session tokens, and the
  role-to-dashboard rules that decide which page a signed-in user may open.

ROLES AND ROUTES:
  Both are closed enums. Every mapping between them is a switch over all
  variants, so adding a role means touching each switch. Unknown role
  strings are rejected at parse time and never reach a lookup.

  Route                 Allowed roles
  /lead-dashboard       lead, superadmin
  /manager-dashboard    manager, superadmin
  /hr-dashboard         hr, superadmin
  /superadmin-dashboard superadmin
  /employee-dashboard   every role

  A denied user is redirected to the dashboard of their own role.

SEE ALSO:
  - gate.go: Access decisions
  - token.go: Session tokens
  - service.go: Login/signup
*/
package auth

import (
	"fmt"
	"strings"
)

// =============================================================================
// ROLE
// =============================================================================

type Role int

const (
	RoleEmployee Role = iota
	RoleLead
	RoleManager
	RoleHR
	RoleSuperAdmin
)

// Roles lists every role.
func Roles() []Role {
	return []Role{RoleEmployee, RoleLead, RoleManager, RoleHR, RoleSuperAdmin}
}

func (r Role) String() string {
	switch r {
	case RoleEmployee:
		return "employee"
	case RoleLead:
		return "lead"
	case RoleManager:
		return "manager"
	case RoleHR:
		return "hr"
	case RoleSuperAdmin:
		return "superadmin"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func (r Role) Valid() bool {
	return r >= RoleEmployee && r <= RoleSuperAdmin
}

// ParseRole is case-insensitive. "super_admin" and "super-admin" are
// accepted for superadmin.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(strings.TrimSpace(s))) {
	case "employee":
		return RoleEmployee, nil
	case "lead":
		return RoleLead, nil
	case "manager":
		return RoleManager, nil
	case "hr":
		return RoleHR, nil
	case "superadmin":
		return RoleSuperAdmin, nil
	}
	return RoleEmployee, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Dashboard is the landing page of the role.
func (r Role) Dashboard() Route {
	switch r {
	case RoleEmployee:
		return RouteEmployeeDashboard
	case RoleLead:
		return RouteLeadDashboard
	case RoleManager:
		return RouteManagerDashboard
	case RoleHR:
		return RouteHRDashboard
	case RoleSuperAdmin:
		return RouteSuperAdminDashboard
	}
	return RouteLogin
}

// IsAdmin is true for roles that manage company-wide data.
func (r Role) IsAdmin() bool {
	return r == RoleHR || r == RoleSuperAdmin
}
