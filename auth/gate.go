package auth

import (
	"fmt"
	"strings"
)

// =============================================================================
// ROUTE
// =============================================================================

type Route int

const (
	RouteLogin Route = iota
	RouteSignup
	RouteLeadDashboard
	RouteManagerDashboard
	RouteHRDashboard
	RouteSuperAdminDashboard
	RouteEmployeeDashboard
)

// Routes lists every route.
func Routes() []Route {
	return []Route{
		RouteLogin, RouteSignup,
		RouteLeadDashboard, RouteManagerDashboard, RouteHRDashboard,
		RouteSuperAdminDashboard, RouteEmployeeDashboard,
	}
}

func (r Route) Path() string {
	switch r {
	case RouteLogin:
		return "/"
	case RouteSignup:
		return "/signup"
	case RouteLeadDashboard:
		return "/lead-dashboard"
	case RouteManagerDashboard:
		return "/manager-dashboard"
	case RouteHRDashboard:
		return "/hr-dashboard"
	case RouteSuperAdminDashboard:
		return "/superadmin-dashboard"
	case RouteEmployeeDashboard:
		return "/employee-dashboard"
	}
	return "/"
}

func (r Route) String() string { return r.Path() }

// Public routes need no session.
func (r Route) Public() bool {
	return r == RouteLogin || r == RouteSignup
}

// AllowedRoles lists who may open r. Public routes return every role.
func (r Route) AllowedRoles() []Role {
	switch r {
	case RouteLeadDashboard:
		return []Role{RoleLead, RoleSuperAdmin}
	case RouteManagerDashboard:
		return []Role{RoleManager, RoleSuperAdmin}
	case RouteHRDashboard:
		return []Role{RoleHR, RoleSuperAdmin}
	case RouteSuperAdminDashboard:
		return []Role{RoleSuperAdmin}
	case RouteEmployeeDashboard, RouteLogin, RouteSignup:
		return Roles()
	}
	return nil
}

// Allows reports whether role may open r.
func (r Route) Allows(role Role) bool {
	for _, allowed := range r.AllowedRoles() {
		if allowed == role {
			return true
		}
	}
	return false
}

// ParseRoute accepts a path ("/hr-dashboard") or a bare name ("hr-dashboard",
// "hr").
func ParseRoute(s string) (Route, error) {
	name := strings.Trim(strings.ToLower(strings.TrimSpace(s)), "/")
	name = strings.TrimSuffix(name, "-dashboard")
	switch name {
	case "", "login":
		return RouteLogin, nil
	case "signup":
		return RouteSignup, nil
	case "lead":
		return RouteLeadDashboard, nil
	case "manager":
		return RouteManagerDashboard, nil
	case "hr":
		return RouteHRDashboard, nil
	case "superadmin":
		return RouteSuperAdminDashboard, nil
	case "employee":
		return RouteEmployeeDashboard, nil
	}
	return RouteLogin, fmt.Errorf("%w: %q", ErrUnknownRoute, s)
}

// =============================================================================
// GATE
// =============================================================================

// Decision is the outcome of opening a route. When Allowed is false the
// caller navigates to Redirect instead.
type Decision struct {
	Allowed  bool
	Redirect Route
}

// Decide gates route for a signed-in user with role.
func Decide(role Role, route Route) Decision {
	if route.Allows(role) {
		return Decision{Allowed: true, Redirect: route}
	}
	return Decision{Allowed: false, Redirect: role.Dashboard()}
}

// DecideAnonymous gates route for a visitor without a session.
func DecideAnonymous(route Route) Decision {
	if route.Public() {
		return Decision{Allowed: true, Redirect: route}
	}
	return Decision{Allowed: false, Redirect: RouteLogin}
}
