package api

import (
	"net/http"

	"github.com/empowerflow/portal/auth"
	"github.com/go-chi/chi/v5"
)

// Login exchanges credentials for a session token and the caller's
// landing route.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	session, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionDTO{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      toUserDTO(session.User),
		Dashboard: session.Dashboard.Path(),
	})
}

// Signup registers an account with the standard starting balances.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	u, err := h.Auth.Signup(r.Context(), auth.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(*u))
}

// Logout is stateless: tokens expire on their own and the client drops
// its copy.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller and their landing route.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)
	writeJSON(w, http.StatusOK, MeDTO{User: identityDTO(id), Dashboard: id.Role.Dashboard().Path()})
}

// Dashboard answers whether the caller may open a route. Denials are 403
// with the route to redirect to. Anonymous callers are sent to login.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	route, err := auth.ParseRoute(chi.URLParam(r, "route"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown route", err)
		return
	}

	var decision auth.Decision
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		decision = auth.Decide(id.Role, route)
	} else {
		decision = auth.DecideAnonymous(route)
	}

	dto := DecisionDTO{Route: route.Path(), Allowed: decision.Allowed}
	if !decision.Allowed {
		dto.Redirect = decision.Redirect.Path()
		writeJSON(w, http.StatusForbidden, dto)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}
