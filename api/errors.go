package api

import (
	"errors"
	"net/http"

	"github.com/empowerflow/portal/auth"
	"github.com/empowerflow/portal/factory"
	"github.com/empowerflow/portal/generic"
	"github.com/empowerflow/portal/leave"
	"go.uber.org/zap"
)

// writeDomainError maps an error from the domain packages to a status code
// and body. Anything unrecognised is a 500 and is logged.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if kind, ok := leave.KindOf(err); ok {
		resp := ErrorResponse{Error: string(kind), ErrorKind: string(kind), Message: err.Error()}
		var ve *leave.ValidationError
		if errors.As(err, &ve) {
			resp.Message = ve.Message
			resp.Field = ve.Field
		}
		writeJSON(w, kindStatus(kind), resp)
		return
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Authentication required", err)
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden", nil)
	case errors.Is(err, auth.ErrUserExists):
		writeError(w, http.StatusConflict, "Email already registered", nil)
	case errors.Is(err, auth.ErrUnknownRole):
		writeError(w, http.StatusBadRequest, "Unknown role", err)
	case errors.Is(err, leave.ErrInvalidHoliday):
		writeError(w, http.StatusBadRequest, "Invalid holiday", err)
	case errors.Is(err, factory.ErrUnknownScenario):
		writeError(w, http.StatusNotFound, "Scenario not found", err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case generic.IsConflict(err):
		writeError(w, http.StatusConflict, "Already exists", err)
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func kindStatus(k leave.ErrorKind) int {
	switch k {
	case leave.KindNotFound:
		return http.StatusNotFound
	case leave.KindInvalidState:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
