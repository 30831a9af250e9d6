/*
scenarios.go - Demo scenario loading

PURPOSE:
  Fills the store with accounts, balances, history and holidays from the
  scenarios embedded in the factory package, so the portal can be
  exercised without a live HR system.

HOW A SCENARIO LOADS:
 1. Reset the store (all data is dropped)
 2. Create each account with a bcrypt hash of its seed password
 3. Save its balances in document order
 4. Save its history (existing L-ids keep the id sequence ahead of them)
 5. Save the company holidays
 6. Append a scenario_loaded audit entry

USAGE VIA API:

	GET  /api/scenarios
	GET  /api/scenarios/current
	POST /api/scenarios/load   {"id": "default"}   (superadmin)
	POST /api/scenarios/reset                      (superadmin)

SEE ALSO:
  - factory/seed.go: scenario JSON and parsing
  - cmd/server/main.go: seeds an empty store at startup
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/empowerflow/portal/auth"
	"github.com/empowerflow/portal/factory"
	"github.com/empowerflow/portal/generic"
	"go.uber.org/zap"
)

// ListScenarios returns the embedded scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	infos, err := factory.Scenarios()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	dtos := make([]ScenarioDTO, len(infos))
	for i, s := range infos {
		dtos[i] = toScenarioDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the loaded scenario, or null.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.CurrentScenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	s, err := factory.LoadScenario(current)
	if err != nil {
		writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
		return
	}
	writeJSON(w, http.StatusOK, toScenarioDTO(s.ScenarioInfo))
}

// LoadScenario replaces all data with a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	id := mustIdentity(r)
	if err := h.ApplyScenario(r.Context(), req.ScenarioID, id.UserID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase drops all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.setCurrentScenario("")
	h.logger.Info("store reset", zap.String("user_id", mustIdentity(r).UserID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) CurrentScenario() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.currentScenario
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

// SeedIfEmpty loads scenarioID when the store has no accounts yet.
func (h *Handler) SeedIfEmpty(ctx context.Context, scenarioID string) (bool, error) {
	if scenarioID == "" {
		return false, nil
	}
	users, err := h.Store.ListUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("list users: %w", err)
	}
	if len(users) > 0 {
		return false, nil
	}
	return true, h.ApplyScenario(ctx, scenarioID, "")
}

// ApplyScenario resets the store and loads scenarioID into it.
// actorID is recorded in the audit entry and may be empty.
func (h *Handler) ApplyScenario(ctx context.Context, scenarioID, actorID string) error {
	s, err := factory.LoadScenario(scenarioID)
	if err != nil {
		return err
	}

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	h.setCurrentScenario("")

	for _, su := range s.Users {
		u := su.User
		if u.PasswordHash, err = auth.HashPassword(su.Password); err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		u.CreatedAt = h.clock.Now().UTC()
		if err := h.Store.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("create user %s: %w", u.Email, err)
		}

		entity := generic.EntityID(u.ID)
		for _, b := range su.Balances {
			if err := h.Store.SaveBalance(ctx, entity, b); err != nil {
				return fmt.Errorf("save %s balance for %s: %w", b.LeaveTypeID, u.Email, err)
			}
		}
		for _, req := range su.History {
			if err := h.Store.SaveRequest(ctx, req); err != nil {
				return fmt.Errorf("save request %s: %w", req.ID, err)
			}
		}
	}

	for _, hol := range s.Holidays {
		if err := h.Store.SaveHoliday(ctx, hol); err != nil {
			return fmt.Errorf("save holiday %s: %w", hol.Name, err)
		}
	}

	h.audit(ctx, generic.AuditEntry{
		ActorID: actorID,
		Action:  generic.AuditScenarioLoaded,
		Subject: s.ID,
		Payload: map[string]any{"users": len(s.Users), "holidays": len(s.Holidays)},
	})
	h.setCurrentScenario(s.ID)
	h.logger.Info("scenario loaded",
		zap.String("scenario", s.ID),
		zap.Int("users", len(s.Users)),
		zap.Int("holidays", len(s.Holidays)),
	)
	return nil
}

func toScenarioDTO(s factory.ScenarioInfo) ScenarioDTO {
	return ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description, Category: s.Category}
}
