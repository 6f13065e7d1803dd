package web

import (
	"errors"
	"net/http"

	"clic-tools/internal/app"
	"clic-tools/internal/core"
)

// wizardLoad handles GET /api/wizard — the entry point of the guided run.
func (h *Handler) wizardLoad(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	result, err := h.svc.LoadWizard(r.Context(), claims.UserID)
	if err != nil {
		writeWizardError(w, r, err)
		return
	}
	writeJSON(w, result.View)
}

// wizardStart handles POST /api/wizard/start. A lock conflict is not an
// error: the view comes back in setup state with the conflicting locations.
func (h *Handler) wizardStart(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	var req struct {
		RackID   int   `json:"rack_id"`
		LevelIDs []int `json:"level_ids"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.StartWizard(r.Context(), app.StartWizardRequest{
		UserID:   claims.UserID,
		RackID:   req.RackID,
		LevelIDs: req.LevelIDs,
	})
	if err != nil {
		writeWizardError(w, r, err)
		return
	}
	writeJSON(w, result.View)
}

// wizardResume handles POST /api/wizard/resume.
func (h *Handler) wizardResume(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	result, err := h.svc.ResumeWizard(r.Context(), claims.UserID)
	if err != nil {
		writeWizardError(w, r, err)
		return
	}
	writeJSON(w, result.View)
}

// wizardAbandon handles POST /api/wizard/abandon.
func (h *Handler) wizardAbandon(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	result, err := h.svc.AbandonWizard(r.Context(), claims.UserID)
	if err != nil {
		writeWizardError(w, r, err)
		return
	}
	writeJSON(w, result.View)
}

// wizardAssign handles POST /api/wizard/assign. An empty product_code skips
// the current location.
func (h *Handler) wizardAssign(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	var req struct {
		ProductCode string `json:"product_code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.AssignItem(r.Context(), app.AssignItemRequest{
		UserID:      claims.UserID,
		ProductCode: req.ProductCode,
	})
	if err != nil {
		writeWizardError(w, r, err)
		return
	}
	writeJSON(w, result.View)
}

// wizardBack handles POST /api/wizard/back.
func (h *Handler) wizardBack(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	result, err := h.svc.StepBack(r.Context(), claims.UserID)
	if err != nil {
		writeWizardError(w, r, err)
		return
	}
	writeJSON(w, result.View)
}

// wizardFinish handles POST /api/wizard/finish.
func (h *Handler) wizardFinish(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	result, err := h.svc.FinishWizard(r.Context(), claims.UserID)
	if err != nil {
		writeWizardError(w, r, err)
		return
	}
	writeJSON(w, result.View)
}

// writeWizardError maps the wizard's sentinel errors onto HTTP statuses.
func writeWizardError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNoActiveSession):
		writeError(w, r, err.Error(), "NO_ACTIVE_SESSION", http.StatusConflict)
	case errors.Is(err, core.ErrActiveSessionExists):
		writeError(w, r, err.Error(), "SESSION_EXISTS", http.StatusConflict)
	case errors.Is(err, core.ErrSessionStale):
		writeError(w, r, err.Error(), "SESSION_STALE", http.StatusConflict)
	case errors.Is(err, core.ErrProductNotFound):
		writeError(w, r, err.Error(), "PRODUCT_NOT_FOUND", http.StatusUnprocessableEntity)
	default:
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
	}
}
