package web

import (
	"net/http"
	"strconv"

	"clic-tools/internal/app"

	"github.com/go-chi/chi/v5"
)

// listLocations handles GET /api/locations — the full tree with lock state.
func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListLocations(r.Context())
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Locations)
}

// listRacks handles GET /api/racks.
func (h *Handler) listRacks(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListRacks(r.Context())
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Locations)
}

// listLevels handles GET /api/racks/{rackID}/levels.
func (h *Handler) listLevels(w http.ResponseWriter, r *http.Request) {
	rackID, err := strconv.Atoi(chi.URLParam(r, "rackID"))
	if err != nil {
		writeError(w, r, "invalid rack id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.ListLevels(r.Context(), rackID)
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Locations)
}

// listProducts handles GET /api/products.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Products)
}

// createRack handles POST /api/admin/racks — provisions a rack subtree.
func (h *Handler) createRack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		Code   string `json:"code"`
		Levels int    `json:"levels"`
		Bins   int    `json:"bins"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.CreateRack(r.Context(), app.CreateRackRequest{
		Name:   req.Name,
		Code:   req.Code,
		Levels: req.Levels,
		Bins:   req.Bins,
	})
	if err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Rack)
}

// releaseLocks handles POST /api/admin/locks/release — force-clears lock
// state, the escape hatch for sessions whose owner is gone.
func (h *Handler) releaseLocks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocationIDs []int `json:"location_ids"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.ReleaseLocks(r.Context(), req.LocationIDs); err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clearSession handles DELETE /api/admin/sessions/{userID}.
func (h *Handler) clearSession(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, "invalid user id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if err := h.svc.ClearUserSession(r.Context(), userID); err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listNotifications handles GET /api/admin/notifications.
func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	notifications, err := h.svc.ListNotifications(r.Context(), limit)
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, notifications)
}
