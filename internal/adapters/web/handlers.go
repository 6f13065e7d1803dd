package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"clic-tools/internal/app"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Auth (public) ─────────────────────────────────────────────────────────
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (401 JSON if unauthenticated) ───────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// Warehouse structure
		r.Get("/api/locations", h.listLocations)
		r.Get("/api/racks", h.listRacks)
		r.Get("/api/racks/{rackID}/levels", h.listLevels)

		// Product catalog
		r.Get("/api/products", h.listProducts)

		// Guided population wizard. One active session per user; every
		// endpoint returns the full wizard view so the client can render
		// statelessly.
		r.Get("/api/wizard", h.wizardLoad)
		r.Post("/api/wizard/start", h.wizardStart)
		r.Post("/api/wizard/resume", h.wizardResume)
		r.Post("/api/wizard/abandon", h.wizardAbandon)
		r.Post("/api/wizard/assign", h.wizardAssign)
		r.Post("/api/wizard/back", h.wizardBack)
		r.Post("/api/wizard/finish", h.wizardFinish)

		// Cost assistant
		r.Post("/api/cost-assistant/prorate", h.prorateInvoice)

		// Admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Post("/api/admin/racks", h.createRack)
			r.Post("/api/admin/locks/release", h.releaseLocks)
			r.Delete("/api/admin/sessions/{userID}", h.clearSession)
			r.Get("/api/admin/notifications", h.listNotifications)
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
