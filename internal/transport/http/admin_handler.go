package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"contest-reward-service/internal/app"
	"contest-reward-service/internal/domain"
)

// AdminHandler exposes the lifecycle and draw operations the administration
// surface calls. Contest authoring itself stays external.
type AdminHandler struct {
	lifecycle *app.LifecycleService
	draw      *app.DrawService
}

func NewAdminHandler(lifecycle *app.LifecycleService, draw *app.DrawService) *AdminHandler {
	return &AdminHandler{lifecycle: lifecycle, draw: draw}
}

// Register mounts the admin routes on mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /contests/{id}/activate", h.activate)
	mux.HandleFunc("POST /contests/{id}/end", h.endAndDraw)
	mux.HandleFunc("POST /contests/{id}/draw", h.drawOnce)
	mux.HandleFunc("GET /contests/{id}/draws", h.listDraws)
	mux.HandleFunc("GET /contests/{id}/pool", h.pool)
}

func (h *AdminHandler) activate(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.Activate(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (h *AdminHandler) endAndDraw(w http.ResponseWriter, r *http.Request) {
	entry, err := h.lifecycle.EndAndDraw(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *AdminHandler) drawOnce(w http.ResponseWriter, r *http.Request) {
	entry, err := h.draw.Draw(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *AdminHandler) listDraws(w http.ResponseWriter, r *http.Request) {
	entries, err := h.draw.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *AdminHandler) pool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.draw.EligiblePool(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrContestNotFound), errors.Is(err, domain.ErrParticipationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNoEligibleParticipants),
		errors.Is(err, domain.ErrConcurrentDraw),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
