package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/ecopickup/internal/lifecycle"
	"github.com/erazemk/ecopickup/internal/model"
)

// PickupsHandler exposes pickup reads and status changes.
type PickupsHandler struct {
	Lifecycle *lifecycle.Authority
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func pickupID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid pickup id")
		return 0, false
	}
	return id, true
}

// List handles GET /api/pickups. The result depends on the caller's role.
func (h *PickupsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidStatus(status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	pickups, err := h.Lifecycle.List(r.Context(), GetClaims(r.Context()).Actor(), status)
	if err != nil {
		lifecycleError(w, err)
		return
	}
	if pickups == nil {
		pickups = []model.Pickup{}
	}
	jsonResponse(w, http.StatusOK, pickups)
}

// Get handles GET /api/pickups/{id}.
func (h *PickupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pickupID(w, r)
	if !ok {
		return
	}
	p, err := h.Lifecycle.Get(r.Context(), GetClaims(r.Context()).Actor(), id)
	if err != nil {
		lifecycleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

// History handles GET /api/pickups/{id}/history.
func (h *PickupsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pickupID(w, r)
	if !ok {
		return
	}
	history, err := h.Lifecycle.History(r.Context(), GetClaims(r.Context()).Actor(), id)
	if err != nil {
		lifecycleError(w, err)
		return
	}
	if history == nil {
		history = []model.PickupHistory{}
	}
	jsonResponse(w, http.StatusOK, history)
}

// Accept handles POST /api/pickups/{id}/accept.
func (h *PickupsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := pickupID(w, r)
	if !ok {
		return
	}
	actor := GetClaims(r.Context()).Actor()
	p, err := h.Lifecycle.Accept(r.Context(), actor, id)
	if err != nil {
		slog.Warn("accept rejected", "user", actor.Username, "pickup", id, "error", err)
		lifecycleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

// UpdateStatus handles PUT /api/pickups/{id}/status.
func (h *PickupsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pickupID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		jsonError(w, http.StatusBadRequest, "status required")
		return
	}

	actor := GetClaims(r.Context()).Actor()
	p, err := h.Lifecycle.Transition(r.Context(), actor, id, req.Status)
	if err != nil {
		slog.Warn("status change rejected", "user", actor.Username, "pickup", id, "status", req.Status, "error", err)
		lifecycleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, p)
}
