package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/ecopickup/internal/model"
	"github.com/erazemk/ecopickup/internal/store"
)

// AdminHandler handles the administrator endpoints.
type AdminHandler struct {
	DB *sql.DB
}

type verifyAgentRequest struct {
	VerificationStatus string `json:"verification_status"`
}

// Analytics handles GET /api/admin/analytics.
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := store.GetAnalytics(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to compute analytics", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to compute analytics")
		return
	}
	jsonResponse(w, http.StatusOK, a)
}

// Users handles GET /api/admin/users, optionally filtered by ?role=.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role != "" && !model.ValidRole(role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}

	users, err := store.ListUsers(r.Context(), h.DB, role)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Agents handles GET /api/admin/agents.
func (h *AdminHandler) Agents(w http.ResponseWriter, r *http.Request) {
	agents, err := store.ListAgents(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list agents", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list agents")
		return
	}
	if agents == nil {
		agents = []model.AgentProfile{}
	}
	jsonResponse(w, http.StatusOK, agents)
}

// VerifyAgent handles PUT /api/admin/agents/{id}/verify.
func (h *AdminHandler) VerifyAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var req verifyAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidVerification(req.VerificationStatus) {
		jsonError(w, http.StatusBadRequest, "verification_status must be pending, verified, or rejected")
		return
	}

	ok, err := store.SetAgentVerification(r.Context(), h.DB, id, req.VerificationStatus)
	if err != nil {
		slog.Error("failed to set agent verification", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update agent")
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "agent not found")
		return
	}

	agent, err := store.GetAgent(r.Context(), h.DB, id)
	if err != nil || agent == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get agent")
		return
	}

	slog.Info("agent verification changed",
		"user", GetClaims(r.Context()).Username,
		"agent", agent.Username,
		"verification", agent.VerificationStatus,
	)
	jsonResponse(w, http.StatusOK, agent)
}
