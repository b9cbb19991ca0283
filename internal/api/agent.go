package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/overtech/overbot/internal/storage"
)

type claimRequest struct {
	Manager string `json:"manager"`
}

func handleClaim(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		var req claimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Manager) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "manager is required")
			return
		}

		if err := deps.Bot.ClaimSession(sessionID, req.Manager); err != nil {
			writeSessionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"status":  storage.SessionWithManager,
			"manager": req.Manager,
		})
	}
}

type agentMessageRequest struct {
	Message string `json:"message"`
}

func handleAgentMessage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		var req agentMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required and must not be empty")
			return
		}

		if err := deps.Bot.AgentMessage(sessionID, req.Message); err != nil {
			writeSessionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handleClose(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		if err := deps.Bot.CloseSession(sessionID); err != nil {
			writeSessionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"status":  storage.SessionClosed,
		})
	}
}
