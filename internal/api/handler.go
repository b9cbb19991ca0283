package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/overtech/overbot/internal/audit"
	"github.com/overtech/overbot/internal/catalog"
	"github.com/overtech/overbot/internal/orchestrator"
	"github.com/overtech/overbot/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Bot is the conversation surface the HTTP layer exposes.
type Bot interface {
	HandleMessage(ctx context.Context, in orchestrator.Incoming) (orchestrator.Result, error)
	RequestHandoff(sessionID, clientName, clientPhone string) (string, error)
	ClaimSession(sessionID, manager string) error
	AgentMessage(sessionID, body string) error
	CloseSession(sessionID string) error
}

// ProductSource abstracts catalog lookups for the REST and MCP layers.
type ProductSource interface {
	SearchWithFallback(ctx context.Context, query, category string) []catalog.Product
	GetBySKU(ctx context.Context, sku string) (catalog.Product, bool)
}

// Deps holds handler dependencies.
type Deps struct {
	Bot        Bot
	Store      *storage.Store
	Catalog    ProductSource
	Audit      audit.Recorder
	AgentToken string
}

// NewHandler returns the REST API router.
func NewHandler(deps Deps) http.Handler {
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}

	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/api/chat", handleChat(deps))
	r.Get("/api/chat/{sessionID}/history", handleHistory(deps))
	r.Post("/api/chat/{sessionID}/handoff", handleHandoff(deps))
	r.Get("/api/products/{sku}", handleProduct(deps))

	r.Route("/api/agent", func(r chi.Router) {
		r.Use(BearerAuth(deps.AgentToken))
		r.Post("/sessions/{sessionID}/claim", handleClaim(deps))
		r.Post("/sessions/{sessionID}/message", handleAgentMessage(deps))
		r.Post("/sessions/{sessionID}/close", handleClose(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type chatRequest struct {
	Message        string `json:"message"`
	SessionID      string `json:"session_id"`
	AttachmentRef  string `json:"attachment_ref,omitempty"`
	AttachmentType string `json:"attachment_type,omitempty"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		result, err := deps.Bot.HandleMessage(r.Context(), orchestrator.Incoming{
			SessionID:      req.SessionID,
			Body:           req.Message,
			AttachmentRef:  req.AttachmentRef,
			AttachmentType: req.AttachmentType,
		})
		if err != nil {
			writeChatError(w, deps, req.SessionID, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// writeChatError maps orchestrator errors onto HTTP statuses. Unexpected
// faults are logged with full context, audited, and surfaced as a generic
// retryable error.
func writeChatError(w http.ResponseWriter, deps Deps, sessionID string, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyMessage):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required and must not be empty")
	case errors.Is(err, orchestrator.ErrSessionClosed):
		httpError(w, http.StatusConflict, "session_closed", "session is closed")
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "session not found")
	default:
		slog.Error("chat request failed", "session_id", sessionID, "error", err)
		deps.Audit.Record(storage.AuditEntry{
			SessionID: sessionID,
			Kind:      storage.EventAPIError,
			Severity:  storage.SeverityError,
			ErrorText: err.Error(),
		})
		httpError(w, http.StatusInternalServerError, "internal_error", "temporary failure, please retry")
	}
}

type historyItem struct {
	ID             string `json:"id"`
	Body           string `json:"body"`
	Sender         string `json:"sender"`
	Intent         string `json:"intent,omitempty"`
	AttachmentRef  string `json:"attachment_ref,omitempty"`
	AttachmentType string `json:"attachment_type,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		sess, err := deps.Store.GetSession(sessionID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session %s not found", sessionID)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "internal_error", "loading session: %v", err)
			return
		}

		msgs, err := deps.Store.ListMessages(sessionID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "internal_error", "loading history: %v", err)
			return
		}

		items := make([]historyItem, 0, len(msgs))
		for _, m := range msgs {
			items = append(items, historyItem{
				ID:             m.ID,
				Body:           m.Body,
				Sender:         m.Sender,
				Intent:         m.Intent,
				AttachmentRef:  m.AttachmentRef,
				AttachmentType: m.AttachmentType,
				CreatedAt:      m.CreatedAt.Format(time.RFC3339Nano),
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": sess.ID,
			"status":     sess.Status,
			"manager":    sess.Manager,
			"messages":   items,
		})
	}
}

type handoffRequest struct {
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
}

func handleHandoff(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		var req handoffRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
				return
			}
		}

		status, err := deps.Bot.RequestHandoff(sessionID, req.ClientName, req.ClientPhone)
		if err != nil {
			writeSessionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"status":  status,
		})
	}
}

func handleProduct(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku := chi.URLParam(r, "sku")

		product, ok := deps.Catalog.GetBySKU(r.Context(), sku)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "product %s not found", sku)
			return
		}

		writeJSON(w, http.StatusOK, product)
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "session not found")
	case errors.Is(err, orchestrator.ErrSessionClosed):
		httpError(w, http.StatusConflict, "session_closed", "session is closed")
	case errors.Is(err, storage.ErrInvalidTransition):
		httpError(w, http.StatusConflict, "invalid_state", "%v", err)
	case errors.Is(err, orchestrator.ErrSessionNotClaimed):
		httpError(w, http.StatusConflict, "invalid_state", "session is not claimed")
	default:
		httpError(w, http.StatusInternalServerError, "internal_error", "%v", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   fmt.Sprintf(format, args...),
		"type":    errType,
	})
}
