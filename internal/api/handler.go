package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/felipepmaragno/chat-gateway/internal/conversation"
	"github.com/felipepmaragno/chat-gateway/internal/domain"
	"github.com/felipepmaragno/chat-gateway/internal/orchestrator"
	"github.com/felipepmaragno/chat-gateway/internal/quota"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HandlerConfig struct {
	Orchestrator  *orchestrator.Orchestrator
	Conversations conversation.Store
	Quota         quota.Store
	Integrations  []string
}

type Handler struct {
	orchestrator  *orchestrator.Orchestrator
	conversations conversation.Store
	quota         quota.Store
	integrations  []string
	mux           *http.ServeMux
}

func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		orchestrator:  cfg.Orchestrator,
		conversations: cfg.Conversations,
		quota:         cfg.Quota,
		integrations:  cfg.Integrations,
		mux:           http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /chat", h.handleChat)
	h.mux.HandleFunc("GET /conversation-history", h.handleConversationHistory)
	h.mux.HandleFunc("POST /admin/quota/reset", h.handleQuotaReset)
	h.mux.HandleFunc("DELETE /admin/conversations", h.handleDeleteConversation)
	h.mux.HandleFunc("POST /admin/conversations/clear", h.handleClearConversations)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /health/live", h.handleHealthLive)
	h.mux.HandleFunc("GET /health/ready", h.handleHealthReady)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := h.orchestrator.Chat(ctx, req.Message, req.ConversationID)
	if err != nil {
		slog.Error("chat failed", "error", err, "request_id", requestID)
		writeError(w, statusForError(err), err.Error())
		return
	}

	w.Header().Set("X-Request-ID", requestID)
	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) handleConversationHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	conv, err := h.orchestrator.History(r.Context(), conversationID)
	if err != nil {
		slog.Error("history lookup failed", "error", err, "conversation_id", conversationID)
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, conv)
}

type quotaResetRequest struct {
	ModelID int64 `json:"model_id"`
}

func (h *Handler) handleQuotaReset(w http.ResponseWriter, r *http.Request) {
	var req quotaResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ModelID == 0 {
		writeError(w, http.StatusBadRequest, "model_id is required")
		return
	}

	if err := h.quota.Reset(r.Context(), req.ModelID); err != nil {
		slog.Error("quota reset failed", "error", err, "model_id", req.ModelID)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	slog.Info("quota reset", "model_id", req.ModelID)
	writeSuccess(w, http.StatusOK, map[string]int64{"model_id": req.ModelID})
}

func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	if err := h.conversations.Delete(r.Context(), conversationID); err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		slog.Error("conversation delete failed", "error", err, "conversation_id", conversationID)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"conversation_id": conversationID})
}

func (h *Handler) handleClearConversations(w http.ResponseWriter, r *http.Request) {
	if err := h.conversations.ClearAll(r.Context()); err != nil {
		slog.Error("conversation clear failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	slog.Info("all conversations cleared")
	writeSuccess(w, http.StatusOK, map[string]string{"cleared": "all"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":       "healthy",
		"integrations": h.integrations,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// statusForError maps typed core failures onto HTTP statuses: an empty
// catalog is service-unavailable, configuration mismatches and upstream
// failures are bad-gateway, persistence failures are internal.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNoModelsConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNoConnectorForIntegration):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrUpstreamTransport):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrConversationPersistence):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "error",
		"message": message,
	})
}
