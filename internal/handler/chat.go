package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/educhat/internal/middleware"
	"github.com/capitalize-ai/educhat/internal/model"
	"github.com/capitalize-ai/educhat/internal/service"
	"github.com/capitalize-ai/educhat/pkg/logger"
)

// Chatter answers chat requests and exposes session memory.
type Chatter interface {
	Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error)
	Session(ctx context.Context, sessionID string) (model.Session, error)
}

// InteractionReader returns the latest limit interactions of a session,
// oldest first.
type InteractionReader interface {
	Interactions(ctx context.Context, sessionID string, limit int) ([]model.InteractionEntry, error)
}

// SessionResponse is the body of GET /api/v1/sessions/{id}.
type SessionResponse struct {
	ID        string     `json:"id"`
	History   string     `json:"history"`
	Turns     int        `json:"turns"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// InteractionsResponse is the body of GET /api/v1/sessions/{id}/interactions.
type InteractionsResponse struct {
	Interactions []model.InteractionEntry `json:"interactions"`
}

// ChatHandler handles chat endpoints.
type ChatHandler struct {
	chat         Chatter
	interactions InteractionReader
	logger       *logger.Logger
}

// NewChatHandler creates a new chat handler. interactions may be nil when
// the interaction stream is disabled.
func NewChatHandler(chat Chatter, interactions InteractionReader, log *logger.Logger) *ChatHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatHandler{
		chat:         chat,
		interactions: interactions,
		logger:       log,
	}
}

// Chat handles POST /chat and POST /api/v1/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateChatRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.chat.Chat(ctx, &req)
	if err != nil {
		if service.IsClientError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithSession(middleware.GetCorrelationID(ctx), req.SessionID).
			Error("failed to answer chat request", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to generate answer")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Session handles GET /api/v1/sessions/{id}
func (h *ChatHandler) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.chat.Session(ctx, sessionID)
	if err != nil {
		h.logger.Error("failed to load session", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	resp := SessionResponse{
		ID:      sessionID,
		History: sess.History,
		Turns:   sess.Turns,
	}
	if !sess.UpdatedAt.IsZero() {
		resp.UpdatedAt = &sess.UpdatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// Interactions handles GET /api/v1/sessions/{id}/interactions. limit
// selects how many of the most recent turns are returned.
func (h *ChatHandler) Interactions(w http.ResponseWriter, r *http.Request) {
	if h.interactions == nil {
		writeError(w, http.StatusNotFound, "interaction stream is not enabled")
		return
	}

	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	entries, err := h.interactions.Interactions(ctx, sessionID, limit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error("failed to read interactions", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read interactions")
		return
	}
	if entries == nil {
		entries = []model.InteractionEntry{}
	}

	writeJSON(w, http.StatusOK, InteractionsResponse{Interactions: entries})
}
