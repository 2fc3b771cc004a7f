package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nomadev-io/whatsapp-autopilot/internal/conversation"
	"github.com/nomadev-io/whatsapp-autopilot/pkg/logging"
)

type conversationLister interface {
	ListConversations(ctx context.Context, agentID uuid.UUID, limit int) ([]conversation.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]conversation.Message, error)
}

// AdminHandler serves the dashboard's read-only conversation views.
type AdminHandler struct {
	store  conversationLister
	logger *logging.Logger
}

func NewAdminHandler(store conversationLister, logger *logging.Logger) *AdminHandler {
	if store == nil {
		panic("handlers: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{store: store, logger: logger}
}

// ListConversations returns the most recent conversations for an agent.
// GET /admin/conversations?agent_id=<uuid>&limit=<n>
func (h *AdminHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(r.URL.Query().Get("agent_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agent_id"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	conversations, err := h.store.ListConversations(r.Context(), agentID, limit)
	if err != nil {
		h.logger.Error("list conversations", "error", err, "agent_id", agentID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if conversations == nil {
		conversations = []conversation.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

// ListMessages returns the full transcript of one conversation.
// GET /admin/conversations/{conversationID}/messages
func (h *AdminHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
		return
	}

	messages, err := h.store.ListMessages(r.Context(), conversationID)
	if err != nil {
		h.logger.Error("list messages", "error", err, "conversation_id", conversationID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if messages == nil {
		messages = []conversation.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
