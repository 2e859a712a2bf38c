package query

import (
	"context"
	"errors"
	"time"

	"github.com/campus-hub/college-hub/internal/domain/chat"
	"github.com/campus-hub/college-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET MESSAGE HISTORY QUERY
// Pages backwards through a conversation's messages in creation order. Only
// participants may read.
// ══════════════════════════════════════════════════════════════════════════════

const defaultMessagePageSize = 50

// GetMessageHistoryQuery identifies the conversation, the viewer and the page.
type GetMessageHistoryQuery struct {
	ConversationID string
	Identity       string
	Limit          int

	// Before is the cursor; zero means start from the newest message.
	Before time.Time
}

// Validate validates the query.
func (q GetMessageHistoryQuery) Validate() error {
	if q.ConversationID == "" {
		return errors.New("message_history: conversation_id is required")
	}
	if q.Identity == "" {
		return errors.New("message_history: identity is required")
	}
	if q.Limit < 0 {
		return errors.New("message_history: limit cannot be negative")
	}
	return nil
}

// GetMessageHistoryHandler handles the GetMessageHistoryQuery.
type GetMessageHistoryHandler struct {
	conversations chat.ConversationRepository
	messages      chat.MessageRepository
}

// NewGetMessageHistoryHandler creates a new GetMessageHistoryHandler.
func NewGetMessageHistoryHandler(
	conversations chat.ConversationRepository,
	messages chat.MessageRepository,
) *GetMessageHistoryHandler {
	return &GetMessageHistoryHandler{conversations: conversations, messages: messages}
}

// Handle returns the page of messages.
func (h *GetMessageHistoryHandler) Handle(ctx context.Context, q GetMessageHistoryQuery) ([]*chat.Message, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("chat", "MessageHistory", shared.ErrInvalidInput, "invalid query", err)
	}

	conv, err := h.conversations.GetByID(ctx, q.ConversationID)
	if err != nil {
		return nil, shared.WrapError("chat", "MessageHistory", shared.ErrNotFound, "conversation not found", err)
	}
	if !conv.HasParticipant(q.Identity) {
		return nil, shared.WrapError("chat", "MessageHistory", shared.ErrUnauthorized,
			"viewer is not a participant", chat.ErrNotParticipant)
	}

	limit := q.Limit
	if limit == 0 {
		limit = defaultMessagePageSize
	}

	msgs, err := h.messages.ListByConversation(ctx, conv.ID, limit, q.Before)
	if err != nil {
		return nil, shared.WrapError("chat", "MessageHistory", shared.ErrExternalService, "message lookup failed", err)
	}
	return msgs, nil
}
