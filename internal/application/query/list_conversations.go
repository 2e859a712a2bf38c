package query

import (
	"context"
	"errors"
	"time"

	"github.com/campus-hub/college-hub/internal/domain/chat"
	"github.com/campus-hub/college-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST CONVERSATIONS QUERY
// An identity's conversations ordered by most recent activity, each annotated
// with its unread count for that identity.
// ══════════════════════════════════════════════════════════════════════════════

const defaultConversationPageSize = 20

// ListConversationsQuery identifies the viewer and the page.
type ListConversationsQuery struct {
	Identity string
	Limit    int
	Offset   int
}

// Validate validates the query.
func (q ListConversationsQuery) Validate() error {
	if q.Identity == "" {
		return errors.New("list_conversations: identity is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return errors.New("list_conversations: limit and offset cannot be negative")
	}
	return nil
}

// ConversationView is one row of the conversation list.
type ConversationView struct {
	ID           string
	Participants []string
	LastMessage  *chat.LastMessage
	UnreadCount  int
	UpdatedAt    time.Time
}

// ListConversationsHandler handles the ListConversationsQuery.
type ListConversationsHandler struct {
	conversations chat.ConversationRepository
	messages      chat.MessageRepository
}

// NewListConversationsHandler creates a new ListConversationsHandler.
func NewListConversationsHandler(
	conversations chat.ConversationRepository,
	messages chat.MessageRepository,
) *ListConversationsHandler {
	return &ListConversationsHandler{conversations: conversations, messages: messages}
}

// Handle lists the viewer's conversations.
func (h *ListConversationsHandler) Handle(ctx context.Context, q ListConversationsQuery) ([]ConversationView, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("chat", "ListConversations", shared.ErrInvalidInput, "invalid query", err)
	}

	limit := q.Limit
	if limit == 0 {
		limit = defaultConversationPageSize
	}

	convs, err := h.conversations.ListByParticipant(ctx, q.Identity, limit, q.Offset)
	if err != nil {
		return nil, shared.WrapError("chat", "ListConversations", shared.ErrExternalService, "conversation lookup failed", err)
	}

	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		unread, err := h.messages.CountUnread(ctx, c.ID, q.Identity)
		if err != nil {
			return nil, shared.WrapError("chat", "ListConversations", shared.ErrExternalService, "unread count failed", err)
		}
		views = append(views, ConversationView{
			ID:           c.ID,
			Participants: c.Participants,
			LastMessage:  c.LastMessage,
			UnreadCount:  unread,
			UpdatedAt:    c.UpdatedAt,
		})
	}
	return views, nil
}
