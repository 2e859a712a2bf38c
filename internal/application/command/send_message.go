package command

import (
	"context"
	"errors"
	"time"

	"github.com/campus-hub/college-hub/internal/domain/chat"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEND MESSAGE COMMAND
// Persists a message in its conversation and bumps the conversation's
// last-message pointer. Only participants may send.
// ══════════════════════════════════════════════════════════════════════════════

// SendMessageCommand contains the data to send a message.
type SendMessageCommand struct {
	ConversationID string
	SenderID       string
	Content        string

	// AsOf is the send time (defaults to the handler clock when zero).
	AsOf time.Time
}

// Validate validates the command.
func (c SendMessageCommand) Validate() error {
	if c.ConversationID == "" {
		return errors.New("send_message: conversation_id is required")
	}
	if c.SenderID == "" {
		return errors.New("send_message: sender_id is required")
	}
	return nil
}

// SendMessageResult contains the persisted message.
type SendMessageResult struct {
	Message *chat.Message
}

// SendMessageHandler handles the SendMessageCommand.
type SendMessageHandler struct {
	conversations chat.ConversationRepository
	messages      chat.MessageRepository
	ids           IDGenerator
	clock         timeutil.Clock
	events        shared.EventPublisher
}

// NewSendMessageHandler creates a new SendMessageHandler.
func NewSendMessageHandler(
	conversations chat.ConversationRepository,
	messages chat.MessageRepository,
	ids IDGenerator,
	clock timeutil.Clock,
	events shared.EventPublisher,
) *SendMessageHandler {
	return &SendMessageHandler{
		conversations: conversations,
		messages:      messages,
		ids:           ids,
		clock:         clock,
		events:        events,
	}
}

// Handle executes the send.
func (h *SendMessageHandler) Handle(ctx context.Context, cmd SendMessageCommand) (*SendMessageResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("chat", "SendMessage", shared.ErrInvalidInput, "invalid command", err)
	}

	asOf := cmd.AsOf
	if asOf.IsZero() {
		asOf = h.clock.Now()
	}

	conv, err := h.conversations.GetByID(ctx, cmd.ConversationID)
	if err != nil {
		return nil, shared.WrapError("chat", "SendMessage", shared.ErrNotFound, "conversation not found", err)
	}
	if !conv.HasParticipant(cmd.SenderID) {
		return nil, shared.WrapError("chat", "SendMessage", shared.ErrUnauthorized,
			"sender is not a participant", chat.ErrNotParticipant)
	}

	msg, err := chat.NewMessage(h.ids.GenerateID(), conv.ID, cmd.SenderID, cmd.Content, asOf)
	if err != nil {
		return nil, shared.WrapError("chat", "SendMessage", shared.ErrValidation, "invalid message", err)
	}

	if err := h.messages.Create(ctx, msg); err != nil {
		return nil, shared.WrapError("chat", "SendMessage", shared.ErrExternalService, "message persistence failed", err)
	}

	if err := h.conversations.RecordLastMessage(ctx, conv.ID, msg.Content, msg.SenderID, msg.CreatedAt); err != nil {
		return nil, shared.WrapError("chat", "SendMessage", shared.ErrExternalService, "last-message update failed", err)
	}

	if h.events != nil {
		_ = h.events.Publish(shared.MessageSentEvent{
			BaseEvent:      shared.NewBaseEvent(shared.EventMessageSent, conv.ID),
			MessageID:      msg.ID,
			ConversationID: conv.ID,
			SenderID:       msg.SenderID,
		})
	}

	return &SendMessageResult{Message: msg}, nil
}
