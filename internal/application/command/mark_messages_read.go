package command

import (
	"context"
	"errors"

	"github.com/campus-hub/college-hub/internal/domain/chat"
	"github.com/campus-hub/college-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK MESSAGES READ COMMAND
// Adds the reader to the read set of each message. Read sets only grow;
// repeating the command is a no-op and reports zero updates.
// ══════════════════════════════════════════════════════════════════════════════

// MarkMessagesReadCommand contains the messages to acknowledge.
type MarkMessagesReadCommand struct {
	ConversationID string
	ReaderID       string
	MessageIDs     []string
}

// Validate validates the command.
func (c MarkMessagesReadCommand) Validate() error {
	if c.ConversationID == "" {
		return errors.New("mark_read: conversation_id is required")
	}
	if c.ReaderID == "" {
		return errors.New("mark_read: reader_id is required")
	}
	if len(c.MessageIDs) == 0 {
		return errors.New("mark_read: message_ids is required")
	}
	return nil
}

// MarkMessagesReadResult contains the IDs whose read set actually grew.
type MarkMessagesReadResult struct {
	UpdatedIDs []string
}

// MarkMessagesReadHandler handles the MarkMessagesReadCommand.
type MarkMessagesReadHandler struct {
	conversations chat.ConversationRepository
	messages      chat.MessageRepository
	events        shared.EventPublisher
}

// NewMarkMessagesReadHandler creates a new MarkMessagesReadHandler.
func NewMarkMessagesReadHandler(
	conversations chat.ConversationRepository,
	messages chat.MessageRepository,
	events shared.EventPublisher,
) *MarkMessagesReadHandler {
	return &MarkMessagesReadHandler{conversations: conversations, messages: messages, events: events}
}

// Handle executes the acknowledgement.
func (h *MarkMessagesReadHandler) Handle(ctx context.Context, cmd MarkMessagesReadCommand) (*MarkMessagesReadResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("chat", "MarkRead", shared.ErrInvalidInput, "invalid command", err)
	}

	conv, err := h.conversations.GetByID(ctx, cmd.ConversationID)
	if err != nil {
		return nil, shared.WrapError("chat", "MarkRead", shared.ErrNotFound, "conversation not found", err)
	}
	if !conv.HasParticipant(cmd.ReaderID) {
		return nil, shared.WrapError("chat", "MarkRead", shared.ErrUnauthorized,
			"reader is not a participant", chat.ErrNotParticipant)
	}

	updated, err := h.messages.MarkRead(ctx, cmd.MessageIDs, cmd.ReaderID)
	if err != nil {
		return nil, shared.WrapError("chat", "MarkRead", shared.ErrExternalService, "read update failed", err)
	}

	if len(updated) > 0 && h.events != nil {
		_ = h.events.Publish(shared.MessageSentEvent{
			BaseEvent:      shared.NewBaseEvent(shared.EventMessagesRead, conv.ID),
			ConversationID: conv.ID,
			SenderID:       cmd.ReaderID,
		})
	}

	return &MarkMessagesReadResult{UpdatedIDs: updated}, nil
}
