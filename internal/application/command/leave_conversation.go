package command

import (
	"context"
	"errors"

	"github.com/campus-hub/college-hub/internal/domain/chat"
	"github.com/campus-hub/college-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEAVE CONVERSATION COMMAND
// Removes a participant. A direct conversation cannot survive with fewer
// than two members, so the last meaningful leave deletes the conversation
// and its messages.
// ══════════════════════════════════════════════════════════════════════════════

// LeaveConversationCommand contains the leaving participant.
type LeaveConversationCommand struct {
	ConversationID string
	ParticipantID  string
}

// Validate validates the command.
func (c LeaveConversationCommand) Validate() error {
	if c.ConversationID == "" {
		return errors.New("leave_conversation: conversation_id is required")
	}
	if c.ParticipantID == "" {
		return errors.New("leave_conversation: participant_id is required")
	}
	return nil
}

// LeaveConversationResult reports what happened to the conversation.
type LeaveConversationResult struct {
	// Deleted is true when the conversation was removed entirely.
	Deleted bool
}

// LeaveConversationHandler handles the LeaveConversationCommand.
type LeaveConversationHandler struct {
	conversations chat.ConversationRepository
	events        shared.EventPublisher
}

// NewLeaveConversationHandler creates a new LeaveConversationHandler.
func NewLeaveConversationHandler(
	conversations chat.ConversationRepository,
	events shared.EventPublisher,
) *LeaveConversationHandler {
	return &LeaveConversationHandler{conversations: conversations, events: events}
}

// Handle executes the leave.
func (h *LeaveConversationHandler) Handle(ctx context.Context, cmd LeaveConversationCommand) (*LeaveConversationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("chat", "Leave", shared.ErrInvalidInput, "invalid command", err)
	}

	conv, err := h.conversations.GetByID(ctx, cmd.ConversationID)
	if err != nil {
		return nil, shared.WrapError("chat", "Leave", shared.ErrNotFound, "conversation not found", err)
	}

	shouldDelete, err := conv.RemoveParticipant(cmd.ParticipantID)
	if err != nil {
		return nil, shared.WrapError("chat", "Leave", shared.ErrUnauthorized,
			"leaver is not a participant", err)
	}

	if shouldDelete {
		if err := h.conversations.Delete(ctx, conv.ID); err != nil {
			return nil, shared.WrapError("chat", "Leave", shared.ErrExternalService, "conversation delete failed", err)
		}
	} else {
		if err := h.conversations.Update(ctx, conv); err != nil {
			return nil, shared.WrapError("chat", "Leave", shared.ErrExternalService, "conversation update failed", err)
		}
	}

	if h.events != nil {
		_ = h.events.Publish(shared.MessageSentEvent{
			BaseEvent:      shared.NewBaseEvent(shared.EventConversationLeft, conv.ID),
			ConversationID: conv.ID,
			SenderID:       cmd.ParticipantID,
		})
	}

	return &LeaveConversationResult{Deleted: shouldDelete}, nil
}
