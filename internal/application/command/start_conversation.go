package command

import (
	"context"
	"errors"

	"github.com/campus-hub/college-hub/internal/domain/chat"
	"github.com/campus-hub/college-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// START CONVERSATION COMMAND
// At most one conversation exists per unordered pair of participants. The
// repository resolves races on the pair key, so two concurrent starts for the
// same pair both receive the same conversation.
// ══════════════════════════════════════════════════════════════════════════════

// StartConversationCommand contains the pair to connect.
type StartConversationCommand struct {
	// InitiatorID is the participant opening the conversation.
	InitiatorID string

	// PeerID is the other participant.
	PeerID string
}

// Validate validates the command.
func (c StartConversationCommand) Validate() error {
	if c.InitiatorID == "" {
		return errors.New("start_conversation: initiator_id is required")
	}
	if c.PeerID == "" {
		return errors.New("start_conversation: peer_id is required")
	}
	return nil
}

// StartConversationResult contains the resolved conversation.
type StartConversationResult struct {
	Conversation *chat.Conversation

	// Created is false when an existing conversation for the pair was reused.
	Created bool
}

// StartConversationHandler handles the StartConversationCommand.
type StartConversationHandler struct {
	conversations chat.ConversationRepository
	ids           IDGenerator
	events        shared.EventPublisher
}

// NewStartConversationHandler creates a new StartConversationHandler.
func NewStartConversationHandler(
	conversations chat.ConversationRepository,
	ids IDGenerator,
	events shared.EventPublisher,
) *StartConversationHandler {
	return &StartConversationHandler{conversations: conversations, ids: ids, events: events}
}

// Handle resolves or creates the pair conversation.
func (h *StartConversationHandler) Handle(ctx context.Context, cmd StartConversationCommand) (*StartConversationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("chat", "StartConversation", shared.ErrInvalidInput, "invalid command", err)
	}

	candidate, err := chat.NewConversation(h.ids.GenerateID(), cmd.InitiatorID, cmd.PeerID)
	if err != nil {
		return nil, shared.WrapError("chat", "StartConversation", shared.ErrValidation, "invalid pair", err)
	}

	conv, created, err := h.conversations.FindOrCreatePair(ctx, candidate)
	if err != nil {
		return nil, shared.WrapError("chat", "StartConversation", shared.ErrExternalService, "pair lookup failed", err)
	}

	if created && h.events != nil {
		_ = h.events.Publish(shared.MessageSentEvent{
			BaseEvent:      shared.NewBaseEvent(shared.EventConversationStarted, conv.ID),
			ConversationID: conv.ID,
			SenderID:       cmd.InitiatorID,
		})
	}

	return &StartConversationResult{Conversation: conv, Created: created}, nil
}
