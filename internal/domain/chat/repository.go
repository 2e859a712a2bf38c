package chat

import (
	"context"
	"time"
)

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	// FindOrCreatePair returns the conversation for the unordered pair,
	// creating it when absent. Safe under concurrent calls for the same
	// pair: the implementation must guarantee exactly one conversation per
	// pair (unique key on the sorted pair plus an idempotent upsert). The
	// boolean reports whether a new conversation was created.
	FindOrCreatePair(ctx context.Context, candidate *Conversation) (*Conversation, bool, error)

	// GetByID returns a conversation by ID.
	GetByID(ctx context.Context, id string) (*Conversation, error)

	// ListByParticipant returns the identity's conversations ordered by most
	// recent activity.
	ListByParticipant(ctx context.Context, identity string, limit, offset int) ([]*Conversation, error)

	// RecordLastMessage updates the denormalized last-message pointer.
	RecordLastMessage(ctx context.Context, conversationID, content, senderID string, at time.Time) error

	// Update persists participant-set changes.
	Update(ctx context.Context, c *Conversation) error

	// Delete removes the conversation and all of its messages.
	Delete(ctx context.Context, id string) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Create persists a message. Insertion order is the delivery order
	// within a conversation.
	Create(ctx context.Context, m *Message) error

	// GetByID returns a message by ID.
	GetByID(ctx context.Context, id string) (*Message, error)

	// ListByConversation returns up to limit messages of the conversation
	// created before the cursor (zero cursor means newest), in creation
	// order.
	ListByConversation(ctx context.Context, conversationID string, limit int, before time.Time) ([]*Message, error)

	// MarkRead adds the identity to the read set of each message (set
	// union, idempotent) and returns the IDs whose read set actually grew.
	MarkRead(ctx context.Context, messageIDs []string, identity string) ([]string, error)

	// CountUnread returns how many messages in the conversation were sent
	// by someone else and not yet read by the identity.
	CountUnread(ctx context.Context, conversationID, identity string) (int, error)
}
