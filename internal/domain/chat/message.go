package chat

import (
	"errors"
	"strings"
	"time"
)

// MaxContentLength bounds message content, matching the transport's limit.
const MaxContentLength = 2000

var (
	// ErrMessageNotFound - message not found.
	ErrMessageNotFound = errors.New("message not found")

	// ErrEmptyContent - blank message content.
	ErrEmptyContent = errors.New("message content cannot be empty")

	// ErrContentTooLong - content exceeds MaxContentLength.
	ErrContentTooLong = errors.New("message content too long")
)

// Message belongs to exactly one conversation. ReadBy grows monotonically and
// always contains the sender from creation; membership of the sender in the
// conversation is checked at creation time by the send path.
type Message struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// ConversationID references the owning conversation.
	ConversationID string

	// SenderID is the authoring identity.
	SenderID string

	// Content is the trimmed message text.
	Content string

	// ReadBy holds the identities that have read the message.
	ReadBy []string

	// CreatedAt orders messages within a conversation.
	CreatedAt time.Time
}

// NewMessage creates a message authored by senderID. The sender is the first
// reader of their own message.
func NewMessage(id, conversationID, senderID, content string, at time.Time) (*Message, error) {
	if id == "" {
		return nil, errors.New("message id is required")
	}
	if conversationID == "" {
		return nil, ErrConversationNotFound
	}
	if senderID == "" {
		return nil, ErrEmptyParticipant
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}

	return &Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		ReadBy:         []string{senderID},
		CreatedAt:      at,
	}, nil
}

// IsReadBy reports whether the identity has read the message.
func (m *Message) IsReadBy(identity string) bool {
	for _, r := range m.ReadBy {
		if r == identity {
			return true
		}
	}
	return false
}

// MarkReadBy adds the identity to the read set. Idempotent; returns true only
// when the set actually grew.
func (m *Message) MarkReadBy(identity string) bool {
	if identity == "" || m.IsReadBy(identity) {
		return false
	}
	m.ReadBy = append(m.ReadBy, identity)
	return true
}
