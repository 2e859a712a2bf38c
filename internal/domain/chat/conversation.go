// Package chat contains the messaging domain model for College Hub:
// conversations between identities and the messages within them.
// This is core business logic - there are no external dependencies here.
package chat

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrConversationNotFound - conversation not found.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrSelfConversation - a conversation needs two distinct identities.
	ErrSelfConversation = errors.New("cannot create conversation with yourself")

	// ErrNotParticipant - sender is not part of the conversation.
	ErrNotParticipant = errors.New("not a participant of this conversation")

	// ErrEmptyParticipant - blank identity in the participant set.
	ErrEmptyParticipant = errors.New("participant identity cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONVERSATION
// ══════════════════════════════════════════════════════════════════════════════

// LastMessage is the denormalized pointer to the most recent message, kept on
// the conversation for listing efficiency. Last-write-wins by timestamp.
type LastMessage struct {
	Content   string
	SenderID  string
	Timestamp time.Time
}

// Conversation is an unordered set of participant identities. For the
// two-party case exactly one conversation exists per unordered pair; the
// uniqueness is enforced by the persistence layer on the sorted pair key.
type Conversation struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// Participants holds the member identities, sorted.
	Participants []string

	// LastMessage is the denormalized most-recent-message pointer.
	LastMessage *LastMessage

	// CreatedAt is when the conversation was created.
	CreatedAt time.Time

	// UpdatedAt is when the conversation last changed.
	UpdatedAt time.Time
}

// PairKey returns the canonical key for an unordered two-party pair. Both
// orders of the same pair produce the same key, which carries the uniqueness
// constraint in the database.
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// NewConversation creates a two-party conversation between distinct
// identities.
func NewConversation(id, a, b string) (*Conversation, error) {
	if id == "" {
		return nil, errors.New("conversation id is required")
	}
	if a == "" || b == "" {
		return nil, ErrEmptyParticipant
	}
	if a == b {
		return nil, ErrSelfConversation
	}

	participants := []string{a, b}
	sort.Strings(participants)

	now := time.Now().UTC()

	return &Conversation{
		ID:           id,
		Participants: participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasParticipant reports whether the identity is a member.
func (c *Conversation) HasParticipant(identity string) bool {
	for _, p := range c.Participants {
		if p == identity {
			return true
		}
	}
	return false
}

// RemoveParticipant removes the identity from the member set and reports
// whether the conversation should be deleted: once fewer than two members
// remain there is nobody left to talk to, and the conversation and all its
// messages go away.
func (c *Conversation) RemoveParticipant(identity string) (shouldDelete bool, err error) {
	if !c.HasParticipant(identity) {
		return false, ErrNotParticipant
	}

	remaining := make([]string, 0, len(c.Participants)-1)
	for _, p := range c.Participants {
		if p != identity {
			remaining = append(remaining, p)
		}
	}
	c.Participants = remaining
	c.UpdatedAt = time.Now().UTC()

	return len(c.Participants) < 2, nil
}

// RecordLastMessage overwrites the denormalized pointer when the new message
// is at least as recent as the current one (last-write-wins by timestamp).
func (c *Conversation) RecordLastMessage(content, senderID string, at time.Time) {
	if c.LastMessage != nil && c.LastMessage.Timestamp.After(at) {
		return
	}
	c.LastMessage = &LastMessage{
		Content:   content,
		SenderID:  senderID,
		Timestamp: at,
	}
	c.UpdatedAt = time.Now().UTC()
}
