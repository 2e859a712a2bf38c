package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campus-hub/college-hub/internal/domain/chat"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONVERSATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ConversationRepository implements chat.ConversationRepository for
// PostgreSQL. The UNIQUE constraint on pair_key guarantees one conversation
// per unordered pair; FindOrCreatePair resolves races through an idempotent
// upsert against it.
type ConversationRepository struct {
	conn *Connection
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(conn *Connection) *ConversationRepository {
	return &ConversationRepository{conn: conn}
}

const conversationColumns = `
	id, participants,
	last_message_content, last_message_sender, last_message_at,
	created_at, updated_at
`

// FindOrCreatePair returns the conversation for the pair, creating it when
// absent. Two concurrent calls for the same pair both land on the same row:
// ON CONFLICT DO NOTHING loses the race quietly and the follow-up SELECT
// picks the winner up.
func (r *ConversationRepository) FindOrCreatePair(ctx context.Context, candidate *chat.Conversation) (*chat.Conversation, bool, error) {
	if len(candidate.Participants) != 2 {
		return nil, false, chat.ErrEmptyParticipant
	}
	pairKey := chat.PairKey(candidate.Participants[0], candidate.Participants[1])

	insert := `
		INSERT INTO conversations (id, pair_key, participants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pair_key) DO NOTHING
	`

	result, err := r.conn.Exec(ctx, insert,
		candidate.ID,
		pairKey,
		candidate.Participants,
		candidate.CreatedAt,
		candidate.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert conversation: %w", err)
	}
	created := result.RowsAffected() == 1

	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE pair_key = $1`
	conv, err := scanConversation(r.conn.QueryRow(ctx, query, pairKey))
	if err != nil {
		return nil, false, err
	}

	return conv, created, nil
}

// GetByID returns a conversation by ID.
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	return scanConversation(r.conn.QueryRow(ctx, query, id))
}

// ListByParticipant returns the identity's conversations, most recent first.
func (r *ConversationRepository) ListByParticipant(ctx context.Context, identity string, limit, offset int) ([]*chat.Conversation, error) {
	query := `SELECT ` + conversationColumns + `
		FROM conversations
		WHERE $1 = ANY(participants)
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.conn.Query(ctx, query, identity, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	convs := make([]*chat.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}

	return convs, rows.Err()
}

// RecordLastMessage updates the denormalized last-message pointer.
// Last-write-wins by timestamp: an older message never overwrites a newer
// pointer.
func (r *ConversationRepository) RecordLastMessage(ctx context.Context, conversationID, content, senderID string, at time.Time) error {
	query := `
		UPDATE conversations SET
			last_message_content = $1,
			last_message_sender = $2,
			last_message_at = $3,
			updated_at = NOW()
		WHERE id = $4 AND (last_message_at IS NULL OR last_message_at <= $3)
	`

	if _, err := r.conn.Exec(ctx, query, content, senderID, at, conversationID); err != nil {
		return fmt.Errorf("failed to record last message: %w", err)
	}
	return nil
}

// Update persists participant-set changes.
func (r *ConversationRepository) Update(ctx context.Context, c *chat.Conversation) error {
	query := `
		UPDATE conversations SET
			participants = $1,
			updated_at = $2
		WHERE id = $3
	`

	result, err := r.conn.Exec(ctx, query, c.Participants, time.Now().UTC(), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return chat.ErrConversationNotFound
	}

	return nil
}

// Delete removes the conversation; messages go with it via ON DELETE CASCADE.
func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return chat.ErrConversationNotFound
	}

	return nil
}

// scanConversation scans a conversation from a row.
func scanConversation(row pgx.Row) (*chat.Conversation, error) {
	var (
		c             chat.Conversation
		lastContent   *string
		lastSender    *string
		lastTimestamp *time.Time
	)

	err := row.Scan(
		&c.ID,
		&c.Participants,
		&lastContent,
		&lastSender,
		&lastTimestamp,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, chat.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	if lastContent != nil && lastTimestamp != nil {
		sender := ""
		if lastSender != nil {
			sender = *lastSender
		}
		c.LastMessage = &chat.LastMessage{
			Content:   *lastContent,
			SenderID:  sender,
			Timestamp: *lastTimestamp,
		}
	}

	return &c, nil
}
