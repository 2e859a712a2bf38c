package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campus-hub/college-hub/internal/domain/chat"
)

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MessageRepository implements chat.MessageRepository for PostgreSQL.
// Read receipts live in the read_by array; array_append under a NOT-contains
// guard makes MarkRead a commutative, idempotent set union.
type MessageRepository struct {
	conn *Connection
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(conn *Connection) *MessageRepository {
	return &MessageRepository{conn: conn}
}

const messageColumns = `
	id, conversation_id, sender_id, content, read_by, created_at
`

// Create persists a message.
func (r *MessageRepository) Create(ctx context.Context, m *chat.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, read_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		m.ID,
		m.ConversationID,
		m.SenderID,
		m.Content,
		m.ReadBy,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// GetByID returns a message by ID.
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*chat.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	return scanMessage(r.conn.QueryRow(ctx, query, id))
}

// ListByConversation returns up to limit messages created before the cursor,
// in creation order. A zero cursor means newest.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, limit int, before time.Time) ([]*chat.Message, error) {
	var (
		rows pgx.Rows
		err  error
	)

	// The inner query selects the page newest-first, the outer one restores
	// chronological order.
	if before.IsZero() {
		query := `
			SELECT ` + messageColumns + ` FROM (
				SELECT ` + messageColumns + `
				FROM messages
				WHERE conversation_id = $1
				ORDER BY created_at DESC
				LIMIT $2
			) page ORDER BY created_at ASC`
		rows, err = r.conn.Query(ctx, query, conversationID, limit)
	} else {
		query := `
			SELECT ` + messageColumns + ` FROM (
				SELECT ` + messageColumns + `
				FROM messages
				WHERE conversation_id = $1 AND created_at < $3
				ORDER BY created_at DESC
				LIMIT $2
			) page ORDER BY created_at ASC`
		rows, err = r.conn.Query(ctx, query, conversationID, limit, before)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]*chat.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

// MarkRead adds the identity to the read set of each message and returns the
// IDs whose read set actually grew. Idempotent.
func (r *MessageRepository) MarkRead(ctx context.Context, messageIDs []string, identity string) ([]string, error) {
	query := `
		UPDATE messages SET
			read_by = array_append(read_by, $2)
		WHERE id = ANY($1) AND NOT ($2 = ANY(read_by))
		RETURNING id
	`

	rows, err := r.conn.Query(ctx, query, messageIDs, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to mark messages read: %w", err)
	}
	defer rows.Close()

	updated := make([]string, 0, len(messageIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan message id: %w", err)
		}
		updated = append(updated, id)
	}

	return updated, rows.Err()
}

// CountUnread returns how many messages in the conversation were sent by
// someone else and not yet read by the identity.
func (r *MessageRepository) CountUnread(ctx context.Context, conversationID, identity string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = $1
		  AND sender_id != $2
		  AND NOT ($2 = ANY(read_by))
	`, conversationID, identity).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// scanMessage scans a message from a row.
func scanMessage(row pgx.Row) (*chat.Message, error) {
	var m chat.Message

	err := row.Scan(
		&m.ID,
		&m.ConversationID,
		&m.SenderID,
		&m.Content,
		&m.ReadBy,
		&m.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, chat.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	return &m, nil
}
