package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists conversations and messages in Postgres.
type Store struct {
	pool Querier
}

// NewStore initializes the conversation store.
func NewStore(pool Querier) *Store {
	if pool == nil {
		panic("conversation: pgx pool required")
	}
	return &Store{pool: pool}
}

// ResolveActive finds the active conversation for (agent, contact phone) or
// creates one. The partial unique index on active conversations makes the
// create path safe under concurrent webhook deliveries: the losing insert
// lands on the winner's row via the conflict clause.
func (s *Store) ResolveActive(ctx context.Context, agentID, userID uuid.UUID, contactPhone, contactName string) (*Conversation, error) {
	selectQuery := `
		SELECT id, agent_id, user_id, contact_phone, contact_name, status, lead_score, created_at, updated_at
		FROM conversations
		WHERE agent_id = $1 AND contact_phone = $2 AND status = 'active'
		LIMIT 1
	`
	conv, err := s.scanConversation(s.pool.QueryRow(ctx, selectQuery, agentID, contactPhone))
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversation: select active: %w", err)
	}

	insertQuery := `
		INSERT INTO conversations (id, agent_id, user_id, contact_phone, contact_name, status, context, lead_score)
		VALUES ($1, $2, $3, $4, $5, 'active', '{}', 0)
		ON CONFLICT (agent_id, contact_phone) WHERE status = 'active'
		DO UPDATE SET updated_at = now()
		RETURNING id, agent_id, user_id, contact_phone, contact_name, status, lead_score, created_at, updated_at
	`
	conv, err = s.scanConversation(s.pool.QueryRow(ctx, insertQuery, uuid.New(), agentID, userID, contactPhone, contactName))
	if err != nil {
		return nil, fmt.Errorf("conversation: insert active: %w", err)
	}
	return conv, nil
}

func (s *Store) scanConversation(row pgx.Row) (*Conversation, error) {
	var conv Conversation
	if err := row.Scan(
		&conv.ID,
		&conv.AgentID,
		&conv.UserID,
		&conv.ContactPhone,
		&conv.ContactName,
		&conv.Status,
		&conv.LeadScore,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &conv, nil
}

// InsertInbound stores an inbound message. The unique index on
// whatsapp_message_id turns provider redeliveries into no-ops; the second
// return value reports whether a new row was written.
func (s *Store) InsertInbound(ctx context.Context, msg Message) (uuid.UUID, bool, error) {
	query := `
		INSERT INTO messages (
			id, conversation_id, agent_id, content, message_type, direction,
			sender_phone, sender_name, whatsapp_message_id, status, ai_generated
		)
		VALUES ($1, $2, $3, $4, $5, 'inbound', $6, $7, $8, 'received', false)
		ON CONFLICT (whatsapp_message_id) DO NOTHING
		RETURNING id
	`
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, query,
		uuid.New(),
		msg.ConversationID,
		msg.AgentID,
		msg.Content,
		msg.MessageType,
		msg.SenderPhone,
		msg.SenderName,
		msg.WhatsAppMessageID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("conversation: insert inbound message: %w", err)
	}
	return id, true, nil
}

// InsertOutbound stores a generated reply before dispatch.
func (s *Store) InsertOutbound(ctx context.Context, msg Message) (uuid.UUID, error) {
	query := `
		INSERT INTO messages (
			id, conversation_id, agent_id, content, message_type, direction,
			status, ai_generated, model, tokens_used
		)
		VALUES ($1, $2, $3, $4, 'text', 'outbound', 'pending', true, $5, $6)
		RETURNING id
	`
	var id uuid.UUID
	if err := s.pool.QueryRow(ctx, query,
		uuid.New(),
		msg.ConversationID,
		msg.AgentID,
		msg.Content,
		msg.Model,
		msg.TokensUsed,
	).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("conversation: insert outbound message: %w", err)
	}
	return id, nil
}

// RecentMessages returns up to limit messages for a conversation, oldest first.
func (s *Store) RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, conversation_id, agent_id, content, message_type, direction,
			sender_phone, sender_name, COALESCE(whatsapp_message_id, ''), status,
			delivered_at, read_at, ai_generated, COALESCE(model, ''), tokens_used, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: query recent messages: %w", err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// Query returns newest first; callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkSent records the provider message id after a successful dispatch.
func (s *Store) MarkSent(ctx context.Context, messageID uuid.UUID, whatsappMessageID string) error {
	query := `
		UPDATE messages
		SET whatsapp_message_id = $2, status = 'sent'
		WHERE id = $1
	`
	if _, err := s.pool.Exec(ctx, query, messageID, whatsappMessageID); err != nil {
		return fmt.Errorf("conversation: mark sent: %w", err)
	}
	return nil
}

// MarkFailed records a dispatch failure on a stored outbound message.
func (s *Store) MarkFailed(ctx context.Context, messageID uuid.UUID) error {
	query := `
		UPDATE messages
		SET status = 'failed'
		WHERE id = $1
	`
	if _, err := s.pool.Exec(ctx, query, messageID); err != nil {
		return fmt.Errorf("conversation: mark failed: %w", err)
	}
	return nil
}

// ApplyStatus updates the message matching a provider status event. Returns
// the number of rows touched; zero is expected for ids we never stored.
func (s *Store) ApplyStatus(ctx context.Context, whatsappMessageID, status string, occurredAt time.Time) (int64, error) {
	var deliveredAt, readAt *time.Time
	switch status {
	case DeliveryDelivered:
		deliveredAt = &occurredAt
	case DeliveryRead:
		readAt = &occurredAt
	}
	query := `
		UPDATE messages
		SET status = $2,
			delivered_at = COALESCE($3, delivered_at),
			read_at = COALESCE($4, read_at)
		WHERE whatsapp_message_id = $1
	`
	ct, err := s.pool.Exec(ctx, query, whatsappMessageID, status, deliveredAt, readAt)
	if err != nil {
		return 0, fmt.Errorf("conversation: apply status: %w", err)
	}
	return ct.RowsAffected(), nil
}

// ListConversations returns conversations for an agent, newest activity first.
func (s *Store) ListConversations(ctx context.Context, agentID uuid.UUID, limit int) ([]Conversation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, agent_id, user_id, contact_phone, contact_name, status, lead_score, created_at, updated_at
		FROM conversations
		WHERE agent_id = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: list conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.AgentID,
			&conv.UserID,
			&conv.ContactPhone,
			&conv.ContactName,
			&conv.Status,
			&conv.LeadScore,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("conversation: scan conversation: %w", err)
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// ListMessages returns all messages of a conversation in chronological order.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	query := `
		SELECT id, conversation_id, agent_id, content, message_type, direction,
			sender_phone, sender_name, COALESCE(whatsapp_message_id, ''), status,
			delivered_at, read_at, ai_generated, COALESCE(model, ''), tokens_used, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation: list messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]Message, error) {
	var out []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.AgentID,
			&msg.Content,
			&msg.MessageType,
			&msg.Direction,
			&msg.SenderPhone,
			&msg.SenderName,
			&msg.WhatsAppMessageID,
			&msg.Status,
			&msg.DeliveredAt,
			&msg.ReadAt,
			&msg.AIGenerated,
			&msg.Model,
			&msg.TokensUsed,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("conversation: scan message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}
