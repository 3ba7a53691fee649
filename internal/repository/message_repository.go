package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"techlight-support/internal/domain"
)

type PostgresMessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

// appendAttempts bounds retries on the (conversation_id, seq) unique
// constraint when two instances append to the same log concurrently.
const appendAttempts = 3

func (r *PostgresMessageRepository) Append(ctx context.Context, m *domain.Message) error {
	var lastErr error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		err := r.db.QueryRow(ctx, `
			INSERT INTO messages (id, conversation_id, seq, sender_id, sender_name, sender_role, body, created_at)
			VALUES ($1, $2,
				(SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = $2),
				$3, $4, $5, $6, $7)
			RETURNING seq`,
			m.ID, m.ConversationID, m.SenderID, m.SenderName, string(m.SenderRole),
			m.Body, m.CreatedAt).Scan(&m.Seq)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (r *PostgresMessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, seq, sender_id, sender_name, sender_role, body, created_at
		FROM messages WHERE conversation_id = $1
		ORDER BY seq ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Seq, &m.SenderID,
			&m.SenderName, &role, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.SenderRole = domain.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}
