package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"techlight-support/internal/domain"
	support_errors "techlight-support/pkg/errors"
)

type PostgresConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

const conversationColumns = `id, user_id, user_name, user_email, COALESCE(user_phone, ''), subject, category, status, assigned_to, assigned_to_name, created_at, last_message_at`

func scanConversation(row pgx.Row) (domain.Conversation, error) {
	var c domain.Conversation
	var status string
	err := row.Scan(&c.ID, &c.UserID, &c.UserName, &c.UserEmail, &c.UserPhone,
		&c.Subject, &c.Category, &status, &c.AssignedTo, &c.AssignedToName,
		&c.CreatedAt, &c.LastMessageAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Conversation{}, support_errors.ErrNotFound
		}
		return domain.Conversation{}, err
	}
	c.Status = domain.Status(status)
	return c, nil
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO conversations (id, user_id, user_name, user_email, user_phone, subject, category, status, assigned_to, assigned_to_name, created_at, last_message_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.UserID, c.UserName, c.UserEmail, c.UserPhone,
		c.Subject, c.Category, string(c.Status), c.AssignedTo, c.AssignedToName,
		c.CreatedAt, c.LastMessageAt)
	return err
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	return scanConversation(row)
}

func (r *PostgresConversationRepository) List(ctx context.Context, filter ConversationFilter) ([]domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations`
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		where = append(where, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY last_message_at DESC NULLS LAST, created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresConversationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE conversations SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or someone transitioned it first.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return support_errors.ErrInvalidTransition
	}
	return nil
}

func (r *PostgresConversationRepository) Claim(ctx context.Context, id, moderatorID uuid.UUID, moderatorName string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE conversations SET assigned_to = $2, assigned_to_name = $3
		WHERE id = $1 AND status <> $4 AND (assigned_to IS NULL OR assigned_to = $2)`,
		id, moderatorID, moderatorName, string(domain.StatusClosed))
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 0 {
		return nil
	}
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.Status == domain.StatusClosed {
		return support_errors.ErrConversationClosed
	}
	return support_errors.ErrAlreadyAssigned
}

func (r *PostgresConversationRepository) Release(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE conversations SET assigned_to = NULL, assigned_to_name = ''
		WHERE id = $1 AND status <> $2`,
		id, string(domain.StatusClosed))
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 0 {
		return nil
	}
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.Status == domain.StatusClosed {
		return support_errors.ErrConversationClosed
	}
	return nil
}

func (r *PostgresConversationRepository) TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE conversations SET last_message_at = $2
		WHERE id = $1 AND (last_message_at IS NULL OR last_message_at <= $2)`,
		id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Older timestamp is a no-op; only a missing row is an error.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
