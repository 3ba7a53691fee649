package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"techlight-support/internal/domain"
)

// ConversationFilter narrows List results. Nil fields are ignored.
type ConversationFilter struct {
	Status     *domain.Status
	AssignedTo *uuid.UUID
	UserID     *uuid.UUID
}

type ConversationRepository interface {
	Create(ctx context.Context, c *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error)
	// List returns conversations newest activity first.
	List(ctx context.Context, filter ConversationFilter) ([]domain.Conversation, error)

	// UpdateStatus applies from -> to only if the stored status still
	// equals from; a stale write fails with ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) error

	// Claim sets the assignee only while the conversation is unclaimed
	// or already held by the same moderator. A different holder yields
	// ErrAlreadyAssigned; a closed conversation ErrConversationClosed.
	Claim(ctx context.Context, id, moderatorID uuid.UUID, moderatorName string) error
	Release(ctx context.Context, id uuid.UUID) error

	// TouchLastMessage never moves last_message_at backward.
	TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error
}

type MessageRepository interface {
	// Append assigns the next per-conversation sequence number and
	// persists the message. m.Seq is filled on return.
	Append(ctx context.Context, m *domain.Message) error
	// ListByConversation returns the full log, oldest first.
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
}
