package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"techlight-support/internal/domain"
	"techlight-support/internal/events"
	"techlight-support/internal/repository"
	support_errors "techlight-support/pkg/errors"
	"techlight-support/pkg/logger"
)

// MessageService owns the append-only message log. Appending by a
// staff member to an unclaimed conversation also claims it for the
// sender; that auto-claim is a deliberate, documented side effect of
// Append, mirroring how moderators take ownership by replying.
type MessageService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	publisher     Broadcaster
	locks         *ConversationLocks
	logger        *logger.Logger
}

func NewMessageService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	publisher Broadcaster,
	locks *ConversationLocks,
	l *logger.Logger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		locks:         locks,
		logger:        l,
	}
}

// AppendResult carries the persisted message plus the conversation as
// it stands after the append, since appending may have claimed it.
type AppendResult struct {
	Message      domain.Message
	Conversation domain.Conversation
	AutoClaimed  bool
}

// Append writes one message to the conversation's log. The id and
// timestamp are server-assigned; the returned message is the
// authoritative copy so callers never re-derive it.
func (s *MessageService) Append(ctx context.Context, actor domain.Actor, conversationID uuid.UUID, body string) (AppendResult, error) {
	if strings.TrimSpace(body) == "" {
		return AppendResult{}, support_errors.ErrInvalidInput
	}

	unlock := s.locks.Lock(conversationID)
	defer unlock()

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return AppendResult{}, err
	}
	if conv.Status == domain.StatusClosed {
		return AppendResult{}, support_errors.ErrConversationClosed
	}
	if !conv.AccessibleBy(actor.ID, actor.Role) {
		return AppendResult{}, support_errors.ErrForbidden
	}

	var autoClaimed bool
	if actor.Role.IsStaff() && conv.AssignedTo == nil {
		if err := s.conversations.Claim(ctx, conversationID, actor.ID, actor.Name); err != nil {
			return AppendResult{}, err
		}
		id := actor.ID
		conv.AssignedTo = &id
		conv.AssignedToName = actor.Name
		autoClaimed = true
	}

	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       actor.ID,
		SenderName:     actor.Name,
		SenderRole:     actor.Role,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.Append(ctx, &msg); err != nil {
		return AppendResult{}, err
	}
	if err := s.conversations.TouchLastMessage(ctx, conversationID, msg.CreatedAt); err != nil {
		s.logger.Errorf("touch last message on %s: %v", conversationID, err)
	}
	conv.LastMessageAt = &msg.CreatedAt

	room := events.ConversationRoom(conversationID)
	if autoClaimed {
		s.broadcast(ctx, events.EventAssigned, room, events.AssignmentPayload{
			ConversationID: conv.ID,
			AssignedTo:     conv.AssignedTo,
			AssignedToName: conv.AssignedToName,
		})
		s.broadcast(ctx, events.EventAssigned, events.SupportTeamRoom, events.AssignmentPayload{
			ConversationID: conv.ID,
			AssignedTo:     conv.AssignedTo,
			AssignedToName: conv.AssignedToName,
		})
	}

	// Every message goes out as new_support_message; customer-originated
	// ones additionally as new_user_message so clients can filter.
	s.broadcast(ctx, events.EventNewMessage, room, msg)
	if actor.Role == domain.RoleUser {
		s.broadcast(ctx, events.EventNewUserMessage, room, msg)
	}

	return AppendResult{Message: msg, Conversation: conv, AutoClaimed: autoClaimed}, nil
}

// List returns a conversation's log oldest first, applying the
// visibility rule: a moderator who lost the claim race cannot read.
func (s *MessageService) List(ctx context.Context, actor domain.Actor, conversationID uuid.UUID) ([]domain.Message, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.AccessibleBy(actor.ID, actor.Role) {
		return nil, support_errors.ErrForbidden
	}
	return s.messages.ListByConversation(ctx, conversationID)
}

func (s *MessageService) broadcast(ctx context.Context, event, room string, payload any) {
	env, err := events.NewEnvelope(event, room, payload)
	if err != nil {
		s.logger.Errorf("broadcast %s: marshal: %v", event, err)
		return
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		s.logger.Errorf("broadcast %s to %s: %v", event, room, err)
	}
}
