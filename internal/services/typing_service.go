package services

import (
	"context"

	"github.com/google/uuid"

	"techlight-support/internal/domain"
	"techlight-support/internal/events"
	"techlight-support/internal/repository"
	support_errors "techlight-support/pkg/errors"
	"techlight-support/pkg/logger"
)

// TypingMirror mirrors the ephemeral typing signal into a TTL'd store
// so a vanished client's "typing" cannot linger. Optional.
type TypingMirror interface {
	SetTyping(ctx context.Context, conversationID, actorID string, isTyping bool) error
}

// TypingService broadcasts typing indicators. Signals are
// fire-and-forget: nothing is persisted and no acknowledgment is sent.
type TypingService struct {
	conversations repository.ConversationRepository
	publisher     Broadcaster
	mirror        TypingMirror
	logger        *logger.Logger
}

func NewTypingService(
	conversations repository.ConversationRepository,
	publisher Broadcaster,
	mirror TypingMirror,
	l *logger.Logger,
) *TypingService {
	return &TypingService{
		conversations: conversations,
		publisher:     publisher,
		mirror:        mirror,
		logger:        l,
	}
}

// SetTyping fans the signal out to the conversation room. The caller
// owns the 2-second debounce; the mirror's TTL is only the backstop.
func (s *TypingService) SetTyping(ctx context.Context, actor domain.Actor, conversationID uuid.UUID, isTyping bool) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.AccessibleBy(actor.ID, actor.Role) {
		return support_errors.ErrForbidden
	}

	if s.mirror != nil {
		if err := s.mirror.SetTyping(ctx, conversationID.String(), actor.ID.String(), isTyping); err != nil {
			s.logger.Warnf("typing mirror for %s: %v", conversationID, err)
		}
	}

	payload := events.TypingPayload{
		ConversationID: conversationID,
		ActorID:        actor.ID,
		ActorName:      actor.Name,
		IsTyping:       isTyping,
	}
	env, err := events.NewEnvelope(events.EventTyping, events.ConversationRoom(conversationID), payload)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		// Fire-and-forget: a dropped typing signal is not an error the
		// sender needs to see.
		s.logger.Warnf("typing broadcast for %s: %v", conversationID, err)
	}
	return nil
}
