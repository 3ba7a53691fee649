package websocket

import (
	"context"

	"techlight-support/internal/domain"
	"techlight-support/internal/events"
	"techlight-support/internal/repository"
)

// RoomAuthorizer decides whether a connected client may join a room.
type RoomAuthorizer struct {
	conversations repository.ConversationRepository
}

func NewRoomAuthorizer(conversations repository.ConversationRepository) *RoomAuthorizer {
	return &RoomAuthorizer{conversations: conversations}
}

// CanJoin gates room membership: the support-team room is staff-only,
// and a conversation room follows the conversation's visibility rule
// (customer, current assignee, or admin; moderators may also watch an
// unclaimed conversation).
func (a *RoomAuthorizer) CanJoin(ctx context.Context, actor domain.Actor, room string) (bool, error) {
	if room == events.SupportTeamRoom {
		return actor.Role.IsStaff(), nil
	}

	if convID, ok := events.ParseConversationRoom(room); ok {
		conv, err := a.conversations.GetByID(ctx, convID)
		if err != nil {
			return false, err
		}
		return conv.AccessibleBy(actor.ID, actor.Role), nil
	}

	// Default deny
	return false, nil
}
