package events

import (
	"strings"

	"github.com/google/uuid"
)

// SupportTeamRoom is the shared room every connected moderator and
// admin joins; new-conversation alerts fan out here.
const SupportTeamRoom = "support-team"

const conversationRoomPrefix = "conversation:"

// ConversationRoom names the per-conversation room.
func ConversationRoom(id uuid.UUID) string {
	return conversationRoomPrefix + id.String()
}

// ParseConversationRoom extracts the conversation id from a room name.
func ParseConversationRoom(room string) (uuid.UUID, bool) {
	raw, ok := strings.CutPrefix(room, conversationRoomPrefix)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Redis channel naming: one pub/sub channel per room.
const channelPrefix = "room:"

func ChannelFor(room string) string {
	return channelPrefix + room
}

// ChannelPattern matches every room channel; the subscriber bridge
// PSubscribes to it and republishes into the local hub.
const ChannelPattern = channelPrefix + "*"

func RoomFromChannel(channel string) string {
	return strings.TrimPrefix(channel, channelPrefix)
}
