package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"techlight-support/internal/domain"
)

// Event names carried over the realtime transport. The wire names are
// part of the client contract and must not change.
const (
	EventNewConversation = "new_support_conversation"
	EventNewUserMessage  = "new_user_message"
	EventNewMessage      = "new_support_message"
	EventTyping          = "support_typing"
	EventStatusChanged   = "conversation_status_changed"
	EventAssigned        = "conversation_assigned"
	EventReleased        = "conversation_released"
)

// Envelope is the unit of fan-out: one named event scoped to one room.
type Envelope struct {
	Event      string          `json:"event"`
	Room       string          `json:"room"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEnvelope(event, room string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Event:      event,
		Room:       room,
		OccurredAt: time.Now().UTC(),
		Payload:    data,
	}, nil
}

// TypingPayload is the ephemeral typing signal. It is never persisted.
type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	ActorID        uuid.UUID `json:"actor_id"`
	ActorName      string    `json:"actor_name"`
	IsTyping       bool      `json:"is_typing"`
}

// StatusPayload announces a lifecycle transition.
type StatusPayload struct {
	ConversationID uuid.UUID     `json:"conversation_id"`
	Status         domain.Status `json:"status"`
	ActorID        uuid.UUID     `json:"actor_id"`
}

// AssignmentPayload announces a claim or release.
type AssignmentPayload struct {
	ConversationID uuid.UUID  `json:"conversation_id"`
	AssignedTo     *uuid.UUID `json:"assigned_to,omitempty"`
	AssignedToName string     `json:"assigned_to_name,omitempty"`
}
