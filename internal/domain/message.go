package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is one entry in a conversation's append-only log. The id,
// seq and timestamp are assigned by the log at write time, never by the
// client. Seq breaks timestamp ties so (CreatedAt, Seq) totally orders
// the log by arrival.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Seq            int64     `json:"seq"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	SenderRole     Role      `json:"sender_role"`
	Body           string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}
