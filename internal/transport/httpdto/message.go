package httpdto

import "techlight-support/internal/domain"

type SendMessageRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	Message        string `json:"message" binding:"required"`
}

// SendMessageResponse echoes the conversation because sending a
// message may claim it for the sender as a side effect.
type SendMessageResponse struct {
	Message      domain.Message      `json:"message"`
	Conversation domain.Conversation `json:"conversation"`
	AutoClaimed  bool                `json:"auto_claimed"`
}

type ListMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}
