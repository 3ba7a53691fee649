package httpdto

import "techlight-support/internal/domain"

type CreateConversationRequest struct {
	Subject   string `json:"subject" binding:"required"`
	Category  string `json:"category"`
	UserEmail string `json:"user_email" binding:"required"`
	UserPhone string `json:"user_phone"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
}
