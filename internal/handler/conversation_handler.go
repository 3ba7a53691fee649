package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"techlight-support/internal/domain"
	"techlight-support/internal/services"
	"techlight-support/internal/transport/httpdto"
)

type ConversationHandler struct {
	service *services.ConversationService
}

func NewConversationHandler(service *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// Create opens a new support conversation for the acting customer.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req httpdto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	actor, ok := services.ActorFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	conv, err := h.service.Create(c.Request.Context(), services.CreateConversationInput{
		UserID:    actor.ID,
		UserName:  actor.Name,
		UserEmail: req.UserEmail,
		UserPhone: req.UserPhone,
		Subject:   req.Subject,
		Category:  req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(conv))
}

func (h *ConversationHandler) List(c *gin.Context) {
	actor, ok := services.ActorFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var filter services.ListFilter
	if raw := c.Query("status"); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid status", "INVALID_REQUEST"))
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("assignedTo"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid assignee id", "INVALID_REQUEST"))
			return
		}
		filter.AssignedTo = &id
	}

	items, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListConversationsResponse{Conversations: items}))
}

func (h *ConversationHandler) GetByID(c *gin.Context) {
	actor, ok := services.ActorFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	conv, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(conv))
}

// Claim takes ownership of an unassigned conversation.
func (h *ConversationHandler) Claim(c *gin.Context) {
	actor, ok := services.ActorFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	conv, err := h.service.Claim(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(conv))
}

// Release returns the conversation to the unclaimed pool.
func (h *ConversationHandler) Release(c *gin.Context) {
	actor, ok := services.ActorFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	conv, err := h.service.Release(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(conv))
}

// UpdateStatus applies a lifecycle transition (PATCH /conversations/:id).
func (h *ConversationHandler) UpdateStatus(c *gin.Context) {
	var req httpdto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	actor, ok := services.ActorFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}
	status, ok := domain.ParseStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid status", "INVALID_REQUEST"))
		return
	}

	conv, err := h.service.SetStatus(c.Request.Context(), actor, id, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(conv))
}
