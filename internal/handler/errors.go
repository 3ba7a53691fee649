package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"techlight-support/internal/transport/httpdto"
	support_errors "techlight-support/pkg/errors"
)

// respondError maps business errors onto HTTP status codes and stable
// error codes the client can act on.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, support_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("conversation not found", "NOT_FOUND"))
	case errors.Is(err, support_errors.ErrForbidden):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
	case errors.Is(err, support_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	case errors.Is(err, support_errors.ErrAlreadyAssigned):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("this conversation is assigned to another moderator", "ALREADY_ASSIGNED"))
	case errors.Is(err, support_errors.ErrConversationClosed):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("conversation is closed", "CONVERSATION_CLOSED"))
	case errors.Is(err, support_errors.ErrInvalidTransition):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("invalid status transition", "INVALID_TRANSITION"))
	case errors.Is(err, support_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid input", "INVALID_REQUEST"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
