package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"techlight-support/internal/services"
	"techlight-support/internal/transport/httpdto"
)

// StaffPresence answers "which staff are online" for the team view.
type StaffPresence interface {
	OnlineStaff(ctx context.Context) ([]string, error)
}

type PresenceHandler struct {
	presence StaffPresence
}

func NewPresenceHandler(presence StaffPresence) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// OnlineStaff lists the ids of staff currently connected. Staff only.
func (h *PresenceHandler) OnlineStaff(c *gin.Context) {
	actor, ok := services.ActorFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	if !actor.Role.IsStaff() {
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
		return
	}

	ids, err := h.presence.OnlineStaff(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"online": ids}))
}
