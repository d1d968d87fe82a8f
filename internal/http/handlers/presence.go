package handlers

import (
	"net/http"

	"campus-chat-be/internal/presence"
	"campus-chat-be/pkg/errors"

	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	Registry presence.Registry
}

// Online lists the ids of users with at least one live connection.
func (h *PresenceHandler) Online(c *gin.Context) {
	ids, err := h.Registry.OnlineUsers(c.Request.Context())
	if err != nil {
		fail(c, errors.ErrQueryFailed(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ids})
}
