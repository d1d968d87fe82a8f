package handlers

import (
	"net/http"

	"campus-chat-be/internal/http/middleware"
	"campus-chat-be/internal/push"
	"campus-chat-be/pkg/errors"

	"github.com/gin-gonic/gin"
)

// DeviceHandler manages push tokens. Registering a token that already exists
// reassigns it to the caller: one token, one owner.
type DeviceHandler struct {
	Tokens *push.TokenStore
}

type registerDeviceReq struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required,oneof=android ios web"`
}

func (h *DeviceHandler) Register(c *gin.Context) {
	userID := middleware.MustUserID(c)

	var req registerDeviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	if err := h.Tokens.Register(c.Request.Context(), userID, req.Token, req.Platform); err != nil {
		fail(c, errors.ErrQueryFailed(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "registered"})
}

func (h *DeviceHandler) Remove(c *gin.Context) {
	userID := middleware.MustUserID(c)

	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing token"})
		return
	}

	removed, err := h.Tokens.Remove(c.Request.Context(), userID, token)
	if err != nil {
		fail(c, errors.ErrQueryFailed(err))
		return
	}
	if !removed {
		fail(c, errors.ErrTokenNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}
