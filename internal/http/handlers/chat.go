package handlers

import (
	"net/http"
	"strconv"
	"time"

	"campus-chat-be/internal/chat"
	"campus-chat-be/internal/http/middleware"
	"campus-chat-be/internal/models"

	"github.com/gin-gonic/gin"
)

// ChatHandler serves the direct-message endpoints.
type ChatHandler struct {
	Service *chat.Service
}

type sendMessageReq struct {
	ReceiverID  uint                `json:"receiver_id" binding:"required"`
	Content     string              `json:"content"`
	Attachments []models.Attachment `json:"attachments"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	userID := middleware.MustUserID(c)

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	msg, err := h.Service.SendDirect(c.Request.Context(), userID, chat.SendDirectInput{
		ReceiverID:  req.ReceiverID,
		Content:     req.Content,
		Attachments: req.Attachments,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": msg})
}

func (h *ChatHandler) Conversation(c *gin.Context) {
	userID := middleware.MustUserID(c)

	contactID, ok := uintParam(c, "contactId")
	if !ok {
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if x, err := strconv.Atoi(v); err == nil {
			limit = x
		}
	}

	var before *time.Time
	if v := c.Query("before"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "before must be an RFC3339 timestamp"})
			return
		}
		before = &t
	}

	page, err := h.Service.DirectHistory(c.Request.Context(), userID, contactID, limit, before)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID := middleware.MustUserID(c)

	contactID, ok := uintParam(c, "contactId")
	if !ok {
		return
	}

	if err := h.Service.MarkConversationRead(c.Request.Context(), userID, contactID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "marked read"})
}

type editMessageReq struct {
	Content string `json:"content" binding:"required"`
}

func (h *ChatHandler) Edit(c *gin.Context) {
	userID := middleware.MustUserID(c)

	messageID, ok := uintParam(c, "messageId")
	if !ok {
		return
	}

	var req editMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	msg, err := h.Service.EditDirect(c.Request.Context(), userID, messageID, req.Content)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": msg})
}

func (h *ChatHandler) Delete(c *gin.Context) {
	userID := middleware.MustUserID(c)

	messageID, ok := uintParam(c, "messageId")
	if !ok {
		return
	}

	if err := h.Service.DeleteDirect(c.Request.Context(), userID, messageID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}
