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

// GroupChatHandler serves the group-message endpoints.
type GroupChatHandler struct {
	Service *chat.Service
}

type sendGroupMessageReq struct {
	Content     string              `json:"content"`
	Attachments []models.Attachment `json:"attachments"`
}

func (h *GroupChatHandler) Send(c *gin.Context) {
	userID := middleware.MustUserID(c)

	groupID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req sendGroupMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	msg, err := h.Service.SendGroup(c.Request.Context(), userID, chat.SendGroupInput{
		GroupID:     groupID,
		Content:     req.Content,
		Attachments: req.Attachments,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": msg})
}

func (h *GroupChatHandler) Messages(c *gin.Context) {
	userID := middleware.MustUserID(c)

	groupID, ok := uintParam(c, "id")
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

	page, err := h.Service.GroupHistory(c.Request.Context(), userID, groupID, limit, before)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *GroupChatHandler) Edit(c *gin.Context) {
	userID := middleware.MustUserID(c)

	groupID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	messageID, ok := uintParam(c, "messageId")
	if !ok {
		return
	}

	var req editMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	msg, err := h.Service.EditGroup(c.Request.Context(), userID, groupID, messageID, req.Content)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": msg})
}

func (h *GroupChatHandler) Delete(c *gin.Context) {
	userID := middleware.MustUserID(c)

	groupID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	messageID, ok := uintParam(c, "messageId")
	if !ok {
		return
	}

	if err := h.Service.DeleteGroup(c.Request.Context(), userID, groupID, messageID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *GroupChatHandler) MarkRead(c *gin.Context) {
	userID := middleware.MustUserID(c)

	groupID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.Service.MarkGroupRead(c.Request.Context(), userID, groupID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "marked read"})
}
